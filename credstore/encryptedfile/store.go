// Package encryptedfile is a credstore.Store that keeps one sealed file per
// key in a private directory. Values are encrypted with XChaCha20-Poly1305
// under a key derived from a passphrase with scrypt.
package encryptedfile

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"github.com/jrsteele09/energia-client/credstore"
	"github.com/jrsteele09/energia-client/internal/errors"
)

const (
	saltFile  = "store.salt"
	saltSize  = 16
	fileExt   = ".sealed"
	dirPerm   = 0o700
	filePerm  = 0o600
	keyLength = chacha20poly1305.KeySize
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

var _ credstore.Store = (*Store)(nil)

type Store struct {
	dir  string
	aead cipher.AEAD
	lock sync.RWMutex
}

type options struct {
	scryptN int
}

type Option func(*options)

// WithScryptCost overrides the scrypt N parameter. It must be a power of two
// greater than 1. Lower values are only meant for tests.
func WithScryptCost(n int) Option {
	return func(o *options) {
		o.scryptN = n
	}
}

// New opens or creates the store in dir. The salt is created on first use and
// reused afterwards, so the same passphrase always unlocks the same files.
func New(dir, passphrase string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, pkgerrors.New("[encryptedfile.New] directory is required")
	}
	if passphrase == "" {
		return nil, pkgerrors.New("[encryptedfile.New] passphrase is required")
	}

	o := options{scryptN: 1 << 15}
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, errors.E(errors.ErrStorage, "[encryptedfile.New]", err)
	}

	salt, err := loadOrCreateSalt(filepath.Join(dir, saltFile))
	if err != nil {
		return nil, errors.E(errors.ErrStorage, "[encryptedfile.New]", err)
	}

	key, err := scrypt.Key([]byte(passphrase), salt, o.scryptN, 8, 1, keyLength)
	if err != nil {
		return nil, errors.E(errors.ErrStorage, "[encryptedfile.New]", pkgerrors.Wrap(err, "derive key"))
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.E(errors.ErrStorage, "[encryptedfile.New]", err)
	}

	return &Store{dir: dir, aead: aead}, nil
}

func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil {
		if len(salt) != saltSize {
			return nil, pkgerrors.Errorf("salt file %s is corrupt", path)
		}
		return salt, nil
	}
	if !os.IsNotExist(err) {
		return nil, pkgerrors.Wrap(err, "read salt")
	}

	salt = make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, pkgerrors.Wrap(err, "generate salt")
	}
	if err := writeAtomic(path, salt); err != nil {
		return nil, pkgerrors.Wrap(err, "write salt")
	}
	return salt, nil
}

func (s *Store) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", errors.New(errors.ErrValidation, "[encryptedfile.Store]", "invalid storage key "+key)
	}
	return filepath.Join(s.dir, key+fileExt), nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := s.path(key)
	if err != nil {
		return "", err
	}

	s.lock.RLock()
	data, err := os.ReadFile(path)
	s.lock.RUnlock()
	if os.IsNotExist(err) {
		return "", credstore.ErrNotFound
	}
	if err != nil {
		return "", errors.E(errors.ErrStorage, "[encryptedfile.Get]", err)
	}

	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return "", errors.E(errors.ErrStorage, "[encryptedfile.Get]", pkgerrors.Errorf("%s is truncated", key))
	}
	plain, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], []byte(key))
	if err != nil {
		// Wrong passphrase or a file moved between keys.
		return "", errors.E(errors.ErrStorage, "[encryptedfile.Get]", pkgerrors.Wrapf(err, "open %s", key))
	}
	return string(plain), nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}

	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(value)+chacha20poly1305.Overhead)
	if _, err := rand.Read(nonce); err != nil {
		return errors.E(errors.ErrStorage, "[encryptedfile.Set]", err)
	}
	sealed := s.aead.Seal(nonce, nonce, []byte(value), []byte(key))

	s.lock.Lock()
	defer s.lock.Unlock()
	if err := writeAtomic(path, sealed); err != nil {
		return errors.E(errors.ErrStorage, "[encryptedfile.Set]", err)
	}
	log.Debug().Str("key", key).Msg("credential stored")
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.E(errors.ErrStorage, "[encryptedfile.Delete]", err)
	}
	return nil
}

// writeAtomic replaces path in one rename so readers never see half a value.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
