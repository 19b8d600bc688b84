package repofake

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/energia-client/users"
)

var _ users.AccountRepo = (*FakeAccountRepo)(nil)

var ErrNotFound = errors.New("not found")

type FakeAccountRepo struct {
	accounts map[string]*users.Account
	emailIds map[string]string // email to account id
	lock     sync.RWMutex
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{
		accounts: make(map[string]*users.Account),
		emailIds: make(map[string]string),
	}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *FakeAccountRepo) Upsert(account *users.Account) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	copied := *account
	r.accounts[copied.ID] = &copied
	r.emailIds[normalize(copied.Email)] = copied.ID
	return nil
}

func (r *FakeAccountRepo) Delete(email string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	id, ok := r.emailIds[normalize(email)]
	if !ok {
		return ErrNotFound
	}
	delete(r.emailIds, normalize(email))
	delete(r.accounts, id)
	return nil
}

func (r *FakeAccountRepo) GetByEmail(email string) (*users.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	id, ok := r.emailIds[normalize(email)]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *r.accounts[id]
	return &copied, nil
}

func (r *FakeAccountRepo) GetByID(id string) (*users.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *FakeAccountRepo) SetPassword(email, passwordHash string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	id, ok := r.emailIds[normalize(email)]
	if !ok {
		return ErrNotFound
	}
	r.accounts[id].PasswordHash = passwordHash
	return nil
}
