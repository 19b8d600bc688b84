// Package credstore defines the key-value capability used to persist small
// secrets: tokens, the serialized user record and the expiry timestamp.
package credstore

import (
	"context"

	"github.com/jrsteele09/energia-client/internal/errors"
)

// ErrNotFound is returned by Get when nothing is stored under the key.
var ErrNotFound = errors.ErrNotFound

// Store is a get/set/delete map of secrets. Implementations encrypt values at
// rest. Deleting an absent key is not an error.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// GetOptional reads key and maps ErrNotFound to an empty value.
func GetOptional(ctx context.Context, s Store, key string) (string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}
