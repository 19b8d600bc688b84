package repofake

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/energia-client/credstore"
)

var _ credstore.Store = (*FakeStore)(nil)

// FakeStore keeps values in memory. Errors can be injected per key.
type FakeStore struct {
	values    map[string]string
	getErrs   map[string]error
	setErrs   map[string]error
	deleteErr map[string]error
	lock      sync.RWMutex
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		values:    make(map[string]string),
		getErrs:   make(map[string]error),
		setErrs:   make(map[string]error),
		deleteErr: make(map[string]error),
	}
}

func (s *FakeStore) FailGet(key string, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.getErrs[key] = err
}

func (s *FakeStore) FailSet(key string, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.setErrs[key] = err
}

// FailDelete makes Delete of key return err. The value is still removed.
func (s *FakeStore) FailDelete(key string, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.deleteErr[key] = err
}

func (s *FakeStore) Get(_ context.Context, key string) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if err := s.getErrs[key]; err != nil {
		return "", err
	}
	v, ok := s.values[key]
	if !ok {
		return "", credstore.ErrNotFound
	}
	return v, nil
}

func (s *FakeStore) Set(_ context.Context, key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.setErrs[key]; err != nil {
		return err
	}
	s.values[key] = value
	return nil
}

func (s *FakeStore) Delete(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.values, key)
	return s.deleteErr[key]
}

// Keys lists the stored keys in order.
func (s *FakeStore) Keys() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
