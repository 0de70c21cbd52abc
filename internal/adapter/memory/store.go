// Package memory provides a process-local override store for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/couchcryptid/pop-status-service/internal/domain"
)

// Store holds one versioned value. Writes with a stale revision fail with
// domain.ErrOverrideConflict.
type Store struct {
	mu      sync.Mutex
	value   string
	found   bool
	version uint64

	// Fail, when set, is returned by every call. Used to simulate an outage.
	Fail error

	gets int
	puts int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// NewStoreWithValue creates a store already holding value.
func NewStoreWithValue(value string) *Store {
	return &Store{value: value, found: true, version: 1}
}

func (s *Store) Get(_ context.Context) (domain.StoredOverrides, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gets++
	if s.Fail != nil {
		return domain.StoredOverrides{}, s.fail()
	}
	return s.snapshot(), nil
}

// Put stores value if revision matches the current version. An empty revision
// writes unconditionally.
func (s *Store) Put(_ context.Context, value, revision string) (domain.StoredOverrides, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.puts++
	if s.Fail != nil {
		return domain.StoredOverrides{}, s.fail()
	}
	if revision != "" && revision != s.revision() {
		return domain.StoredOverrides{}, &domain.SourceError{
			Source: domain.SourceOverrideStore,
			Err:    fmt.Errorf("%w: have revision %s, write expected %s", domain.ErrOverrideConflict, s.revision(), revision),
		}
	}

	s.value = value
	s.found = true
	s.version++
	return s.snapshot(), nil
}

// Calls returns how many Get and Put calls the store has served.
func (s *Store) Calls() (gets, puts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets, s.puts
}

func (s *Store) snapshot() domain.StoredOverrides {
	return domain.StoredOverrides{Value: s.value, Found: s.found, Revision: s.revision()}
}

func (s *Store) revision() string {
	return strconv.FormatUint(s.version, 10)
}

func (s *Store) fail() error {
	return &domain.SourceError{
		Source: domain.SourceOverrideStore,
		Err:    fmt.Errorf("%w: %w", domain.ErrUpstreamUnreachable, s.Fail),
	}
}
