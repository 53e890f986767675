// Package memstore is an in-memory account.Store for tests and local runs.
// All conditional operations are atomic under a single mutex.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/canvascue/accounting/pkg/account"
)

// Store implements account.Store in memory.
type Store struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*account.Account
}

var _ account.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{accounts: make(map[uuid.UUID]*account.Account)}
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	return acct.Clone(), nil
}

func (s *Store) GetActiveByUser(_ context.Context, userID uuid.UUID) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if acct := s.activeFor(userID, uuid.Nil); acct != nil {
		return acct.Clone(), nil
	}
	return nil, account.ErrAccountNotFound
}

func (s *Store) Create(_ context.Context, acct *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[acct.ID]; exists {
		return account.ErrInvalidAccount
	}
	if acct.Status.HoldsActiveSlot() && s.activeFor(acct.UserID, acct.ID) != nil {
		return account.ErrActiveAccountExists
	}

	acct.Version = 1
	s.accounts[acct.ID] = acct.Clone()
	return nil
}

func (s *Store) Save(_ context.Context, acct *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.accounts[acct.ID]
	if !ok {
		return account.ErrAccountNotFound
	}
	if stored.Version != acct.Version {
		return account.ErrConcurrentUpdate
	}
	if acct.Status.HoldsActiveSlot() && s.activeFor(acct.UserID, acct.ID) != nil {
		return account.ErrActiveAccountExists
	}

	next := acct.Clone()
	next.Usage = stored.Usage
	next.CreatedAt = stored.CreatedAt
	next.Version = stored.Version + 1
	s.accounts[acct.ID] = next

	acct.Version = next.Version
	acct.Usage = next.Usage
	return nil
}

func (s *Store) ResetUsageIfDue(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return false, account.ErrAccountNotFound
	}
	if !acct.Usage.ResetDue(now) {
		return false, nil
	}
	acct.Usage.DesignsUsedThisMonth = 0
	acct.Usage.LastResetAt = now
	return true, nil
}

func (s *Store) IncrementDesignsUsed(_ context.Context, id uuid.UUID, limit int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return 0, account.ErrAccountNotFound
	}
	if !acct.IsActive() {
		return acct.Usage.DesignsUsedThisMonth, account.ErrAccountInactive
	}
	if acct.Usage.DesignsUsedThisMonth >= limit {
		return acct.Usage.DesignsUsedThisMonth, account.ErrUsageLimitReached
	}
	acct.Usage.DesignsUsedThisMonth++
	return acct.Usage.DesignsUsedThisMonth, nil
}

func (s *Store) CompareAndSetActiveRequests(_ context.Context, id uuid.UUID, expected, count int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return account.ErrAccountNotFound
	}
	if acct.Usage.ActiveDesignRequests != expected {
		return account.ErrConcurrentUpdate
	}
	acct.Usage.ActiveDesignRequests = count
	return nil
}

func (s *Store) ListDue(_ context.Context, q account.DueQuery) ([]*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	due := make([]*account.Account, 0)
	for _, acct := range s.accounts {
		if q.Matches(acct) {
			due = append(due, acct.Clone())
		}
	}
	slices.SortFunc(due, func(a, b *account.Account) int {
		return account.CompareDue(a, account.CursorAt(b))
	})
	if q.Limit > 0 && len(due) > q.Limit {
		due = due[:q.Limit]
	}
	return due, nil
}

// activeFor returns the user's slot holder other than exclude.
func (s *Store) activeFor(userID, exclude uuid.UUID) *account.Account {
	for id, acct := range s.accounts {
		if id != exclude && acct.UserID == userID && acct.Status.HoldsActiveSlot() {
			return acct
		}
	}
	return nil
}
