package memory

import (
	"context"
	"sync"

	"go-freelance-backend/internal/domain"
)

// LocalStore implements domain.SessionStore and domain.WalletStore.
type LocalStore struct {
	mu         sync.Mutex
	sessions   map[string]map[string]string
	navigation map[string][]string
	balances   map[string]float64
	ledgers    map[string][]domain.WalletEntry
}

func NewLocalStore() *LocalStore {
	return &LocalStore{
		sessions:   map[string]map[string]string{},
		navigation: map[string][]string{},
		balances:   map[string]float64{},
		ledgers:    map[string][]domain.WalletEntry{},
	}
}

func (s *LocalStore) SaveSession(_ context.Context, uid string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[uid]
	if !ok {
		session = map[string]string{}
		s.sessions[uid] = session
	}
	for k, v := range fields {
		session[k] = v
	}
	return nil
}

func (s *LocalStore) GetSession(_ context.Context, uid string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := map[string]string{}
	for k, v := range s.sessions[uid] {
		out[k] = v
	}
	return out, nil
}

func (s *LocalStore) ClearSession(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, uid)
	return nil
}

func (s *LocalStore) PushNavigation(_ context.Context, uid, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.navigation[uid]
	if len(entries) > 0 && entries[0] == path {
		return nil
	}
	entries = append([]string{path}, entries...)
	if len(entries) > domain.MaxNavigationEntries {
		entries = entries[:domain.MaxNavigationEntries]
	}
	s.navigation[uid] = entries
	return nil
}

func (s *LocalStore) Navigation(_ context.Context, uid string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigation[uid]...), nil
}

func (s *LocalStore) Balance(_ context.Context, uid string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[uid], nil
}

func (s *LocalStore) Credit(_ context.Context, uid string, amount float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[uid] += amount
	return s.balances[uid], nil
}

func (s *LocalStore) Debit(_ context.Context, uid string, amount float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.balances[uid] < amount {
		return s.balances[uid], domain.ErrInsufficientFunds
	}
	s.balances[uid] -= amount
	return s.balances[uid], nil
}

func (s *LocalStore) AppendLedger(_ context.Context, uid string, entry domain.WalletEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := append([]domain.WalletEntry{entry}, s.ledgers[uid]...)
	if len(entries) > domain.MaxLedgerEntries {
		entries = entries[:domain.MaxLedgerEntries]
	}
	s.ledgers[uid] = entries
	return nil
}

func (s *LocalStore) Ledger(_ context.Context, uid string) ([]domain.WalletEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.WalletEntry(nil), s.ledgers[uid]...), nil
}

func (s *LocalStore) Ping(context.Context) error {
	return nil
}
