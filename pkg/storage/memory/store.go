// Package memory is a process-local implementation of the storage interfaces.
// It is used for local runs without AWS and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chris/credit-reconciliation/pkg/models"
	"github.com/chris/credit-reconciliation/pkg/storage"
)

type Store struct {
	mu sync.RWMutex

	sessions    map[string]*models.PaymentSession
	balances    map[string]*models.UserBalance
	ledger      map[string]models.LedgerEntry
	connections map[string]string // connection id -> user id
}

func New() *Store {
	return &Store{
		sessions:    make(map[string]*models.PaymentSession),
		balances:    make(map[string]*models.UserBalance),
		ledger:      make(map[string]models.LedgerEntry),
		connections: make(map[string]string),
	}
}

var (
	_ storage.Storage          = (*Store)(nil)
	_ storage.WebSocketManager = (*Store)(nil)
)

func (s *Store) CreateSession(_ context.Context, session *models.PaymentSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.SessionId]; exists {
		return storage.ErrSessionExists
	}
	cp := *session
	s.sessions[session.SessionId] = &cp
	return nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (*models.PaymentSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, storage.ErrSessionNotFound)
	}
	cp := *session
	return &cp, nil
}

func (s *Store) ListPendingSessions(_ context.Context, maxAge time.Duration) ([]models.PaymentSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().Add(-maxAge)
	var pending []models.PaymentSession
	for _, session := range s.sessions {
		if session.Status == models.PENDING && session.CreatedAt.Before(cutoff) {
			pending = append(pending, *session)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return pending, nil
}

// CompleteSession applies the status change, the balance increment and the
// ledger append under a single write lock, so no reader observes a partial
// grant.
func (s *Store) CompleteSession(_ context.Context, session *models.PaymentSession, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entryID := models.GrantEntryID(session.SessionId)
	if _, exists := s.ledger[entryID]; exists {
		return storage.ErrSessionAlreadyCompleted
	}

	stored, ok := s.sessions[session.SessionId]
	if !ok {
		return fmt.Errorf("session %s: %w", session.SessionId, storage.ErrSessionNotFound)
	}
	switch stored.Status {
	case models.PENDING:
	case models.COMPLETED:
		return storage.ErrSessionAlreadyCompleted
	default:
		return fmt.Errorf("session is %s: %w", stored.Status, storage.ErrSessionNotPending)
	}

	processedAt = processedAt.UTC()
	stored.Status = models.COMPLETED
	stored.ProcessedAt = &processedAt
	stored.UpdatedAt = processedAt

	balance, ok := s.balances[session.UserId]
	if !ok {
		balance = &models.UserBalance{UserId: session.UserId, CreatedAt: processedAt}
		s.balances[session.UserId] = balance
	}
	balance.CreditBalance += session.Credits
	balance.Version++
	balance.UpdatedAt = processedAt

	s.ledger[entryID] = models.LedgerEntry{
		EntryID:     entryID,
		SessionID:   session.SessionId,
		UserID:      session.UserId,
		Plan:        session.Plan,
		Credits:     session.Credits,
		Description: fmt.Sprintf("%s plan purchase, session %s", session.Plan, session.SessionId),
		Timestamp:   processedAt,
		GSI1PK:      models.LedgerPartition,
	}
	return nil
}

func (s *Store) TransitionSession(_ context.Context, sessionID string, to models.SessionStatus) error {
	if to != models.FAILED && to != models.EXPIRED {
		return fmt.Errorf("unsupported session transition to %q", to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, storage.ErrSessionNotFound)
	}
	if stored.Status != models.PENDING {
		return fmt.Errorf("session %s: %w", sessionID, storage.ErrSessionNotPending)
	}
	stored.Status = to
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) GetBalance(_ context.Context, userID string) (*models.UserBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	balance, ok := s.balances[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, storage.ErrBalanceNotFound)
	}
	cp := *balance
	return &cp, nil
}

func (s *Store) ListLedgerEntries(_ context.Context, limit int32) ([]models.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]models.LedgerEntry, 0, len(s.ledger))
	for _, e := range s.ledger {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Timestamp.After(entries[j].Timestamp) })
	if limit > 0 && int(limit) < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *Store) AddConnection(_ context.Context, connectionID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[connectionID] = userID
	return nil
}

func (s *Store) RemoveConnection(_ context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, connectionID)
	return nil
}

func (s *Store) GetConnections(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for connID, owner := range s.connections {
		if owner == userID {
			ids = append(ids, connID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
