package services

import (
	"context"
	"sync"
	"time"

	"github.com/BradenHooton/kontakt/internal/models"
	"github.com/BradenHooton/kontakt/internal/session"
)

// MockNotifier implements Notifier for testing
type MockNotifier struct {
	NotifyFunc func(ctx context.Context, n models.Notification) error

	mu   sync.Mutex
	Sent []models.Notification
}

func (m *MockNotifier) Notify(ctx context.Context, n models.Notification) error {
	m.mu.Lock()
	m.Sent = append(m.Sent, n)
	m.mu.Unlock()

	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, n)
	}
	return nil
}

// Calls returns the number of Notify calls
func (m *MockNotifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// MockCounterStore implements ratelimit.CounterStore for testing
type MockCounterStore struct {
	CheckAndIncrementFunc func(ctx context.Context, ip string, max int, window time.Duration) (bool, error)
}

func (m *MockCounterStore) CheckAndIncrement(ctx context.Context, ip string, max int, window time.Duration) (bool, error) {
	if m.CheckAndIncrementFunc != nil {
		return m.CheckAndIncrementFunc(ctx, ip, max, window)
	}
	return true, nil
}

// MockAuditSink implements AuditSink for testing
type MockAuditSink struct {
	AppendFunc func(ctx context.Context, entry models.AuditEntry) error

	mu      sync.Mutex
	Entries []models.AuditEntry
}

func (m *MockAuditSink) Append(ctx context.Context, entry models.AuditEntry) error {
	if m.AppendFunc != nil {
		if err := m.AppendFunc(ctx, entry); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.Entries = append(m.Entries, entry)
	m.mu.Unlock()
	return nil
}

// Len returns the number of appended entries
func (m *MockAuditSink) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Entries)
}

// MockTokenValidator implements TokenValidator for testing
type MockTokenValidator struct {
	ValidateFunc func(sess *session.Session, supplied string) bool
}

func (m *MockTokenValidator) Validate(sess *session.Session, supplied string) bool {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(sess, supplied)
	}
	return true
}
