package accounts_test

import (
	"context"
	"sync"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// memoryStore is an in-memory AccountStore with the same snapshot and
// compare-and-set semantics as the bun repository.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]*accounts.Account
	saves   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]*accounts.Account{}}
}

func cloneAccount(a *accounts.Account) *accounts.Account {
	clone := *a
	if a.VerificationTokenExpiry != nil {
		t := *a.VerificationTokenExpiry
		clone.VerificationTokenExpiry = &t
	}
	if a.PasswordResetTokenExpiry != nil {
		t := *a.PasswordResetTokenExpiry
		clone.PasswordResetTokenExpiry = &t
	}
	if a.LockedAt != nil {
		t := *a.LockedAt
		clone.LockedAt = &t
	}
	if a.CreatedAt != nil {
		t := *a.CreatedAt
		clone.CreatedAt = &t
	}
	if a.UpdatedAt != nil {
		t := *a.UpdatedAt
		clone.UpdatedAt = &t
	}
	if a.LastLoginAt != nil {
		t := *a.LastLoginAt
		clone.LastLoginAt = &t
	}
	return &clone
}

func (s *memoryStore) find(match func(*accounts.Account) bool) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.records {
		if match(record) {
			return cloneAccount(record), nil
		}
	}
	return nil, repository.NewRecordNotFound()
}

func (s *memoryStore) FindByID(ctx context.Context, id string) (*accounts.Account, error) {
	return s.find(func(a *accounts.Account) bool { return a.ID.String() == id })
}

func (s *memoryStore) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	email = accounts.NormalizeEmail(email)
	return s.find(func(a *accounts.Account) bool { return a.Email == email })
}

func (s *memoryStore) FindByVerificationToken(ctx context.Context, token string) (*accounts.Account, error) {
	if token == "" {
		return nil, repository.NewRecordNotFound()
	}
	return s.find(func(a *accounts.Account) bool { return a.VerificationToken == token })
}

func (s *memoryStore) FindByResetToken(ctx context.Context, token string) (*accounts.Account, error) {
	if token == "" {
		return nil, repository.NewRecordNotFound()
	}
	return s.find(func(a *accounts.Account) bool { return a.PasswordResetToken == token })
}

func (s *memoryStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if _, err := s.FindByEmail(ctx, email); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *memoryStore) Save(ctx context.Context, record *accounts.Account) (*accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saves++

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.Email = accounts.NormalizeEmail(record.Email)
	if record.CreatedAt == nil {
		now := time.Now()
		record.CreatedAt = &now
	}

	s.records[record.ID.String()] = cloneAccount(record)
	return cloneAccount(record), nil
}

func (s *memoryStore) UpdateFailedAttempts(ctx context.Context, email string, attempts int, lockedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = accounts.NormalizeEmail(email)
	for _, record := range s.records {
		if record.Email == email && record.FailedLoginAttempts < attempts {
			record.FailedLoginAttempts = attempts
			record.LockedAt = lockedAt
		}
	}
	return nil
}

func (s *memoryStore) ResetFailedAttempts(ctx context.Context, email string, loginTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = accounts.NormalizeEmail(email)
	for _, record := range s.records {
		if record.Email == email {
			record.FailedLoginAttempts = 0
			record.LockedAt = nil
			t := loginTime
			record.LastLoginAt = &t
		}
	}
	return nil
}

func (s *memoryStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

var _ accounts.AccountStore = (*memoryStore)(nil)

// recordingNotifier collects every dispatched notification.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []accounts.Notification
}

func (n *recordingNotifier) Send(ctx context.Context, notification accounts.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return nil
}

func (n *recordingNotifier) byKind(kind accounts.NotificationKind) []accounts.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []accounts.Notification
	for _, notification := range n.sent {
		if notification.Kind == kind {
			out = append(out, notification)
		}
	}
	return out
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// fakeClock is a mutable time source shared by the manager and the tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
