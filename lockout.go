package accounts

import "time"

// LockoutPolicy is the pure decision logic for brute-force lockout. It has
// no storage and no clock of its own, which keeps it independently testable.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// NewLockoutPolicy builds a policy from config.
func NewLockoutPolicy(cfg Config) LockoutPolicy {
	return LockoutPolicy{
		MaxAttempts:  cfg.GetMaxLoginAttempts(),
		LockDuration: cfg.GetLockDuration(),
	}
}

// ShouldLock reports whether a post-increment failed attempt count has
// reached the lock threshold.
func (p LockoutPolicy) ShouldLock(failedAttempts int) bool {
	return failedAttempts >= p.MaxAttempts
}

// IsLocked reports whether the account is inside its lockout window.
// Lock state is derived from the lock timestamp age only; the live attempt
// counter is not consulted.
func (p LockoutPolicy) IsLocked(lockedAt *time.Time, now time.Time) bool {
	if lockedAt == nil {
		return false
	}
	return now.Before(lockedAt.Add(p.LockDuration))
}
