package domain

import "time"

const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 30 * time.Minute
)

// LockoutPolicy decides when repeated login failures block an account.
//
// The failure counter is reset only by a successful login. Lock expiry alone
// leaves the counter where it was, so the first failure after expiry locks the
// account again.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

func (p LockoutPolicy) normalized() LockoutPolicy {
	if p.Threshold <= 0 {
		p.Threshold = DefaultLockoutThreshold
	}
	if p.Duration <= 0 {
		p.Duration = DefaultLockoutDuration
	}
	return p
}

// IsLocked is true iff lockedUntil is set and after now.
func (p LockoutPolicy) IsLocked(u User, now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// RecordFailure increments the counter and reports whether this failure locked the account.
func (p LockoutPolicy) RecordFailure(u *User, now time.Time) bool {
	p = p.normalized()
	u.FailedLoginCount++
	u.UpdatedAt = now
	if u.FailedLoginCount >= p.Threshold {
		until := now.Add(p.Duration)
		u.LockedUntil = &until
		return true
	}
	return false
}

// RecordSuccess clears lockout state and stamps the login time.
func (p LockoutPolicy) RecordSuccess(u *User, now time.Time) {
	u.FailedLoginCount = 0
	u.LockedUntil = nil
	at := now
	u.LastLoginAt = &at
	u.UpdatedAt = now
}
