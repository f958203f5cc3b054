package session

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Policy bounds consecutive failed logins.
type Policy struct {
	MaxAttempts int
	Lockout     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Lockout: 5 * time.Minute}
}

// LoginError is returned by a failed or blocked login.
type LoginError struct {
	Remaining int           // attempts left before lockout
	RetryIn   time.Duration // non-zero while locked
}

func (e *LoginError) Locked() bool { return e.RetryIn > 0 }

func (e *LoginError) Error() string {
	if e.Locked() {
		return fmt.Sprintf("Terlalu banyak percobaan gagal. Coba lagi dalam %d menit.", minutesCeil(e.RetryIn))
	}
	return fmt.Sprintf("Username atau password salah. Sisa percobaan: %d", e.Remaining)
}

func minutesCeil(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}

// Session is one browser's login state.
type Session struct {
	mu          sync.Mutex
	creds       Credentials
	policy      Policy
	user        string
	failures    int
	lockedUntil time.Time
}

func New(creds Credentials, policy Policy) *Session {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultPolicy().MaxAttempts
	}
	return &Session{creds: creds, policy: policy}
}

// Login checks the credentials unless the session is locked. The failure
// reaching MaxAttempts starts the lockout; once it has elapsed the counter
// starts over.
func (s *Session) Login(user, password string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lockedUntil.IsZero() {
		if now.Before(s.lockedUntil) {
			return &LoginError{RetryIn: s.lockedUntil.Sub(now)}
		}
		s.lockedUntil = time.Time{}
		s.failures = 0
	}

	if s.creds.Check(user, password) {
		s.user = s.creds.User()
		s.failures = 0
		return nil
	}

	s.failures++
	if s.failures >= s.policy.MaxAttempts {
		s.lockedUntil = now.Add(s.policy.Lockout)
		return &LoginError{RetryIn: s.policy.Lockout}
	}
	return &LoginError{Remaining: s.policy.MaxAttempts - s.failures}
}

// LockedFor reports how long the lockout still lasts, or zero.
func (s *Session) LockedFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lockedUntil.IsZero() || !now.Before(s.lockedUntil) {
		return 0
	}
	return s.lockedUntil.Sub(now)
}

func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = ""
}

func (s *Session) IsAdmin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user != ""
}

// User is the logged-in admin identity, used as verifier and creator.
func (s *Session) User() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}
