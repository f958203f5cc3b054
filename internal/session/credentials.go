// Package session holds the admin credentials, the per-browser login state
// with its lockout policy, and the token store that maps cookies to sessions.
package session

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Credentials is the single admin account.
type Credentials struct {
	user string
	hash []byte
}

// NewCredentials checks that hash is a bcrypt hash.
func NewCredentials(user, hash string) (Credentials, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return Credentials{}, errors.New("admin user is empty")
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return Credentials{}, fmt.Errorf("admin password hash: %w", err)
	}
	return Credentials{user: user, hash: []byte(hash)}, nil
}

// HashPassword returns a bcrypt hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c Credentials) User() string { return c.user }

// Check compares both fields. The password hash is always evaluated so a
// wrong username takes as long as a wrong password.
func (c Credentials) Check(user, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.user)) == 1
	passOK := bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil
	return userOK && passOK
}
