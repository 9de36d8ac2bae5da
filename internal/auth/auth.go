package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotConfigured      = errors.New("admin credentials not configured")
)

// Credentials guards the admin endpoints. The password is only ever held
// as a bcrypt hash.
type Credentials struct {
	Username     string
	PasswordHash string
}

// Enabled reports whether a password hash has been configured.
func (c Credentials) Enabled() bool {
	return strings.TrimSpace(c.PasswordHash) != ""
}

// Check verifies a username/password pair.
func (c Credentials) Check(username, password string) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1
	// always run bcrypt so timing does not reveal whether the username matched
	passOK := VerifyPassword(password, c.PasswordHash)
	if !userOK || !passOK {
		return ErrInvalidCredentials
	}
	return nil
}

// Validate checks that the configured hash is a usable bcrypt hash.
func (c Credentials) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.Username == "" {
		return fmt.Errorf("auth: admin username must not be empty")
	}
	if _, err := bcrypt.Cost([]byte(c.PasswordHash)); err != nil {
		return fmt.Errorf("auth: invalid admin password hash: %w", err)
	}
	return nil
}

// GeneratePassword generates a secure random password.
func GeneratePassword() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes)[:22], nil
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against a hash
func VerifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
