// Package hash wraps bcrypt password hashing.
package hash

import "golang.org/x/crypto/bcrypt"

// Password hashes a plaintext password with bcrypt at the default cost.
func Password(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether password matches the stored bcrypt hash.
func Verify(storedHash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}

// Bcrypt implements the user service's Hasher interface.
type Bcrypt struct{}

func (Bcrypt) Password(password string) (string, error) { return Password(password) }
func (Bcrypt) Verify(storedHash, password string) bool  { return Verify(storedHash, password) }
