// Package user defines the account model of the blog list service
// together with the helpers that manage its password credential.
package user

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordHashCost is the bcrypt cost used when none is configured.
const DefaultPasswordHashCost = 10

// User represents a registered account.
// It owns blogs by reference: Blogs keeps the blog IDs in creation order.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID.
	ID string `json:"id"`

	// Username is unique across all users.
	Username string `json:"username"`

	// Name is the display name.
	Name string `json:"name"`

	// PasswordHash is the salted bcrypt hash of the password. It is never serialized.
	PasswordHash []byte `json:"-"`

	// Blogs lists the IDs of the blogs created by the user.
	Blogs []string `json:"blogs"`
}

// SetPassword hashes the plaintext password and stores the hash on the user.
func (u *User) SetPassword(plaintext string, cost int) error {
	if cost == 0 {
		cost = DefaultPasswordHashCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return fmt.Errorf("in internal/user/user.go/SetPassword(): error while `bcrypt.GenerateFromPassword()` calling: %w", err)
	}
	u.PasswordHash = hash

	return nil
}

// IsPasswordMatch reports whether the plaintext password matches the stored hash.
func (u *User) IsPasswordMatch(plaintext string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}
