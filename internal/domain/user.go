package domain

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

var (
	// ErrUserAlreadyExists is returned when trying to create a user with an existing username or email.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrUserNotFound is returned when looking up a non-existent user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when the username/password combination is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User represents a registered blog author or commenter.
type User struct {
	ID           int64  // Unique identifier
	Name         string // Display name
	Username     string // Login username
	Email        string // Contact address, stored lowercased
	PasswordHash string // bcrypt hash, never the plaintext
}

// Attributes returns the persisted column set of the user.
func (u *User) Attributes() map[string]any {
	return map[string]any{
		"id":       u.ID,
		"name":     u.Name,
		"username": u.Username,
		"email":    u.Email,
		"password": u.PasswordHash,
	}
}

// NewUser holds the caller-supplied fields for a user that has not been saved yet.
// Password is plaintext and is hashed by the repository on save.
type NewUser struct {
	Name     string
	Username string
	Email    string
	Password string
}

// Normalize trims surrounding whitespace and lowercases the email address.
// The password is left untouched.
func (n NewUser) Normalize() NewUser {
	n.Name = strings.TrimSpace(n.Name)
	n.Username = strings.TrimSpace(n.Username)
	n.Email = strings.ToLower(strings.TrimSpace(n.Email))

	return n
}

// Validate reports the first missing or malformed field as ErrValidation.
func (n NewUser) Validate() error {
	switch {
	case n.Name == "":
		return missing("name")
	case n.Username == "":
		return missing("username")
	case n.Email == "":
		return missing("email")
	case n.Password == "":
		return missing("password")
	}

	if strings.ContainsAny(n.Username, " \t\r\n") {
		return fmt.Errorf("%w: username must not contain whitespace", ErrValidation)
	}

	addr, err := mail.ParseAddress(n.Email)
	if err != nil || addr.Address != n.Email {
		return fmt.Errorf("%w: email %q is malformed", ErrValidation, n.Email)
	}

	return nil
}
