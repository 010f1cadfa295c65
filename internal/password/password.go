// Package password hashes and verifies user passwords with bcrypt.
//
// Hashes are salted by bcrypt itself and embed their cost, so Verify works on
// any bcrypt hash; Hash always uses Cost.
package password

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/mkrupp/homecase-blog/internal/domain"
)

// Cost is the bcrypt work factor applied to every newly stored password.
const Cost = bcrypt.DefaultCost

// MaxLength is the longest password bcrypt accepts, in bytes.
const MaxLength = 72

type result[T any] struct {
	val T
	err error
}

// run executes fn on its own goroutine so that a cancelled ctx releases the
// caller without waiting for the key schedule to finish.
func run[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	done := make(chan result[T], 1)

	go func() {
		val, err := fn()
		done <- result[T]{val: val, err: err}
	}()

	select {
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err() //nolint:wrapcheck
	case res := <-done:
		return res.val, res.err
	}
}

// Hash returns the bcrypt hash of plaintext at Cost.
// Empty passwords and passwords longer than MaxLength are rejected with ErrValidation.
func Hash(ctx context.Context, plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("%w: password is required", domain.ErrValidation)
	}

	if len(plaintext) > MaxLength {
		return "", fmt.Errorf("%w: password exceeds %d bytes", domain.ErrValidation, MaxLength)
	}

	return run(ctx, func() (string, error) {
		hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), Cost)
		if err != nil {
			return "", fmt.Errorf("generate hash: %w", err)
		}

		return string(hash), nil
	})
}

// Verify reports whether plaintext matches hash.
// A mismatch is not an error. A hash that bcrypt cannot parse yields ErrHashFormat.
func Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	if len(plaintext) > MaxLength {
		// Hash never stores such a password, but the hash itself must still parse.
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return false, errors.Join(domain.ErrHashFormat, err)
		}

		return false, nil
	}

	return run(ctx, func() (bool, error) {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))

		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, errors.Join(domain.ErrHashFormat, err)
		}
	})
}

// NeedsRehash reports whether hash was produced with a cost other than Cost.
func NeedsRehash(hash string) (bool, error) {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false, errors.Join(domain.ErrHashFormat, err)
	}

	return cost != Cost, nil
}
