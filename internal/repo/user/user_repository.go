package user

import (
	"context"

	"github.com/mkrupp/homecase-blog/internal/domain"
	"github.com/mkrupp/homecase-blog/internal/store"
)

// Repository defines the interface for user persistence.
// Every method takes the scope it participates in; a nil scope auto-commits.
type Repository interface {
	// Save validates and normalizes the input, hashes the password and
	// inserts the row. Returns ErrValidation for bad input and
	// ErrUserAlreadyExists if the username or email is taken.
	Save(ctx context.Context, scope *store.Scope, input domain.NewUser) (*domain.User, error)

	// FindByID returns ErrUserNotFound if no user has the given id.
	FindByID(ctx context.Context, scope *store.Scope, id int64) (*domain.User, error)

	// FindByUsername returns ErrUserNotFound if no user has the given username.
	FindByUsername(ctx context.Context, scope *store.Scope, username string) (*domain.User, error)

	// Count returns the number of users visible to the scope.
	Count(ctx context.Context, scope *store.Scope) (int, error)
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func(db *store.DB) Repository
