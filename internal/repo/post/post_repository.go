package post

import (
	"context"

	"github.com/mkrupp/homecase-blog/internal/domain"
	"github.com/mkrupp/homecase-blog/internal/store"
)

// Repository defines the interface for post persistence.
type Repository interface {
	// Save inserts a post. Returns ErrValidation for bad input and
	// ErrForeignKey if the author does not exist.
	Save(ctx context.Context, scope *store.Scope, input domain.NewPost) (*domain.Post, error)

	// FindByID returns ErrPostNotFound if no post has the given id.
	FindByID(ctx context.Context, scope *store.Scope, id int64) (*domain.Post, error)

	// ListByAuthor returns the author's posts ordered by id.
	ListByAuthor(ctx context.Context, scope *store.Scope, author int64) ([]domain.Post, error)

	// Count returns the number of posts visible to the scope.
	Count(ctx context.Context, scope *store.Scope) (int, error)
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func(db *store.DB) Repository
