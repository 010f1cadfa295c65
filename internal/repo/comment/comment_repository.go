package comment

import (
	"context"

	"github.com/mkrupp/homecase-blog/internal/domain"
	"github.com/mkrupp/homecase-blog/internal/store"
)

// Repository defines the interface for comment persistence.
// Timestamps are always assigned by the repository.
type Repository interface {
	// Save inserts a comment with created_at = updated_at = now. Returns
	// ErrValidation for bad input and ErrForeignKey if the post or user
	// does not exist.
	Save(ctx context.Context, scope *store.Scope, input domain.NewComment) (*domain.Comment, error)

	// UpdateBody replaces the body and bumps updated_at.
	UpdateBody(ctx context.Context, scope *store.Scope, id int64, body string) (*domain.Comment, error)

	// FindByID returns ErrCommentNotFound if no comment has the given id.
	FindByID(ctx context.Context, scope *store.Scope, id int64) (*domain.Comment, error)

	// ListByPost returns the comments on a post, oldest first.
	ListByPost(ctx context.Context, scope *store.Scope, postID int64) ([]domain.Comment, error)

	// Count returns the number of comments visible to the scope.
	Count(ctx context.Context, scope *store.Scope) (int, error)
}

// RepositoryFactory is a function that creates a new Repository instance.
type RepositoryFactory func(db *store.DB) Repository
