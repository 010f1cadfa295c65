package comment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mkrupp/homecase-blog/internal/domain"
	"github.com/mkrupp/homecase-blog/internal/infra/logging"
	"github.com/mkrupp/homecase-blog/internal/store"
)

const selectComment = "SELECT id, body, post_id, user_id, created_at, updated_at FROM comments"

// SQLCommentRepository implements Repository on the comments table.
// Timestamps are stored as unix microseconds.
type SQLCommentRepository struct {
	db  *store.DB
	log logging.Logger

	// Now is the clock used for created_at and updated_at.
	Now func() time.Time
}

var _ Repository = (*SQLCommentRepository)(nil)

// SQLCommentRepositoryFactory returns a RepositoryFactory producing SQLCommentRepository instances.
func SQLCommentRepositoryFactory() RepositoryFactory {
	return func(db *store.DB) Repository {
		return NewSQLCommentRepository(db)
	}
}

// NewSQLCommentRepository creates a comment repository writing through db,
// using the wall clock for timestamps.
func NewSQLCommentRepository(db *store.DB) *SQLCommentRepository {
	return &SQLCommentRepository{
		db:  db,
		log: logging.GetLogger("repo.comment.sql_comment_repository"),
		Now: time.Now,
	}
}

func (r *SQLCommentRepository) now() time.Time {
	return r.Now().UTC().Truncate(time.Microsecond)
}

// Save implements Repository.Save.
func (r *SQLCommentRepository) Save(ctx context.Context, scope *store.Scope, input domain.NewComment) (*domain.Comment, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	now := r.now()
	comment := domain.Comment{
		Body:      input.Body,
		PostID:    input.PostID,
		UserID:    input.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.db.Run(ctx, scope, func(ctx context.Context, c store.Conn) error {
		if err := c.QueryRow(ctx, []any{&comment.ID},
			"INSERT INTO comments (body, post_id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?) RETURNING id",
			comment.Body, comment.PostID, comment.UserID, now.UnixMicro(), now.UnixMicro(),
		); err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}

		r.log.DebugContext(ctx, "comment saved", "id", comment.ID, "post_id", comment.PostID, "user_id", comment.UserID)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &comment, nil
}

// UpdateBody implements Repository.UpdateBody. updated_at never moves
// backwards, even if the clock does.
func (r *SQLCommentRepository) UpdateBody(ctx context.Context, scope *store.Scope, id int64, body string) (*domain.Comment, error) {
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("%w: body is required", domain.ErrValidation)
	}

	var comment *domain.Comment

	err := r.db.Run(ctx, scope, func(ctx context.Context, c store.Conn) error {
		current, err := findOne(ctx, c, id)
		if err != nil {
			return err
		}

		updated := r.now()
		if updated.Before(current.UpdatedAt) {
			updated = current.UpdatedAt
		}

		if _, err := c.Exec(ctx, "UPDATE comments SET body = ?, updated_at = ? WHERE id = ?",
			body, updated.UnixMicro(), id,
		); err != nil {
			return fmt.Errorf("update comment: %w", err)
		}

		current.Body = body
		current.UpdatedAt = updated
		comment = current

		r.log.DebugContext(ctx, "comment updated", "id", id)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return comment, nil
}

// FindByID implements Repository.FindByID.
func (r *SQLCommentRepository) FindByID(ctx context.Context, scope *store.Scope, id int64) (*domain.Comment, error) {
	var comment *domain.Comment

	err := r.db.Read(ctx, scope, func(ctx context.Context, c store.Conn) (err error) {
		comment, err = findOne(ctx, c, id)

		return err
	})
	if err != nil {
		return nil, err
	}

	return comment, nil
}

func findOne(ctx context.Context, c store.Conn, id int64) (*domain.Comment, error) {
	var (
		comment          domain.Comment
		created, updated int64
	)

	err := c.QueryRow(ctx,
		[]any{&comment.ID, &comment.Body, &comment.PostID, &comment.UserID, &created, &updated},
		selectComment+" WHERE id = ?", id,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrCommentNotFound, err)
		}

		return nil, fmt.Errorf("query comment: %w", err)
	}

	comment.CreatedAt = time.UnixMicro(created).UTC()
	comment.UpdatedAt = time.UnixMicro(updated).UTC()

	return &comment, nil
}

// ListByPost implements Repository.ListByPost.
func (r *SQLCommentRepository) ListByPost(ctx context.Context, scope *store.Scope, postID int64) ([]domain.Comment, error) {
	var comments []domain.Comment

	err := r.db.Read(ctx, scope, func(ctx context.Context, c store.Conn) error {
		rows, err := c.Query(ctx, selectComment+" WHERE post_id = ? ORDER BY created_at, id", postID)
		if err != nil {
			return err
		}
		defer rows.Close() //nolint:errcheck

		for rows.Next() {
			var (
				comment          domain.Comment
				created, updated int64
			)

			if err := rows.Scan(&comment.ID, &comment.Body, &comment.PostID, &comment.UserID, &created, &updated); err != nil {
				return err //nolint:wrapcheck
			}

			comment.CreatedAt = time.UnixMicro(created).UTC()
			comment.UpdatedAt = time.UnixMicro(updated).UTC()
			comments = append(comments, comment)
		}

		return rows.Err() //nolint:wrapcheck
	})
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	return comments, nil
}

// Count implements Repository.Count.
func (r *SQLCommentRepository) Count(ctx context.Context, scope *store.Scope) (int, error) {
	var n int

	err := r.db.Read(ctx, scope, func(ctx context.Context, c store.Conn) error {
		return c.QueryRow(ctx, []any{&n}, "SELECT COUNT(*) FROM comments")
	})
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}

	return n, nil
}
