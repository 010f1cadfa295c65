package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mkrupp/homecase-blog/internal/domain"
	"github.com/mkrupp/homecase-blog/internal/infra/logging"
	"github.com/mkrupp/homecase-blog/internal/store"
)

// SQLPostRepository implements Repository on the posts table.
type SQLPostRepository struct {
	db  *store.DB
	log logging.Logger
}

var _ Repository = (*SQLPostRepository)(nil)

// SQLPostRepositoryFactory returns a RepositoryFactory producing SQLPostRepository instances.
func SQLPostRepositoryFactory() RepositoryFactory {
	return func(db *store.DB) Repository {
		return NewSQLPostRepository(db)
	}
}

// NewSQLPostRepository creates a post repository writing through db.
func NewSQLPostRepository(db *store.DB) *SQLPostRepository {
	return &SQLPostRepository{
		db:  db,
		log: logging.GetLogger("repo.post.sql_post_repository"),
	}
}

// Save implements Repository.Save.
func (r *SQLPostRepository) Save(ctx context.Context, scope *store.Scope, input domain.NewPost) (*domain.Post, error) {
	input = input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, err
	}

	post := domain.Post{
		Title:  input.Title,
		Body:   input.Body,
		Author: input.Author,
	}

	err := r.db.Run(ctx, scope, func(ctx context.Context, c store.Conn) error {
		if err := c.QueryRow(ctx, []any{&post.ID},
			"INSERT INTO posts (title, body, author) VALUES (?, ?, ?) RETURNING id",
			post.Title, post.Body, post.Author,
		); err != nil {
			return fmt.Errorf("insert post: %w", err)
		}

		r.log.DebugContext(ctx, "post saved", "id", post.ID, "author", post.Author)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &post, nil
}

// FindByID implements Repository.FindByID.
func (r *SQLPostRepository) FindByID(ctx context.Context, scope *store.Scope, id int64) (*domain.Post, error) {
	var post domain.Post

	err := r.db.Read(ctx, scope, func(ctx context.Context, c store.Conn) error {
		return c.QueryRow(ctx, []any{&post.ID, &post.Title, &post.Body, &post.Author},
			"SELECT id, title, body, author FROM posts WHERE id = ?", id)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrPostNotFound, err)
		}

		return nil, fmt.Errorf("query post: %w", err)
	}

	return &post, nil
}

// ListByAuthor implements Repository.ListByAuthor.
func (r *SQLPostRepository) ListByAuthor(ctx context.Context, scope *store.Scope, author int64) ([]domain.Post, error) {
	var posts []domain.Post

	err := r.db.Read(ctx, scope, func(ctx context.Context, c store.Conn) error {
		rows, err := c.Query(ctx, "SELECT id, title, body, author FROM posts WHERE author = ? ORDER BY id", author)
		if err != nil {
			return err
		}
		defer rows.Close() //nolint:errcheck

		for rows.Next() {
			var p domain.Post
			if err := rows.Scan(&p.ID, &p.Title, &p.Body, &p.Author); err != nil {
				return err //nolint:wrapcheck
			}

			posts = append(posts, p)
		}

		return rows.Err() //nolint:wrapcheck
	})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	return posts, nil
}

// Count implements Repository.Count.
func (r *SQLPostRepository) Count(ctx context.Context, scope *store.Scope) (int, error) {
	var n int

	err := r.db.Read(ctx, scope, func(ctx context.Context, c store.Conn) error {
		return c.QueryRow(ctx, []any{&n}, "SELECT COUNT(*) FROM posts")
	})
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}

	return n, nil
}
