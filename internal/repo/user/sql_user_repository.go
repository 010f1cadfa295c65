package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mkrupp/homecase-blog/internal/domain"
	"github.com/mkrupp/homecase-blog/internal/infra/logging"
	"github.com/mkrupp/homecase-blog/internal/password"
	"github.com/mkrupp/homecase-blog/internal/store"
)

// SQLUserRepository implements Repository on the users table.
type SQLUserRepository struct {
	db  *store.DB
	log logging.Logger
}

var _ Repository = (*SQLUserRepository)(nil)

// SQLUserRepositoryFactory returns a RepositoryFactory producing SQLUserRepository instances.
func SQLUserRepositoryFactory() RepositoryFactory {
	return func(db *store.DB) Repository {
		return NewSQLUserRepository(db)
	}
}

// NewSQLUserRepository creates a user repository writing through db.
func NewSQLUserRepository(db *store.DB) *SQLUserRepository {
	return &SQLUserRepository{
		db:  db,
		log: logging.GetLogger("repo.user.sql_user_repository"),
	}
}

// Save implements Repository.Save. The plaintext password never reaches the database.
func (r *SQLUserRepository) Save(ctx context.Context, scope *store.Scope, input domain.NewUser) (_ *domain.User, err error) {
	input = input.Normalize()

	log := r.log.With(logging.Group("user", "username", input.Username))

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "save user failed", "error", err)
		}
	}()

	if err := input.Validate(); err != nil {
		return nil, err
	}

	hash, err := password.Hash(ctx, input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		Name:         input.Name,
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
	}

	err = r.db.Run(ctx, scope, func(ctx context.Context, c store.Conn) error {
		err := c.QueryRow(ctx, []any{&user.ID},
			"INSERT INTO users (name, username, email, password) VALUES (?, ?, ?, ?) RETURNING id",
			user.Name, user.Username, user.Email, user.PasswordHash,
		)
		if err != nil {
			if errors.Is(err, store.ErrUniqueViolation) {
				err = errors.Join(domain.ErrUserAlreadyExists, err)
			}

			return fmt.Errorf("insert user: %w", err)
		}

		log.DebugContext(ctx, "user saved", "id", user.ID)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// FindByID implements Repository.FindByID.
func (r *SQLUserRepository) FindByID(ctx context.Context, scope *store.Scope, id int64) (*domain.User, error) {
	return r.findOne(ctx, scope, "id = ?", id)
}

// FindByUsername implements Repository.FindByUsername.
func (r *SQLUserRepository) FindByUsername(ctx context.Context, scope *store.Scope, username string) (*domain.User, error) {
	return r.findOne(ctx, scope, "username = ?", username)
}

func (r *SQLUserRepository) findOne(ctx context.Context, scope *store.Scope, where string, arg any) (*domain.User, error) {
	var user domain.User

	err := r.db.Read(ctx, scope, func(ctx context.Context, c store.Conn) error {
		return c.QueryRow(ctx,
			[]any{&user.ID, &user.Name, &user.Username, &user.Email, &user.PasswordHash},
			"SELECT id, name, username, email, password FROM users WHERE "+where, arg,
		)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(domain.ErrUserNotFound, err)
		}

		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// Count implements Repository.Count.
func (r *SQLUserRepository) Count(ctx context.Context, scope *store.Scope) (int, error) {
	var n int

	err := r.db.Read(ctx, scope, func(ctx context.Context, c store.Conn) error {
		return c.QueryRow(ctx, []any{&n}, "SELECT COUNT(*) FROM users")
	})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return n, nil
}
