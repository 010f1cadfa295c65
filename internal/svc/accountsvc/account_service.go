// Package accountsvc registers users and checks their credentials on top of
// the user repository.
package accountsvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkrupp/homecase-blog/internal/domain"
	"github.com/mkrupp/homecase-blog/internal/infra/logging"
	"github.com/mkrupp/homecase-blog/internal/password"
	"github.com/mkrupp/homecase-blog/internal/repo/user"
	"github.com/mkrupp/homecase-blog/internal/store"
)

// AccountService provides user registration and authentication.
type AccountService struct {
	UserRepo user.Repository
	Log      logging.Logger
}

// NewAccountService creates an AccountService whose repository is built from db.
func NewAccountService(db *store.DB, repoFactory user.RepositoryFactory) *AccountService {
	return &AccountService{
		UserRepo: repoFactory(db),
		Log:      logging.GetLogger("svc.accountsvc.account_service"),
	}
}

// RegisterUser creates a new user account inside scope.
// The password is hashed by the repository before storage.
func (s *AccountService) RegisterUser(ctx context.Context, scope *store.Scope, input domain.NewUser) (_ *domain.User, err error) {
	log := s.Log.With(logging.Group("user", "username", input.Username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "register user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}()

	u, err := s.UserRepo.Save(ctx, scope, input)
	if err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}

	return u, nil
}

// Authenticate returns the user whose username and password match.
// An unknown username and a wrong password both yield ErrInvalidCredentials.
// A stored value that is not a bcrypt hash yields ErrHashFormat.
func (s *AccountService) Authenticate(ctx context.Context, scope *store.Scope, username, plaintext string) (_ *domain.User, err error) {
	log := s.Log.With(logging.Group("user", "username", username))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "authentication failed", "error", err)
		} else {
			log.DebugContext(ctx, "authentication successful")
		}
	}()

	u, err := s.UserRepo.FindByUsername(ctx, scope, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, errors.Join(domain.ErrInvalidCredentials, err)
		}

		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := password.Verify(ctx, plaintext, u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	if stale, err := password.NeedsRehash(u.PasswordHash); err == nil && stale {
		log.InfoContext(ctx, "password hash uses an outdated cost")
	}

	return u, nil
}
