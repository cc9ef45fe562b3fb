package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"

	"github.com/authdash/internal/db"
	"github.com/authdash/internal/domain"
	"github.com/authdash/internal/validation"
)

// userService implements the UserDirectory interface
type userService struct {
	database *db.DB
	logger   *slog.Logger
}

// NewUserService creates a new user directory backed by the database
func NewUserService(database *db.DB, logger *slog.Logger) domain.UserDirectory {
	return &userService{
		database: database,
		logger:   logger,
	}
}

// FindByAccountID looks up the SSO user for a provider account
func (s *userService) FindByAccountID(ctx context.Context, accountID int64) (*db.User, error) {
	user, err := s.database.GetUserByAccountID(ctx, accountID, true)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapUserNotFound("account "+strconv.FormatInt(accountID, 10), err)
		}
		return nil, domain.WrapDatabaseOperation("get user by account", err)
	}
	return user, nil
}

// FindByUsername looks up a user by the name carried in a session token
func (s *userService) FindByUsername(ctx context.Context, username string) (*db.User, error) {
	user, err := s.database.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapUserNotFound(username, err)
		}
		return nil, domain.WrapDatabaseOperation("get user by username", err)
	}
	return user, nil
}

// CreateSSOUser inserts a new non-admin SSO user
func (s *userService) CreateSSOUser(ctx context.Context, req domain.CreateSSOUserRequest) (*db.User, error) {
	if err := validation.ValidateProviderLogin(req.Username); err != nil {
		return nil, err
	}
	if err := validation.ValidateAccountID(req.AccountID); err != nil {
		return nil, err
	}

	user := db.NewSSOUser(req.AccountID, req.Username, req.Email)
	if err := s.database.CreateUser(ctx, user); err != nil {
		return nil, domain.WrapDatabaseOperation("create user", err)
	}

	s.logger.InfoContext(ctx, "SSO user created", "userID", user.ID, "username", user.Username, "accountID", user.AccountID)
	return user, nil
}

// FindOrCreateSSOUser returns the SSO user for profile, creating it on first
// login. created reports whether a new record was inserted.
func (s *userService) FindOrCreateSSOUser(ctx context.Context, profile domain.ProviderProfile) (*db.User, bool, error) {
	user, err := s.FindByAccountID(ctx, profile.ID)
	if err == nil {
		return user, false, nil
	}
	if !domain.IsNotFoundError(err) {
		return nil, false, err
	}

	user, err = s.CreateSSOUser(ctx, domain.CreateSSOUserRequest{
		AccountID: profile.ID,
		Username:  profile.Login,
		Email:     profile.Email,
	})
	if err == nil {
		return user, true, nil
	}

	// A concurrent first login for the same account won the insert
	if db.IsUniqueConstraintError(errors.Unwrap(err)) {
		s.logger.DebugContext(ctx, "SSO user created concurrently, re-reading", "accountID", profile.ID)
		user, err = s.FindByAccountID(ctx, profile.ID)
		if err != nil {
			return nil, false, err
		}
		return user, false, nil
	}
	return nil, false, err
}
