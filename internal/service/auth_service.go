package service

import (
	"context"
	"log/slog"

	"github.com/authdash/internal/domain"
	"github.com/authdash/internal/validation"
)

// authService implements the AuthService interface
type authService struct {
	issuer   domain.TokenIssuer
	provider domain.OAuthProvider
	users    domain.UserDirectory
	logger   *slog.Logger

	// onLogin is called after every successful SSO login
	onLogin func(created bool)
}

// AuthOption configures the auth service
type AuthOption func(*authService)

// WithLoginObserver registers fn to be told about each successful SSO login
func WithLoginObserver(fn func(created bool)) AuthOption {
	return func(s *authService) {
		s.onLogin = fn
	}
}

// NewAuthService creates a new auth service
func NewAuthService(
	issuer domain.TokenIssuer,
	provider domain.OAuthProvider,
	users domain.UserDirectory,
	logger *slog.Logger,
	opts ...AuthOption,
) domain.AuthService {
	s := &authService{
		issuer:   issuer,
		provider: provider,
		users:    users,
		logger:   logger,
		onLogin:  func(bool) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthorizeURL returns the provider authorize URL
func (s *authService) AuthorizeURL() string {
	return s.provider.AuthorizeURL()
}

// VerifySSOCode completes an SSO login: code exchange, profile fetch,
// find-or-create and token issuance
func (s *authService) VerifySSOCode(ctx context.Context, code string) (*domain.SessionResponse, error) {
	if err := validation.ValidateCode(code); err != nil {
		return nil, err
	}

	accessToken, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}

	profile, err := s.provider.FetchProfile(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	user, created, err := s.users.FindOrCreateSSOUser(ctx, *profile)
	if err != nil {
		return nil, err
	}

	token, err := s.issuer.Issue(user.Username)
	if err != nil {
		return nil, err
	}

	s.onLogin(created)
	s.logger.InfoContext(ctx, "SSO login", "username", user.Username, "created", created)

	return &domain.SessionResponse{
		Profile: domain.NewUserDTO(user),
		Token:   token,
	}, nil
}

// VerifyToken validates a session token and re-issues it for the same user
func (s *authService) VerifyToken(ctx context.Context, token string) (*domain.SessionResponse, error) {
	dto, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	fresh, err := s.issuer.Issue(dto.Username)
	if err != nil {
		return nil, err
	}

	return &domain.SessionResponse{Profile: *dto, Token: fresh}, nil
}

// Authenticate resolves a bearer token to its user. A missing token is
// Unauthorized, a token failing verification is Forbidden, and no matching
// user is NotFound.
func (s *authService) Authenticate(ctx context.Context, token string) (*domain.UserDTO, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}

	username, err := s.issuer.Verify(token)
	if err != nil {
		s.logger.DebugContext(ctx, "token rejected", "error", err)
		return nil, &domain.DomainError{
			Code:    domain.ErrForbidden.Code,
			Message: domain.ErrForbidden.Message,
			Cause:   err,
		}
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	dto := domain.NewUserDTO(user)
	return &dto, nil
}

// Login is the declared username/password flow. It is not implemented.
func (s *authService) Login(ctx context.Context, req domain.LoginRequest) (*domain.SessionResponse, error) {
	s.logger.DebugContext(ctx, "password login attempted", "email", req.Email)
	return nil, &domain.DomainError{
		Code:    domain.ErrNotImplemented.Code,
		Message: "password login is not implemented",
	}
}
