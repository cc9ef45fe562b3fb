package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/authdash/internal/constants"
	"github.com/authdash/internal/domain"
	"github.com/authdash/internal/httputil"
)

type userContextKey struct{}

// identityGate requires a bearer token naming an existing user. The resolved
// DTO is attached to the gin context and to the request context.
func (s *Server) identityGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := httputil.BearerToken(c.Request)
		if !ok {
			s.metrics.observeGate(constants.GateOutcomeMissingToken)
			s.handleServiceError(c, "identity gate", domain.ErrUnauthorized)
			return
		}

		user, err := s.authService.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			s.metrics.observeGate(gateOutcome(err))
			s.handleServiceError(c, "identity gate", err)
			return
		}

		s.metrics.observeGate(constants.GateOutcomeAllowed)
		c.Set(constants.ContextUserKey, *user)
		c.Request = c.Request.WithContext(WithUser(c.Request.Context(), *user))
		c.Next()
	}
}

func gateOutcome(err error) string {
	switch {
	case domain.IsTokenError(err):
		return constants.GateOutcomeInvalidToken
	case domain.IsNotFoundError(err):
		return constants.GateOutcomeUnknownUser
	default:
		return constants.GateOutcomeError
	}
}

// getUserFromContext extracts the authenticated user from context
func getUserFromContext(c *gin.Context) (domain.UserDTO, bool) {
	if user, exists := c.Get(constants.ContextUserKey); exists {
		if u, ok := user.(domain.UserDTO); ok {
			return u, true
		}
	}
	return domain.UserDTO{}, false
}

// WithUser returns a context carrying user
func WithUser(ctx context.Context, user domain.UserDTO) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the user attached by the identity gate
func UserFromContext(ctx context.Context) (domain.UserDTO, bool) {
	user, ok := ctx.Value(userContextKey{}).(domain.UserDTO)
	return user, ok
}
