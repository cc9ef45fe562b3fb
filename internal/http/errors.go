package http

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/authdash/internal/domain"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// handleServiceError maps a service error to its status and writes the
// public message. Server-side failures are logged at error level.
func (s *Server) handleServiceError(c *gin.Context, operation string, err error) {
	status := domain.HTTPStatus(err)
	ctx := c.Request.Context()

	if status >= 500 {
		s.logger.ErrorContext(ctx, "request failed", "operation", operation, "status", status, "error", err)
	} else {
		s.logger.WarnContext(ctx, "request rejected", "operation", operation, "status", status, "error", err)
	}

	resp := ErrorResponse{Error: domain.PublicMessage(err)}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		resp.Details = domainErr.Code
	}
	c.AbortWithStatusJSON(status, resp)
}
