package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/authdash/internal/domain"
)

// Auth endpoints:
//   - GET  /api/sso         - Redirect to the GitHub authorize page
//   - POST /api/sso/verify  - Exchange a GitHub code for a session
//   - POST /api/auth/verify - Validate a session token and re-issue it
//   - POST /api/login       - Password login placeholder
//   - GET  /api/me          - Current user (behind the identity gate)

// ssoRedirect sends the browser to the provider authorize URL
func (s *Server) ssoRedirect(c *gin.Context) {
	c.Redirect(http.StatusFound, s.authService.AuthorizeURL())
}

// verifySSOCode completes the SSO login started by ssoRedirect
func (s *Server) verifySSOCode(c *gin.Context) {
	var req domain.SSOVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.WarnContext(c.Request.Context(), "invalid sso verify request", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format"})
		return
	}

	resp, err := s.authService.VerifySSOCode(c.Request.Context(), req.Code)
	if err != nil {
		s.handleServiceError(c, "verify sso code", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// verifyToken validates the token in the body and returns a fresh session
func (s *Server) verifyToken(c *gin.Context) {
	var req domain.TokenVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.WarnContext(c.Request.Context(), "invalid token verify request", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format"})
		return
	}

	resp, err := s.authService.VerifyToken(c.Request.Context(), req.Token)
	if err != nil {
		s.handleServiceError(c, "verify token", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// login is the password flow, which is declared but not implemented
func (s *Server) login(c *gin.Context) {
	var req domain.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format"})
		return
	}

	resp, err := s.authService.Login(c.Request.Context(), req)
	if err != nil {
		s.handleServiceError(c, "login", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
