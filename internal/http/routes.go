package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/authdash/internal/apipaths"
)

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Health check endpoint (no auth required)
	s.engine.GET(apipaths.Health, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "authdash",
		})
	})

	s.engine.GET(apipaths.Metrics, gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := s.engine.Group(apipaths.Root)

	// Login flows, unauthenticated but rate limited per client
	public := api.Group("")
	public.Use(s.rateLimitMiddleware())
	{
		public.GET(relative(apipaths.SSO), s.ssoRedirect)
		public.POST(relative(apipaths.SSOVerify), s.verifySSOCode)
		public.POST(relative(apipaths.Login), s.login)
	}

	// Session checks run on every client start and are not login attempts
	api.POST(relative(apipaths.AuthVerify), s.verifyToken)

	// Protected routes
	protected := api.Group("")
	protected.Use(s.identityGate())
	{
		protected.GET(relative(apipaths.Me), s.getCurrentUser)
	}

	s.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found"})
	})
}

// relative strips the API root so paths can be registered on the /api group
func relative(path string) string {
	return strings.TrimPrefix(path, apipaths.Root)
}

// getCurrentUser returns the user the identity gate attached to the request
func (s *Server) getCurrentUser(c *gin.Context) {
	user, exists := getUserFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "Not authenticated",
			Details: "Please login with GitHub to continue",
		})
		return
	}

	c.JSON(http.StatusOK, user)
}
