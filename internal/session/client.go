package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/authdash/internal/constants"
	"github.com/authdash/internal/domain"
	"github.com/authdash/internal/reactive"
	"github.com/authdash/internal/validation"
)

// Client owns the session of one client process: the authorization flag,
// the profile and the token, each held in an observable cell. Create one per
// process with New.
type Client struct {
	api      *API
	storage  Storage
	nav      Navigator
	logger   *slog.Logger
	lifetime time.Duration
	now      func() time.Time

	flag    *reactive.Cell[AuthState]
	profile *reactive.Cell[*domain.UserDTO]
	token   *reactive.Cell[string]

	mu           sync.Mutex
	preLoginPath string

	status singleflight.Group
}

// Option configures a Client
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	logger     *slog.Logger
	lifetime   time.Duration
	now        func() time.Time
}

// WithHTTPClient sets the client used for API calls
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithLogger sets the client logger
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithTokenLifetime sets the server token lifetime the refresh timer is derived from
func WithTokenLifetime(d time.Duration) Option {
	return func(o *clientOptions) { o.lifetime = d }
}

// WithClock overrides the time source used for cache-busting navigation
func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) { o.now = now }
}

// New creates a session client talking to apiRoot
func New(apiRoot string, storage Storage, nav Navigator, opts ...Option) *Client {
	o := clientOptions{
		logger:   slog.Default(),
		lifetime: constants.DefaultTokenLifetime,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if nav == nil {
		nav = NewHistory(constants.RouteRoot)
	}

	c := &Client{
		storage:  storage,
		nav:      nav,
		logger:   o.logger,
		lifetime: o.lifetime,
		now:      o.now,
		flag:     reactive.New(Unresolved),
		token:    reactive.New(""),
	}
	c.profile = reactive.New[*domain.UserDTO](nil, reactive.WithChangeCallback(func(p *domain.UserDTO) {
		if p != nil {
			c.logger.Debug("Current user", "username", p.Username, "id", p.ID)
		}
	}))
	c.api = NewAPI(apiRoot, o.httpClient, c, o.logger)
	return c
}

// API returns the request helper bound to this session
func (c *Client) API() *API {
	return c.api
}

// IsAuthorized returns the current flag without contacting the server
func (c *Client) IsAuthorized() AuthState {
	return c.flag.Get()
}

// AuthState exposes the authorization flag cell
func (c *Client) AuthState() *reactive.Cell[AuthState] {
	return c.flag
}

// Profile returns the cached profile, nil when signed out
func (c *Client) Profile() *domain.UserDTO {
	return c.profile.Get()
}

// ProfileState exposes the profile cell
func (c *Client) ProfileState() *reactive.Cell[*domain.UserDTO] {
	return c.profile
}

// TokenState exposes the token cell
func (c *Client) TokenState() *reactive.Cell[string] {
	return c.token
}

func (c *Client) setIsAuthorized(state AuthState) {
	c.flag.Set(state)
}

func (c *Client) setSession(resp *domain.SessionResponse) error {
	if err := c.SetToken(resp.Token); err != nil {
		return err
	}
	c.setIsAuthorized(Authorized)
	profile := resp.Profile
	c.profile.Set(&profile)
	return nil
}

// Login signs in with a password. On failure the flag resolves Unauthorized
// and the server error is returned.
func (c *Client) Login(ctx context.Context, email, password string) error {
	resp, err := c.api.Login(ctx, email, password)
	if err != nil {
		c.setIsAuthorized(Unauthorized)
		return err
	}
	return c.setSession(resp)
}

// VerifySSOCode completes an SSO login with the code from the callback
func (c *Client) VerifySSOCode(ctx context.Context, code string) error {
	resp, err := c.api.VerifySSOCode(ctx, code)
	if err != nil {
		c.setIsAuthorized(Unauthorized)
		return err
	}
	return c.setSession(resp)
}

// Logout ends the session locally. The server keeps no session state.
func (c *Client) Logout() error {
	return c.ClearToken()
}

// CheckAuthorizationStatus returns a server-confirmed token. Once the flag is
// resolved the cached answer is returned without a network call. Without a
// stored token the flag resolves Unauthorized locally. A failed refresh
// resolves Unauthorized but keeps the stored token, so a restart can retry
// without a new login. Concurrent unresolved callers share one refresh.
func (c *Client) CheckAuthorizationStatus(ctx context.Context) (string, bool) {
	switch c.flag.Get() {
	case Authorized:
		return c.Token(), true
	case Unauthorized:
		return "", false
	}

	// The shared check outlives any one caller's cancellation
	detached := context.WithoutCancel(ctx)
	v, _, _ := c.status.Do("status", func() (interface{}, error) {
		// Another caller may have resolved the flag while we waited
		switch c.flag.Get() {
		case Authorized:
			return c.Token(), nil
		case Unauthorized:
			return "", nil
		}

		if c.Token() == "" {
			c.setIsAuthorized(Unauthorized)
			return "", nil
		}

		fresh, err := c.RefreshToken(detached)
		if err != nil {
			c.setIsAuthorized(Unauthorized)
			return "", nil
		}

		c.setIsAuthorized(Authorized)
		return fresh, nil
	})

	tok, _ := v.(string)
	return tok, tok != ""
}

// RefreshToken exchanges the current token for a fresh one and updates the
// profile. Storage is left untouched on failure.
func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	current := c.Token()
	if current == "" {
		return "", domain.ErrUnauthorized
	}

	resp, err := c.api.VerifyToken(ctx, current)
	if err != nil {
		c.logger.WarnContext(ctx, "Got error from refresh", "error", err)
		return "", err
	}

	if err := c.SetToken(resp.Token); err != nil {
		return "", err
	}
	profile := resp.Profile
	c.profile.Set(&profile)
	return resp.Token, nil
}

// Token returns the current token, hydrating it from storage on first use.
// No validity check is made.
func (c *Client) Token() string {
	if tok := c.token.Get(); tok != "" {
		return tok
	}
	cached, _ := c.storage.Get(constants.TokenCacheKey)
	c.token.Set(cached)
	return cached
}

// SetToken stores token durably and in memory
func (c *Client) SetToken(token string) error {
	if err := c.storage.Set(constants.TokenCacheKey, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	c.token.Set(token)
	return nil
}

// ClearToken signs out: it removes the stored token and pre-login path,
// clears the profile, and forces a fresh navigation to the login view.
func (c *Client) ClearToken() error {
	var firstErr error
	for _, key := range []string{constants.TokenCacheKey, constants.PreLoginPathKey} {
		if err := c.storage.Remove(key); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("remove %s: %w", key, err)
		}
	}

	c.mu.Lock()
	c.preLoginPath = ""
	c.mu.Unlock()

	c.token.Set("")
	c.profile.Set(nil)
	c.setIsAuthorized(Unauthorized)

	// Timestamp defeats any cached login view
	c.nav.Push(fmt.Sprintf("%s?_=%d", constants.RouteLogin, c.now().UnixMilli()))
	c.nav.Reload()
	return firstErr
}

// StorePreLoginPath remembers the private path to return to after login.
// Paths that leave the site are ignored.
func (c *Client) StorePreLoginPath(path string) error {
	if err := validation.ValidateReturnPath(path); err != nil {
		c.logger.Warn("Ignoring pre-login path", "path", path, "error", err)
		return err
	}

	c.mu.Lock()
	c.preLoginPath = path
	c.mu.Unlock()

	if err := c.storage.Set(constants.PreLoginPathKey, path); err != nil {
		return fmt.Errorf("store pre-login path: %w", err)
	}
	return nil
}

// PreLoginPath returns where to go after login: the remembered path, the
// stored one from a previous run, or the root path
func (c *Client) PreLoginPath() string {
	c.mu.Lock()
	path := c.preLoginPath
	c.mu.Unlock()
	if path != "" {
		return path
	}

	if cached, ok := c.storage.Get(constants.PreLoginPathKey); ok && cached != "" {
		return cached
	}
	return constants.DefaultPreLoginPath
}

// UseIsAuthorized calls render with the current flag and on every change.
// With checkIfUnresolved, an Unresolved flag triggers a background status
// check. The returned function stops watching.
func (c *Client) UseIsAuthorized(ctx context.Context, checkIfUnresolved bool, render func(AuthState)) func() {
	return c.flag.Watch(func(state AuthState) {
		render(state)
		if checkIfUnresolved && state == Unresolved {
			go c.CheckAuthorizationStatus(ctx)
		}
	})
}

// UseProfile calls render with the current profile and on every change
func (c *Client) UseProfile(render func(*domain.UserDTO)) func() {
	return c.profile.Watch(render)
}
