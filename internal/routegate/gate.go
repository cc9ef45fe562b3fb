// Package routegate mounts client routes, holding private ones back until the
// session is authorized and sending unauthorized visitors to the login route.
package routegate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"

	"github.com/authdash/internal/constants"
	"github.com/authdash/internal/reactive"
	"github.com/authdash/internal/session"
)

// ErrNoRoute is returned by Open for a path with no declared route
var ErrNoRoute = errors.New("no route")

// Location is a parsed client location
type Location struct {
	Path  string
	Query url.Values
}

// ParseLocation splits raw into path and query. An empty path becomes "/".
func ParseLocation(raw string) Location {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{Path: raw, Query: url.Values{}}
	}
	path := u.Path
	if path == "" {
		path = constants.RouteRoot
	}
	return Location{Path: path, Query: u.Query()}
}

// String returns the location as path and query
func (l Location) String() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}

// View renders a route
type View interface {
	Render(ctx context.Context, w io.Writer, loc Location) error
}

// ViewFunc adapts a function to View
type ViewFunc func(ctx context.Context, w io.Writer, loc Location) error

func (f ViewFunc) Render(ctx context.Context, w io.Writer, loc Location) error {
	return f(ctx, w, loc)
}

// Effect is implemented by views that act once per mount, after they first
// become visible
type Effect interface {
	Effect(ctx context.Context, loc Location)
}

// Route declares one client route. Paths match exactly.
type Route struct {
	Path    string
	Private bool
	View    View
}

// Session is the part of the session client the gate consults
type Session interface {
	AuthState() *reactive.Cell[session.AuthState]
	CheckAuthorizationStatus(ctx context.Context) (string, bool)
	StorePreLoginPath(path string) error
}

// Gate mounts routes from a fixed table
type Gate struct {
	routes map[string]Route
	sess   Session
	nav    session.Navigator
	sched  Scheduler
	logger *slog.Logger
}

// Option configures a Gate
type Option func(*Gate)

// WithScheduler sets where status checks, effects and redirects run.
// The default is GoScheduler.
func WithScheduler(s Scheduler) Option {
	return func(g *Gate) { g.sched = s }
}

// WithLogger sets the gate logger
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// New creates a gate over routes. A later route replaces an earlier one with
// the same path.
func New(routes []Route, sess Session, nav session.Navigator, opts ...Option) *Gate {
	g := &Gate{
		routes: make(map[string]Route, len(routes)),
		sess:   sess,
		nav:    nav,
		sched:  GoScheduler{},
		logger: slog.Default(),
	}
	for _, r := range routes {
		g.routes[r.Path] = r
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Lookup returns the route declared for path
func (g *Gate) Lookup(path string) (Route, bool) {
	r, ok := g.routes[path]
	return r, ok
}

// Open mounts the route for raw. A private route checks the session at most
// once for this mount; the check, the view effect and any redirect run on the
// scheduler. Call Unmount when the location changes.
func (g *Gate) Open(ctx context.Context, raw string) (*Mount, error) {
	loc := ParseLocation(raw)
	route, ok := g.routes[loc.Path]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoRoute, loc.Path)
	}

	m := &Mount{gate: g, ctx: ctx, route: route, loc: loc}
	if !route.Private {
		m.visible = true
		m.scheduleEffect()
		return m, nil
	}

	m.stop = g.sess.AuthState().Watch(m.onAuthState)
	return m, nil
}

// Mount is one mounted route
type Mount struct {
	gate  *Gate
	ctx   context.Context
	route Route
	loc   Location
	stop  func()

	mu         sync.Mutex
	state      session.AuthState
	visible    bool
	checked    bool
	redirected bool
	effected   bool
	unmounted  bool
}

// Route returns the mounted route
func (m *Mount) Route() Route {
	return m.route
}

// Location returns the mounted location
func (m *Mount) Location() Location {
	return m.loc
}

// State returns the last authorization state a private mount observed
func (m *Mount) State() session.AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Visible reports whether Render would draw the view
func (m *Mount) Visible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible && !m.unmounted
}

// Render draws the view when visible and nothing otherwise
func (m *Mount) Render(w io.Writer) error {
	if !m.Visible() {
		return nil
	}
	return m.route.View.Render(m.ctx, w, m.loc)
}

// Unmount stops watching the session. Redirects and effects that have not
// run yet are dropped.
func (m *Mount) Unmount() {
	m.mu.Lock()
	m.unmounted = true
	stop := m.stop
	m.stop = nil
	m.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (m *Mount) alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.unmounted
}

func (m *Mount) onAuthState(state session.AuthState) {
	m.mu.Lock()
	if m.unmounted {
		m.mu.Unlock()
		return
	}
	m.state = state

	switch state {
	case session.Unresolved:
		m.visible = false
		if m.checked {
			m.mu.Unlock()
			return
		}
		m.checked = true
		m.mu.Unlock()
		m.gate.sched.Defer(func() {
			if m.alive() {
				m.gate.sess.CheckAuthorizationStatus(m.ctx)
			}
		})

	case session.Unauthorized:
		m.visible = false
		if m.redirected {
			m.mu.Unlock()
			return
		}
		m.redirected = true
		m.mu.Unlock()

		attempted := m.loc.String()
		if err := m.gate.sess.StorePreLoginPath(attempted); err != nil {
			m.gate.logger.WarnContext(m.ctx, "Could not remember private path", "path", attempted, "error", err)
		}
		m.gate.logger.DebugContext(m.ctx, "Private route requires login, redirecting", "path", attempted)
		m.gate.sched.Defer(func() {
			if m.alive() {
				m.gate.nav.Push(constants.RouteLogin)
			}
		})

	case session.Authorized:
		m.visible = true
		m.mu.Unlock()
		m.scheduleEffect()
	}
}

func (m *Mount) scheduleEffect() {
	effect, ok := m.route.View.(Effect)
	if !ok {
		return
	}
	m.mu.Lock()
	if m.effected {
		m.mu.Unlock()
		return
	}
	m.effected = true
	m.mu.Unlock()

	m.gate.sched.Defer(func() {
		if m.alive() {
			effect.Effect(m.ctx, m.loc)
		}
	})
}
