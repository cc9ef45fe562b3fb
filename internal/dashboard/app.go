// Package dashboard is the terminal front end of authdash: its route table,
// its views, and a driver that follows navigation the way a browser would.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/authdash/internal/routegate"
	"github.com/authdash/internal/session"
)

// DefaultMaxHops bounds how many navigations one Open follows
const DefaultMaxHops = 8

// ErrTooManyHops is returned when navigation does not settle
var ErrTooManyHops = errors.New("too many navigations")

// App drives the route gate over a session client
type App struct {
	client  *session.Client
	history *session.History
	gate    *routegate.Gate
	sched   *routegate.QueueScheduler
	maxHops int
	logger  *slog.Logger
}

// Option configures an App
type Option func(*App)

// WithMaxHops sets the navigation limit for Open
func WithMaxHops(n int) Option {
	return func(a *App) { a.maxHops = n }
}

// WithLogger sets the app logger
func WithLogger(l *slog.Logger) Option {
	return func(a *App) { a.logger = l }
}

// New wires the dashboard routes to client. history must be the navigator
// the client was created with.
func New(client *session.Client, history *session.History, apiRoot string, opts ...Option) *App {
	a := &App{
		client:  client,
		history: history,
		sched:   routegate.NewQueueScheduler(),
		maxHops: DefaultMaxHops,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.gate = routegate.New(Routes(client, history, apiRoot), client, history,
		routegate.WithScheduler(a.sched),
		routegate.WithLogger(a.logger),
	)
	return a
}

// Client returns the session client
func (a *App) Client() *session.Client {
	return a.client
}

// History returns the navigator
func (a *App) History() *session.History {
	return a.history
}

// Open navigates to path, follows redirects until a route settles, renders it
// to w and returns the final location.
func (a *App) Open(ctx context.Context, path string, w io.Writer) (string, error) {
	a.history.Push(path)

	var moved atomic.Bool
	stop := a.history.Location().Subscribe(func(string) { moved.Store(true) })
	defer stop()

	for hop := 0; hop <= a.maxHops; hop++ {
		current := a.history.Current()
		mount, err := a.gate.Open(ctx, current)
		if err != nil {
			return current, err
		}

		moved.Store(false)
		a.sched.Flush()
		if moved.Load() {
			a.logger.DebugContext(ctx, "Navigated", "from", current, "to", a.history.Current())
			mount.Unmount()
			continue
		}

		err = mount.Render(w)
		mount.Unmount()
		return current, err
	}
	return a.history.Current(), fmt.Errorf("%w from %s", ErrTooManyHops, path)
}
