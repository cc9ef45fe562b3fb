package dashboard

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/authdash/internal/apipaths"
	"github.com/authdash/internal/constants"
	"github.com/authdash/internal/domain"
	"github.com/authdash/internal/routegate"
	"github.com/authdash/internal/session"
)

// Routes returns the dashboard route table
func Routes(client *session.Client, nav session.Navigator, apiRoot string) []routegate.Route {
	return []routegate.Route{
		{Path: constants.RouteRoot, View: routegate.ViewFunc(renderIndex)},
		{Path: constants.RouteLogin, View: &LoginView{SSOURL: SSOURL(apiRoot)}},
		{Path: constants.RouteSSOCallback, View: &SSOCallbackView{client: client, nav: nav}},
		{Path: constants.RouteDashboard, Private: true, View: &DashboardView{client: client}},
	}
}

// SSOURL returns the server endpoint that starts a GitHub login
func SSOURL(apiRoot string) string {
	root := strings.TrimSuffix(apiRoot, "/")
	return root + strings.TrimPrefix(apipaths.SSO, apipaths.Root)
}

func renderIndex(ctx context.Context, w io.Writer, loc routegate.Location) error {
	_, err := fmt.Fprintf(w, "authdash\n  %s\n  %s\n", constants.RouteLogin, constants.RouteDashboard)
	return err
}

// LoginView shows where to start the SSO flow
type LoginView struct {
	SSOURL string
}

func (v *LoginView) Render(ctx context.Context, w io.Writer, loc routegate.Location) error {
	_, err := fmt.Fprintf(w, "Login\n  Sign in with GitHub: %s\n  Then open %s?code=<code> with the code GitHub returns.\n",
		v.SSOURL, constants.RouteSSOCallback)
	return err
}

// SSOCallbackView completes an SSO login with the code in the query string
type SSOCallbackView struct {
	client *session.Client
	nav    session.Navigator

	mu  sync.Mutex
	err error
}

// Effect verifies the callback code. On success it navigates to the remembered
// pre-login path; on failure the error is shown inline.
func (v *SSOCallbackView) Effect(ctx context.Context, loc routegate.Location) {
	v.setErr(nil)
	code := loc.Query.Get("code")
	if code == "" {
		return
	}

	if err := v.client.VerifySSOCode(ctx, code); err != nil {
		v.setErr(err)
		return
	}
	v.nav.Push(v.client.PreLoginPath())
}

func (v *SSOCallbackView) setErr(err error) {
	v.mu.Lock()
	v.err = err
	v.mu.Unlock()
}

func (v *SSOCallbackView) Render(ctx context.Context, w io.Writer, loc routegate.Location) error {
	v.mu.Lock()
	err := v.err
	v.mu.Unlock()

	if err != nil {
		_, werr := fmt.Fprintf(w, "SSO Callback %s\n", domain.PublicMessage(err))
		return werr
	}
	if loc.Query.Get("code") == "" {
		_, werr := fmt.Fprintln(w, "SSO Callback missing code")
		return werr
	}
	_, werr := fmt.Fprintln(w, "SSO Callback")
	return werr
}

// DashboardView shows the signed-in profile
type DashboardView struct {
	client *session.Client
}

func (v *DashboardView) Render(ctx context.Context, w io.Writer, loc routegate.Location) error {
	p := v.client.Profile()
	if p == nil {
		_, err := fmt.Fprintln(w, "Dashboard\n  Loading profile...")
		return err
	}
	_, err := fmt.Fprintf(w, "Dashboard\n  Signed in as %s\n  Email: %s\n  Account: %d\n  Admin: %t\n  User ID: %s\n",
		p.Username, p.Email, p.AccountID, p.IsAdmin, p.ID)
	return err
}
