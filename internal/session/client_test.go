package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/authdash/internal/constants"
	"github.com/authdash/internal/domain"
)

var testProfile = domain.UserDTO{ID: "user-1", Username: "alice", AccountID: 42, Email: "a@x.com"}

// fakeAPI stands in for the authdash server and counts verify calls
type fakeAPI struct {
	*httptest.Server

	verifies   atomic.Int32
	issued     atomic.Int32
	failVerify atomic.Bool
	// gate, when set, blocks verify until closed
	gate chan struct{}
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sso/verify", func(w http.ResponseWriter, r *http.Request) {
		var req domain.SSOVerifyRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Code != "good-code" {
			writeJSON(w, http.StatusNotAcceptable, map[string]string{"error": "error during authentication: exchange code", "details": "AUTH_ERROR"})
			return
		}
		writeJSON(w, http.StatusOK, domain.SessionResponse{Profile: testProfile, Token: f.nextToken()})
	})
	mux.HandleFunc("POST /api/auth/verify", func(w http.ResponseWriter, r *http.Request) {
		f.verifies.Add(1)
		if f.gate != nil {
			<-f.gate
		}
		var req domain.TokenVerifyRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if r.Header.Get("Authorization") != "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "verify must be unauthenticated"})
			return
		}
		if f.failVerify.Load() || req.Token == "" {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "token is invalid or expired"})
			return
		}
		writeJSON(w, http.StatusOK, domain.SessionResponse{Profile: testProfile, Token: f.nextToken()})
	})
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "password login is not implemented"})
	})
	mux.HandleFunc("GET /api/me", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer tok-") {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no bearer token provided"})
			return
		}
		writeJSON(w, http.StatusOK, testProfile)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAPI) nextToken() string {
	return fmt.Sprintf("tok-%d", f.issued.Add(1))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, f *fakeAPI, storage Storage) (*Client, *History) {
	t.Helper()
	if storage == nil {
		storage = NewMemoryStorage()
	}
	history := NewHistory(constants.RouteRoot)
	c := New(f.URL+"/api", storage, history,
		WithHTTPClient(f.Client()),
		WithLogger(quietLogger()),
		WithClock(func() time.Time { return time.UnixMilli(1_700_000_000_123) }),
	)
	return c, history
}

func TestVerifySSOCode_Success(t *testing.T) {
	f := newFakeAPI(t)
	storage := NewMemoryStorage()
	c, _ := newTestClient(t, f, storage)

	if err := c.VerifySSOCode(context.Background(), "good-code"); err != nil {
		t.Fatalf("VerifySSOCode() error = %v", err)
	}
	if c.IsAuthorized() != Authorized {
		t.Errorf("Expected Authorized, got %v", c.IsAuthorized())
	}
	if c.Token() != "tok-1" {
		t.Errorf("Expected token tok-1, got %q", c.Token())
	}
	if stored, _ := storage.Get(constants.TokenCacheKey); stored != "tok-1" {
		t.Errorf("Expected durable token tok-1, got %q", stored)
	}
	if p := c.Profile(); p == nil || *p != testProfile {
		t.Errorf("Expected profile %+v, got %+v", testProfile, p)
	}
}

func TestVerifySSOCode_Failure(t *testing.T) {
	f := newFakeAPI(t)
	c, _ := newTestClient(t, f, nil)

	err := c.VerifySSOCode(context.Background(), "bad-code")
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !domain.IsTransportError(err) {
		t.Errorf("Expected transport error, got %v", err)
	}
	if !strings.Contains(domain.PublicMessage(err), "error during authentication") {
		t.Errorf("Expected server message in error, got %q", domain.PublicMessage(err))
	}
	if c.IsAuthorized() != Unauthorized {
		t.Errorf("Expected Unauthorized, got %v", c.IsAuthorized())
	}
}

func TestLogin_NotImplemented(t *testing.T) {
	f := newFakeAPI(t)
	c, _ := newTestClient(t, f, nil)

	err := c.Login(context.Background(), "a@x.com", "pw")
	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) || !strings.Contains(domainErr.Message, "501") {
		t.Errorf("Expected 501 transport error, got %v", err)
	}
	if c.IsAuthorized() != Unauthorized {
		t.Errorf("Expected Unauthorized, got %v", c.IsAuthorized())
	}
}

func TestCheckAuthorizationStatus_NoTokenSkipsNetwork(t *testing.T) {
	f := newFakeAPI(t)
	c, _ := newTestClient(t, f, nil)

	for i := 0; i < 3; i++ {
		if tok, ok := c.CheckAuthorizationStatus(context.Background()); ok || tok != "" {
			t.Errorf("Expected (\"\", false), got (%q, %v)", tok, ok)
		}
	}
	if c.IsAuthorized() != Unauthorized {
		t.Errorf("Expected Unauthorized, got %v", c.IsAuthorized())
	}
	if n := f.verifies.Load(); n != 0 {
		t.Errorf("Expected no verify calls, got %d", n)
	}
}

func TestCheckAuthorizationStatus_Idempotent(t *testing.T) {
	f := newFakeAPI(t)
	storage := NewMemoryStorage()
	_ = storage.Set(constants.TokenCacheKey, "tok-stored")
	c, _ := newTestClient(t, f, storage)

	tok, ok := c.CheckAuthorizationStatus(context.Background())
	if !ok || tok != "tok-1" {
		t.Fatalf("Expected (tok-1, true), got (%q, %v)", tok, ok)
	}
	if p := c.Profile(); p == nil || p.Username != "alice" {
		t.Errorf("Expected profile to be refreshed, got %+v", p)
	}

	for i := 0; i < 5; i++ {
		again, ok := c.CheckAuthorizationStatus(context.Background())
		if !ok || again != "tok-1" {
			t.Errorf("Expected cached (tok-1, true), got (%q, %v)", again, ok)
		}
	}
	if n := f.verifies.Load(); n != 1 {
		t.Errorf("Expected exactly 1 verify call, got %d", n)
	}
}

func TestCheckAuthorizationStatus_FailureKeepsToken(t *testing.T) {
	f := newFakeAPI(t)
	f.failVerify.Store(true)
	storage := NewMemoryStorage()
	_ = storage.Set(constants.TokenCacheKey, "tok-stored")
	c, _ := newTestClient(t, f, storage)

	if _, ok := c.CheckAuthorizationStatus(context.Background()); ok {
		t.Fatal("Expected status check to fail")
	}
	if c.IsAuthorized() != Unauthorized {
		t.Errorf("Expected Unauthorized, got %v", c.IsAuthorized())
	}
	if stored, ok := storage.Get(constants.TokenCacheKey); !ok || stored != "tok-stored" {
		t.Errorf("Expected durable token to be kept, got %q (%v)", stored, ok)
	}

	// Resolved: no second network call
	c.CheckAuthorizationStatus(context.Background())
	if n := f.verifies.Load(); n != 1 {
		t.Errorf("Expected 1 verify call, got %d", n)
	}
}

func TestCheckAuthorizationStatus_CoalescesConcurrentCallers(t *testing.T) {
	f := newFakeAPI(t)
	f.gate = make(chan struct{})
	storage := NewMemoryStorage()
	_ = storage.Set(constants.TokenCacheKey, "tok-stored")
	c, _ := newTestClient(t, f, storage)

	const callers = 10
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.CheckAuthorizationStatus(context.Background())
		}(i)
	}

	// Let the single in-flight verify finish once it has started
	deadline := time.After(5 * time.Second)
	for f.verifies.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("verify was never called")
		case <-time.After(5 * time.Millisecond):
		}
	}
	close(f.gate)
	wg.Wait()

	if n := f.verifies.Load(); n != 1 {
		t.Errorf("Expected 1 verify call for concurrent callers, got %d", n)
	}
	for i, tok := range results {
		if tok != "tok-1" {
			t.Errorf("caller %d got %q, want tok-1", i, tok)
		}
	}
}

func TestCheckAuthorizationStatus_CallerCancelDoesNotSettle(t *testing.T) {
	t.Run("cancelled before the check", func(t *testing.T) {
		f := newFakeAPI(t)
		storage := NewMemoryStorage()
		_ = storage.Set(constants.TokenCacheKey, "tok-stored")
		c, _ := newTestClient(t, f, storage)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		tok, ok := c.CheckAuthorizationStatus(ctx)
		if !ok || tok != "tok-1" {
			t.Errorf("Expected (tok-1, true), got (%q, %v)", tok, ok)
		}
		if c.IsAuthorized() != Authorized {
			t.Errorf("Expected Authorized, got %v", c.IsAuthorized())
		}
	})

	t.Run("first caller cancels mid-flight", func(t *testing.T) {
		f := newFakeAPI(t)
		f.gate = make(chan struct{})
		storage := NewMemoryStorage()
		_ = storage.Set(constants.TokenCacheKey, "tok-stored")
		c, _ := newTestClient(t, f, storage)

		ctx, cancel := context.WithCancel(context.Background())
		first := make(chan string, 1)
		go func() {
			tok, _ := c.CheckAuthorizationStatus(ctx)
			first <- tok
		}()

		deadline := time.After(5 * time.Second)
		for f.verifies.Load() == 0 {
			select {
			case <-deadline:
				t.Fatal("verify was never called")
			case <-time.After(5 * time.Millisecond):
			}
		}

		second := make(chan string, 1)
		go func() {
			tok, _ := c.CheckAuthorizationStatus(context.Background())
			second <- tok
		}()

		cancel()
		close(f.gate)

		if tok := <-first; tok != "tok-1" {
			t.Errorf("Expected first caller to get tok-1, got %q", tok)
		}
		if tok := <-second; tok != "tok-1" {
			t.Errorf("Expected second caller to get tok-1, got %q", tok)
		}
		if c.IsAuthorized() != Authorized {
			t.Errorf("Expected Authorized, got %v", c.IsAuthorized())
		}
		if n := f.verifies.Load(); n != 1 {
			t.Errorf("Expected 1 verify call, got %d", n)
		}
	})
}

func TestRefreshToken(t *testing.T) {
	f := newFakeAPI(t)
	storage := NewMemoryStorage()
	c, _ := newTestClient(t, f, storage)

	if _, err := c.RefreshToken(context.Background()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized without a token, got %v", err)
	}

	if err := c.SetToken("tok-old"); err != nil {
		t.Fatalf("SetToken() error = %v", err)
	}
	fresh, err := c.RefreshToken(context.Background())
	if err != nil {
		t.Fatalf("RefreshToken() error = %v", err)
	}
	if fresh != "tok-1" || c.Token() != "tok-1" {
		t.Errorf("Expected token tok-1, got %q / %q", fresh, c.Token())
	}
	if stored, _ := storage.Get(constants.TokenCacheKey); stored != "tok-1" {
		t.Errorf("Expected stored token tok-1, got %q", stored)
	}

	f.failVerify.Store(true)
	if _, err := c.RefreshToken(context.Background()); err == nil {
		t.Error("Expected refresh failure")
	}
	if stored, _ := storage.Get(constants.TokenCacheKey); stored != "tok-1" {
		t.Errorf("Expected stored token to survive failure, got %q", stored)
	}
}

func TestClearToken(t *testing.T) {
	f := newFakeAPI(t)
	storage := NewMemoryStorage()
	c, history := newTestClient(t, f, storage)

	if err := c.VerifySSOCode(context.Background(), "good-code"); err != nil {
		t.Fatalf("VerifySSOCode() error = %v", err)
	}
	if err := c.StorePreLoginPath("/dashboard"); err != nil {
		t.Fatalf("StorePreLoginPath() error = %v", err)
	}

	if err := c.Logout(); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	if _, ok := storage.Get(constants.TokenCacheKey); ok {
		t.Error("Expected durable token to be removed")
	}
	if _, ok := storage.Get(constants.PreLoginPathKey); ok {
		t.Error("Expected durable pre-login path to be removed")
	}
	if c.Token() != "" {
		t.Errorf("Expected empty token, got %q", c.Token())
	}
	if c.Profile() != nil {
		t.Errorf("Expected profile to be cleared, got %+v", c.Profile())
	}
	if c.IsAuthorized() != Unauthorized {
		t.Errorf("Expected Unauthorized, got %v", c.IsAuthorized())
	}
	if c.PreLoginPath() != "/" {
		t.Errorf("Expected default pre-login path, got %q", c.PreLoginPath())
	}

	if got := history.Current(); got != "/login?_=1700000000123" {
		t.Errorf("Expected /login?_=1700000000123, got %q", got)
	}
	if history.Reloads() != 1 {
		t.Errorf("Expected 1 reload, got %d", history.Reloads())
	}
}

func TestPreLoginPath(t *testing.T) {
	f := newFakeAPI(t)
	storage := NewMemoryStorage()
	c, _ := newTestClient(t, f, storage)

	if got := c.PreLoginPath(); got != "/" {
		t.Errorf("Expected default /, got %q", got)
	}

	if err := c.StorePreLoginPath("//evil.example.com"); err == nil {
		t.Error("Expected off-site path to be rejected")
	}
	if got := c.PreLoginPath(); got != "/" {
		t.Errorf("Expected rejected path to be ignored, got %q", got)
	}

	if err := c.StorePreLoginPath("/dashboard"); err != nil {
		t.Fatalf("StorePreLoginPath() error = %v", err)
	}
	if got := c.PreLoginPath(); got != "/dashboard" {
		t.Errorf("Expected /dashboard, got %q", got)
	}

	// A new client over the same storage recovers the path
	restarted, _ := newTestClient(t, f, storage)
	if got := restarted.PreLoginPath(); got != "/dashboard" {
		t.Errorf("Expected /dashboard after restart, got %q", got)
	}
}

func TestTokenHydratesFromStorage(t *testing.T) {
	f := newFakeAPI(t)
	storage := NewMemoryStorage()
	_ = storage.Set(constants.TokenCacheKey, "tok-stored")
	c, _ := newTestClient(t, f, storage)

	if c.TokenState().Get() != "" {
		t.Fatal("Expected token cell to start empty")
	}
	if got := c.Token(); got != "tok-stored" {
		t.Errorf("Expected hydrated token, got %q", got)
	}
	if c.TokenState().Get() != "tok-stored" {
		t.Error("Expected token cell to be hydrated")
	}
}

func TestUseIsAuthorized(t *testing.T) {
	f := newFakeAPI(t)
	storage := NewMemoryStorage()
	_ = storage.Set(constants.TokenCacheKey, "tok-stored")
	c, _ := newTestClient(t, f, storage)

	states := make(chan AuthState, 4)
	stop := c.UseIsAuthorized(context.Background(), true, func(s AuthState) { states <- s })
	defer stop()

	want := []AuthState{Unresolved, Authorized}
	for _, w := range want {
		select {
		case got := <-states:
			if got != w {
				t.Fatalf("Expected state %v, got %v", w, got)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("Timed out waiting for state %v", w)
		}
	}
}

func TestUseProfile(t *testing.T) {
	f := newFakeAPI(t)
	c, _ := newTestClient(t, f, nil)

	var seen []*domain.UserDTO
	stop := c.UseProfile(func(p *domain.UserDTO) { seen = append(seen, p) })
	if err := c.VerifySSOCode(context.Background(), "good-code"); err != nil {
		t.Fatalf("VerifySSOCode() error = %v", err)
	}
	stop()
	_ = c.ClearToken()

	if len(seen) != 2 || seen[0] != nil || seen[1] == nil || seen[1].Username != "alice" {
		t.Errorf("Unexpected profile renders %+v", seen)
	}
}

func TestAPI_RequireToken(t *testing.T) {
	f := newFakeAPI(t)
	c, _ := newTestClient(t, f, nil)

	// No token: the request is refused locally
	if _, err := c.API().Me(context.Background()); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}

	storage := NewMemoryStorage()
	_ = storage.Set(constants.TokenCacheKey, "tok-stored")
	authed, _ := newTestClient(t, f, storage)

	me, err := authed.API().Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if *me != testProfile {
		t.Errorf("Expected %+v, got %+v", testProfile, *me)
	}
	if n := f.verifies.Load(); n != 1 {
		t.Errorf("Expected the status check to verify once, got %d", n)
	}
}

func TestAPI_TransportFailure(t *testing.T) {
	f := newFakeAPI(t)
	c, _ := newTestClient(t, f, nil)
	f.Close()

	err := c.API().Post(context.Background(), "sso/verify", domain.SSOVerifyRequest{Code: "x"}, nil, WithoutToken())
	if !domain.IsTransportError(err) {
		t.Errorf("Expected transport error, got %v", err)
	}
}
