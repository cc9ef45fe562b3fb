package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/authdash/internal/apipaths"
	"github.com/authdash/internal/domain"
	"github.com/authdash/internal/httputil"
)

// TokenSource yields a server-confirmed token for authenticated requests
type TokenSource interface {
	CheckAuthorizationStatus(ctx context.Context) (string, bool)
}

// API wraps calls to the authdash server. Errors are returned as values and
// carry the server's message and status.
type API struct {
	root   string
	client *http.Client
	tokens TokenSource
	logger *slog.Logger
}

// NewAPI creates a request helper rooted at apiRoot (for example
// http://localhost:3000/api). tokens may be nil if every call passes WithoutToken.
func NewAPI(apiRoot string, client *http.Client, tokens TokenSource, logger *slog.Logger) *API {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		root:   strings.TrimRight(apiRoot, "/"),
		client: client,
		tokens: tokens,
		logger: logger,
	}
}

type requestOptions struct {
	requireToken bool
	headers      http.Header
}

// RequestOption modifies a single request
type RequestOption func(*requestOptions)

// WithoutToken sends the request unauthenticated. Endpoints used to obtain
// or confirm a token must use it, or a status check would recurse.
func WithoutToken() RequestOption {
	return func(o *requestOptions) {
		o.requireToken = false
	}
}

// WithHeader adds a request header. Authorization is always overwritten on
// authenticated requests.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		o.headers.Add(key, value)
	}
}

// errorBody mirrors the server's error response
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// Request calls endpoint (relative to the API root) and decodes the JSON
// response into out when out is non-nil. For GET, data must be url.Values or
// nil and is sent as the query string; otherwise it is JSON encoded.
func (a *API) Request(ctx context.Context, method, endpoint string, data any, out any, opts ...RequestOption) error {
	o := requestOptions{requireToken: true, headers: http.Header{}}
	for _, opt := range opts {
		opt(&o)
	}

	target := a.root + "/" + strings.TrimLeft(endpoint, "/")
	var body io.Reader
	if method == http.MethodGet {
		if q, ok := data.(url.Values); ok && len(q) > 0 {
			target += "?" + q.Encode()
		}
	} else if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	desc := method + " " + target

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return domain.WrapTransportError(desc, 0, "", err)
	}
	for key, values := range o.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if o.requireToken {
		tok, ok := "", false
		if a.tokens != nil {
			tok, ok = a.tokens.CheckAuthorizationStatus(ctx)
		}
		if !ok {
			a.logger.ErrorContext(ctx, "No token/not authorized, cannot request", "url", target)
			return &domain.DomainError{
				Code:    domain.ErrUnauthorized.Code,
				Message: "not authorized",
			}
		}
		httputil.SetBearerToken(req, tok)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.ErrorContext(ctx, "Error requesting", "url", target, "error", err)
		return domain.WrapTransportError(desc, 0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var eb errorBody
		msg := ""
		if json.Unmarshal(raw, &eb) == nil {
			msg = eb.Error
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		a.logger.WarnContext(ctx, "Request rejected", "url", target, "status", resp.StatusCode, "error", msg)
		return domain.WrapTransportError(desc, resp.StatusCode, msg, nil)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.WrapTransportError(desc, resp.StatusCode, "invalid response body", err)
	}
	return nil
}

// Get is Request with method GET
func (a *API) Get(ctx context.Context, endpoint string, query url.Values, out any, opts ...RequestOption) error {
	return a.Request(ctx, http.MethodGet, endpoint, query, out, opts...)
}

// Post is Request with method POST
func (a *API) Post(ctx context.Context, endpoint string, data any, out any, opts ...RequestOption) error {
	return a.Request(ctx, http.MethodPost, endpoint, data, out, opts...)
}

// Put is Request with method PUT
func (a *API) Put(ctx context.Context, endpoint string, data any, out any, opts ...RequestOption) error {
	return a.Request(ctx, http.MethodPut, endpoint, data, out, opts...)
}

// Login posts credentials to the password login endpoint
func (a *API) Login(ctx context.Context, email, password string) (*domain.SessionResponse, error) {
	var resp domain.SessionResponse
	err := a.Post(ctx, apipaths.EndpointLogin, domain.LoginRequest{Email: email, Password: password}, &resp, WithoutToken())
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifySSOCode exchanges an SSO callback code for a session
func (a *API) VerifySSOCode(ctx context.Context, code string) (*domain.SessionResponse, error) {
	var resp domain.SessionResponse
	err := a.Post(ctx, apipaths.EndpointSSOVerify, domain.SSOVerifyRequest{Code: code}, &resp, WithoutToken())
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyToken confirms token with the server and returns a fresh session
func (a *API) VerifyToken(ctx context.Context, token string) (*domain.SessionResponse, error) {
	var resp domain.SessionResponse
	err := a.Post(ctx, apipaths.EndpointAuthVerify, domain.TokenVerifyRequest{Token: token}, &resp, WithoutToken())
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the current user as seen by the server
func (a *API) Me(ctx context.Context) (*domain.UserDTO, error) {
	var user domain.UserDTO
	if err := a.Get(ctx, apipaths.EndpointMe, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
