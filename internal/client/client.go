package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/waabox/apideck/internal/domain"
	"github.com/waabox/apideck/internal/session"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerRequestID     = "X-Request-ID"
	contentTypeJSON     = "application/json"
	bearerPrefix        = "Bearer "

	logoutFlightKey = "logout"
)

// ErrInvalidPayload is returned when a response body is not valid JSON.
var ErrInvalidPayload = errors.New("response body is not valid JSON")

// Client performs API calls, classifies failures and keeps the session
// tokens of an interactive environment in sync.
type Client struct {
	baseURL string
	appURL  string
	routes  Routes
	env     Environment
	tokens  *session.Manager
	nav     Navigator
	http    *http.Client
	logger  zerolog.Logger

	// logouts collapses concurrent automatic logouts onto one in-flight call.
	logouts singleflight.Group
}

// NewClient creates a Client for the API at baseURL.
// A nil env is treated as ServerEnv().
func NewClient(baseURL string, env Environment, opts ...Option) *Client {
	if env == nil {
		env = ServerEnv()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		routes:  DefaultRoutes,
		env:     env,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.routes.Login = NormalizePath(c.routes.Login)
	c.routes.Logout = NormalizePath(c.routes.Logout)
	if env.Interactive() {
		c.tokens = session.NewManager(env.Store())
	}
	return c
}

// Session returns the token manager of an interactive client, or nil.
func (c *Client) Session() *session.Manager {
	return c.tokens
}

// Send performs one call and classifies its response.
// The returned error is non-nil only when no response could be obtained or
// decoded; HTTP failures are reported through the Outcome.
//
// In an interactive environment Send also performs the session side effects:
// a 401 resets the session (one shared logout call, tokens cleared, navigation
// to the login page), a successful login stores the token pair and a call to
// the logout route clears it. The redirect of other failures is left to the caller.
func (c *Client) Send(ctx context.Context, method, path string, body any, opts ...RequestOption) (domain.Outcome, error) {
	ro := requestOptions{headers: http.Header{}}
	for _, opt := range opts {
		opt(&ro)
	}

	payload, err := encodeBody(body)
	if err != nil {
		return domain.Outcome{}, err
	}

	baseHeaders := c.baseHeaders(payload.form == nil)
	headers := baseHeaders.Clone()
	for key, values := range ro.headers {
		headers[key] = append([]string(nil), values...)
	}
	if payload.form != nil && headers.Get(headerContentType) == "" {
		headers.Set(headerContentType, payload.form.ContentType())
	}
	if headers.Get(headerRequestID) == "" {
		headers.Set(headerRequestID, uuid.NewString())
	}

	normalized := NormalizePath(path)
	base, err := c.resolveBase(ro)
	if err != nil {
		return domain.Outcome{}, err
	}
	target := joinURL(base, normalized, ro.query)

	req, err := http.NewRequestWithContext(ctx, method, target, payload.reader)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header = headers

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("reading response body: %w", err)
	}
	decoded, err := decodePayload(raw)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("%s %s (status %d): %w", method, target, resp.StatusCode, err)
	}
	response := &domain.Response{Status: resp.StatusCode, Payload: decoded, Header: resp.Header}

	c.logger.Debug().
		Str("method", method).
		Str("url", target).
		Int("status", resp.StatusCode).
		Str("request_id", headers.Get(headerRequestID)).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	outcome := domain.Outcome{Kind: domain.OutcomeSuccess, Response: response}
	if !response.OK() {
		switch response.Status {
		case domain.StatusEntityError:
			entityErr, err := domain.NewEntityError(response.Payload)
			if err != nil {
				return domain.Outcome{}, err
			}
			return domain.Outcome{
				Kind:       domain.OutcomeValidationFailure,
				Response:   response,
				Violations: entityErr.Payload.Errors,
				Entity:     entityErr,
			}, nil
		case http.StatusUnauthorized:
			// Non-interactive environments hold no session: nothing to reset.
			outcome.Kind = domain.OutcomeAuthFailure
			if c.env.Interactive() {
				outcome.Redirect = c.routes.LoginPage
				c.resetSession(ctx, baseHeaders)
			}
		default:
			return domain.Outcome{
				Kind:     domain.OutcomeOtherFailure,
				Response: response,
				Redirect: logoutTarget(c.routes.LogoutPage, headers.Get(headerAuthorization)),
			}, nil
		}
	}

	if c.env.Interactive() {
		if err := c.syncSession(normalized, outcome); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

func (c *Client) baseHeaders(jsonBody bool) http.Header {
	h := http.Header{}
	if jsonBody {
		h.Set(headerContentType, contentTypeJSON)
	}
	if c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			h.Set(headerAuthorization, bearerPrefix+token)
		}
	}
	return h
}

func (c *Client) resolveBase(ro requestOptions) (string, error) {
	base := c.baseURL
	if ro.toApp {
		base = c.appOrigin()
	}
	if ro.baseURL != "" {
		base = ro.baseURL
	}
	if base == "" {
		return "", errors.New("no base URL configured")
	}
	return base, nil
}

func (c *Client) appOrigin() string {
	if c.appURL != "" {
		return c.appURL
	}
	return c.baseURL
}

// resetSession runs the auth-failure cleanup once per burst of 401s.
// Callers that arrive while a logout is in flight wait for it instead of
// issuing their own; only the caller that performed it navigates.
func (c *Client) resetSession(ctx context.Context, headers http.Header) {
	leader := false
	_, _, _ = c.logouts.Do(logoutFlightKey, func() (any, error) {
		leader = true
		if err := c.postLogout(ctx, headers); err != nil {
			c.logger.Warn().Err(err).Msg("automatic logout failed")
		}
		if err := c.tokens.Clear(); err != nil {
			c.logger.Warn().Err(err).Msg("clearing stored tokens")
		}
		return nil, nil
	})
	if leader {
		c.navigate(ctx, c.routes.LoginPage)
	}
}

func (c *Client) postLogout(ctx context.Context, headers http.Header) error {
	target := joinURL(c.appOrigin(), c.routes.Logout, nil)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
	if err != nil {
		return fmt.Errorf("creating logout request: %w", err)
	}
	req.Header = headers.Clone()
	if req.Header.Get(headerRequestID) == "" {
		req.Header.Set(headerRequestID, uuid.NewString())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("posting logout: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		c.logger.Debug().Int("status", resp.StatusCode).Msg("logout route answered with an error status")
	}
	return nil
}

// syncSession stores the token pair of a successful login and forgets it on
// logout. A storage failure is returned with the outcome so callers never
// report a session that was not saved.
func (c *Client) syncSession(path string, outcome domain.Outcome) error {
	switch path {
	case c.routes.Login:
		if outcome.Kind != domain.OutcomeSuccess {
			return nil
		}
		var login domain.LoginResponse
		if err := outcome.Response.Decode(&login); err != nil || !login.Data.Complete() {
			c.logger.Warn().Err(err).Msg("login response carries no token pair")
			return nil
		}
		if err := c.tokens.Save(login.Data); err != nil {
			return fmt.Errorf("persisting session tokens: %w", err)
		}
	case c.routes.Logout:
		if err := c.tokens.Clear(); err != nil {
			return fmt.Errorf("clearing session tokens: %w", err)
		}
	}
	return nil
}

func (c *Client) navigate(ctx context.Context, target string) {
	c.logger.Info().Str("target", target).Msg("session reset, navigating")
	if c.nav != nil {
		c.nav.Navigate(ctx, target)
	}
}

func (c *Client) redirect(ctx context.Context, target string) {
	c.logger.Info().Str("target", target).Msg("request failed, redirecting")
	if c.nav != nil {
		c.nav.Redirect(ctx, target)
	}
}

// decodePayload validates a JSON body. An empty body decodes as null.
func decodePayload(raw []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(trimmed) {
		return nil, ErrInvalidPayload
	}
	return json.RawMessage(trimmed), nil
}
