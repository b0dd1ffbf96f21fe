package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/waabox/apideck/internal/client"
	"github.com/waabox/apideck/internal/domain"
	"github.com/waabox/apideck/internal/session"
)

type messageResponse struct {
	Message string `json:"message"`
}

// handleLogin forwards the credentials to the backend and, on success, keeps
// the token pair in httpOnly cookies. The backend payload is relayed verbatim.
func (s *Server) handleLogin(c *fiber.Ctx) error {
	body := c.Body()
	if !json.Valid(body) {
		return c.Status(fiber.StatusBadRequest).JSON(messageResponse{Message: "request body must be JSON"})
	}

	outcome, err := s.api.Send(c.UserContext(), http.MethodPost, backendLoginPath, json.RawMessage(body), s.forwarded(c)...)
	if err != nil {
		s.logger.Error().Err(err).Msg("forwarding login")
		captureError(c, err, "forward_login")
		return c.Status(fiber.StatusBadGateway).JSON(messageResponse{Message: "backend unavailable"})
	}

	if outcome.Kind == domain.OutcomeSuccess {
		var login domain.LoginResponse
		if err := outcome.Response.Decode(&login); err == nil && login.Data.Complete() {
			s.setSessionCookies(c, login.Data)
		} else {
			s.logger.Warn().Err(err).Msg("login succeeded without a token pair")
		}
	}
	return relay(c, outcome.Response)
}

// handleLogout ends the backend session on a best-effort basis and always clears the cookies.
func (s *Server) handleLogout(c *fiber.Ctx) error {
	token := bearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		token = c.Cookies(session.KeyAccessToken)
	}
	s.backendLogout(c, token)
	s.clearSessionCookies(c)
	return c.JSON(messageResponse{Message: "logged out"})
}

// handleLogoutRoute is the redirect target of failed requests. A token in the
// query must match the session cookie, so a foreign link cannot end the session.
// Without a query token the cookie session is ended.
func (s *Server) handleLogoutRoute(c *fiber.Ctx) error {
	queryToken := c.Query(session.KeyAccessToken)
	cookieToken := c.Cookies(session.KeyAccessToken)
	if cookieToken != "" && queryToken != "" && queryToken != cookieToken {
		return c.Redirect("/", fiber.StatusFound)
	}

	token := queryToken
	if token == "" {
		token = cookieToken
	}
	s.backendLogout(c, token)
	s.clearSessionCookies(c)
	return c.Redirect("/login", fiber.StatusFound)
}

func (s *Server) handleLoginPage(c *fiber.Ctx) error {
	return c.JSON(messageResponse{Message: "login required"})
}

func (s *Server) backendLogout(c *fiber.Ctx, token string) {
	if token == "" {
		return
	}
	opts := append(s.forwarded(c), client.WithHeader(fiber.HeaderAuthorization, "Bearer "+token))
	outcome, err := s.api.Send(c.UserContext(), http.MethodPost, backendLogoutPath, nil, opts...)
	if err != nil {
		s.logger.Warn().Err(err).Msg("backend logout failed")
		return
	}
	if outcome.Kind != domain.OutcomeSuccess {
		s.logger.Warn().Int("status", outcome.Response.Status).Msg("backend logout rejected")
	}
}

// forwarded carries the caller's request id to the backend.
func (s *Server) forwarded(c *fiber.Ctx) []client.RequestOption {
	if id := c.Get(fiber.HeaderXRequestID); id != "" {
		return []client.RequestOption{client.WithHeader(fiber.HeaderXRequestID, id)}
	}
	return nil
}

func (s *Server) setSessionCookies(c *fiber.Ctx, pair domain.TokenPair) {
	c.Cookie(s.sessionCookie(session.KeyAccessToken, pair.AccessToken))
	c.Cookie(s.sessionCookie(session.KeyRefreshToken, pair.RefreshToken))
}

// clearSessionCookies expires both cookies on the same path they were set on.
func (s *Server) clearSessionCookies(c *fiber.Ctx) {
	for _, name := range []string{session.KeyAccessToken, session.KeyRefreshToken} {
		cookie := s.sessionCookie(name, "")
		cookie.Expires = time.Now().Add(-time.Hour)
		c.Cookie(cookie)
	}
}

func (s *Server) sessionCookie(name, value string) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.cfg.App.SecureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

func relay(c *fiber.Ctx, resp *domain.Response) error {
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(resp.Status).Send(resp.Payload)
}

func bearerToken(header string) string {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
