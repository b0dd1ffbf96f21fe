package client

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Routes names the fixed paths the client reacts to.
type Routes struct {
	// Login is the API path whose successful response carries the token pair.
	Login string
	// Logout is the API path that ends the session. The automatic logout
	// after a 401 is posted to this path on the app origin.
	Logout string
	// LoginPage is where the user is sent after an auth failure.
	LoginPage string
	// LogoutPage is where the user is redirected after any other failure.
	LogoutPage string
}

// DefaultRoutes are the routes served by the companion app server.
var DefaultRoutes = Routes{
	Login:      "api/auth/login",
	Logout:     "api/auth/logout",
	LoginPage:  "/login",
	LogoutPage: "/logout",
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the timeout of the underlying *http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithNavigator(nav Navigator) Option {
	return func(c *Client) {
		c.nav = nav
	}
}

// WithAppURL sets the origin of the companion app that serves the local auth routes.
// When unset, the API base URL is used.
func WithAppURL(appURL string) Option {
	return func(c *Client) {
		c.appURL = strings.TrimRight(appURL, "/")
	}
}

// WithRoutes overrides DefaultRoutes. Empty fields keep their default.
func WithRoutes(r Routes) Option {
	return func(c *Client) {
		if r.Login != "" {
			c.routes.Login = r.Login
		}
		if r.Logout != "" {
			c.routes.Logout = r.Logout
		}
		if r.LoginPage != "" {
			c.routes.LoginPage = r.LoginPage
		}
		if r.LogoutPage != "" {
			c.routes.LogoutPage = r.LogoutPage
		}
	}
}

type requestOptions struct {
	headers http.Header
	baseURL string
	toApp   bool
	query   url.Values
}

// RequestOption tunes a single call.
type RequestOption func(*requestOptions)

// WithHeader sets a header on the call. Caller headers win over the client defaults.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		o.headers.Set(key, value)
	}
}

// WithHeaders sets every header in h on the call, replacing defaults with the same name.
func WithHeaders(h http.Header) RequestOption {
	return func(o *requestOptions) {
		for key, values := range h {
			o.headers.Del(key)
			for _, v := range values {
				o.headers.Add(key, v)
			}
		}
	}
}

// WithBaseURL sends the call to baseURL instead of the configured API base URL.
func WithBaseURL(baseURL string) RequestOption {
	return func(o *requestOptions) {
		o.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// ToApp sends the call to the companion app origin instead of the API.
func ToApp() RequestOption {
	return func(o *requestOptions) {
		o.toApp = true
	}
}

// WithQuery appends query parameters to the request URL.
func WithQuery(q url.Values) RequestOption {
	return func(o *requestOptions) {
		if o.query == nil {
			o.query = url.Values{}
		}
		for key, values := range q {
			for _, v := range values {
				o.query.Add(key, v)
			}
		}
	}
}
