package client

import (
	"net/url"
	"strings"
)

// NormalizePath strips leading slashes so a path can be joined to a base URL
// with exactly one separator.
func NormalizePath(path string) string {
	return strings.TrimLeft(path, "/")
}

func joinURL(base, path string, query url.Values) string {
	target := base + "/" + NormalizePath(path)
	if len(query) == 0 {
		return target
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + query.Encode()
}

// logoutTarget builds the redirect target for a non-auth failure from the
// Authorization header that was sent. Without a bearer token the query is omitted.
func logoutTarget(page, authorization string) string {
	token, ok := strings.CutPrefix(authorization, bearerPrefix)
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return page
	}
	return page + "?" + url.Values{"accessToken": {token}}.Encode()
}
