package client

import (
	"context"
	"net/http"

	"github.com/waabox/apideck/internal/domain"
)

// Get performs a GET call. See do for the error contract.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*domain.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, opts...)
}

// Post performs a POST call with body encoded as JSON, or sent as-is for *FormData.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*domain.Response, error) {
	return c.do(ctx, http.MethodPost, path, body, opts...)
}

// Put performs a PUT call with body encoded as JSON, or sent as-is for *FormData.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*domain.Response, error) {
	return c.do(ctx, http.MethodPut, path, body, opts...)
}

// Delete performs a DELETE call.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*domain.Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil, opts...)
}

// do maps an Outcome onto the error taxonomy:
//   - 2xx: the response
//   - 422: *domain.EntityError
//   - 401: *domain.HTTPError matching domain.ErrUnauthorized, after the session reset
//   - other: *domain.HTTPError, after handing the logout route to the Navigator
func (c *Client) do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*domain.Response, error) {
	outcome, err := c.Send(ctx, method, path, body, opts...)
	if err != nil {
		return nil, err
	}
	if outcome.Kind == domain.OutcomeOtherFailure {
		c.redirect(ctx, outcome.Redirect)
	}
	if err := outcome.Err(); err != nil {
		return nil, err
	}
	return outcome.Response, nil
}

// Decode unmarshals the payload of resp into a T.
func Decode[T any](resp *domain.Response) (T, error) {
	var v T
	err := resp.Decode(&v)
	return v, err
}
