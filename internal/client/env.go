package client

import (
	"context"

	"github.com/waabox/apideck/internal/session"
)

// Environment tells the client which context it runs in.
// An interactive environment holds an end-user session in Store and lets the
// client attach, persist and reset tokens. A server environment never touches storage.
type Environment interface {
	Interactive() bool
	Store() session.Store
}

type environment struct {
	interactive bool
	store       session.Store
}

func (e environment) Interactive() bool    { return e.interactive }
func (e environment) Store() session.Store { return e.store }

// InteractiveEnv returns an interactive environment backed by store.
// A nil store falls back to an in-memory one.
func InteractiveEnv(store session.Store) Environment {
	if store == nil {
		store = session.NewMemoryStore()
	}
	return environment{interactive: true, store: store}
}

// ServerEnv returns a non-interactive environment without token storage.
func ServerEnv() Environment {
	return environment{}
}

// Navigator moves the user after a failed request.
// Navigate replaces the current location (the login page after an auth failure).
// Redirect performs a server-side redirect (the logout route after other failures).
type Navigator interface {
	Navigate(ctx context.Context, target string)
	Redirect(ctx context.Context, target string)
}

// NavigatorFuncs adapts plain functions to Navigator. Nil funcs are no-ops.
type NavigatorFuncs struct {
	OnNavigate func(ctx context.Context, target string)
	OnRedirect func(ctx context.Context, target string)
}

func (n NavigatorFuncs) Navigate(ctx context.Context, target string) {
	if n.OnNavigate != nil {
		n.OnNavigate(ctx, target)
	}
}

func (n NavigatorFuncs) Redirect(ctx context.Context, target string) {
	if n.OnRedirect != nil {
		n.OnRedirect(ctx, target)
	}
}
