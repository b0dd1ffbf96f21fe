package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/waabox/apideck/internal/client"
	"github.com/waabox/apideck/internal/config"
	"github.com/waabox/apideck/internal/logging"
	"github.com/waabox/apideck/internal/session"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	envFile    string
	toApp      bool
	headers    []string
}

// runtime is what a subcommand needs to talk to the API.
type runtime struct {
	cfg    config.Config
	logger zerolog.Logger
	store  *session.FileStore
	api    *client.Client
}

func (o *globalOptions) load(cmd *cobra.Command) (*runtime, error) {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return nil, err
	}
	path := o.configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.New(cfg.Log, cmd.ErrOrStderr())
	store := session.NewFileStore(cfg.SessionPathOrDefault())
	api := client.NewClient(cfg.API.Endpoint, client.InteractiveEnv(store),
		client.WithAppURL(cfg.App.URL),
		client.WithTimeout(cfg.Timeout()),
		client.WithLogger(logger),
		client.WithNavigator(terminalNavigator{out: cmd.ErrOrStderr()}),
	)
	return &runtime{cfg: cfg, logger: logger, store: store, api: api}, nil
}

// requestOptions turns the persistent flags into per-call options.
func (o *globalOptions) requestOptions() ([]client.RequestOption, error) {
	var opts []client.RequestOption
	if o.toApp {
		opts = append(opts, client.ToApp())
	}
	for _, raw := range o.headers {
		name, value, err := parseHeader(raw)
		if err != nil {
			return nil, err
		}
		opts = append(opts, client.WithHeader(name, value))
	}
	return opts, nil
}

func parseHeader(raw string) (string, string, error) {
	name, value, ok := strings.Cut(raw, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid header %q: expected 'Name: value'", raw)
	}
	return name, strings.TrimSpace(value), nil
}

// terminalNavigator tells the user where the app would have sent them.
type terminalNavigator struct {
	out io.Writer
}

func (n terminalNavigator) Navigate(_ context.Context, target string) {
	fmt.Fprintf(n.out, "Session ended (%s). Run 'apideck login' to sign in again.\n", target)
}

// Redirect omits the query so the access token never reaches the terminal.
func (n terminalNavigator) Redirect(_ context.Context, target string) {
	route, _, _ := strings.Cut(target, "?")
	fmt.Fprintf(n.out, "Request failed; the app would redirect to %s\n", route)
}
