package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/waabox/apideck/internal/client"
	"github.com/waabox/apideck/internal/domain"
	"github.com/waabox/apideck/internal/server"
	"github.com/waabox/apideck/internal/session"
	"github.com/waabox/apideck/internal/tui"
)

const (
	loginPath  = "api/auth/login"
	logoutPath = "api/auth/logout"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func loginCmd(opts *globalOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session tokens",
		Long:  "Sign in through the app login route. Without --email and --password an interactive form is shown.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.load(cmd)
			if err != nil {
				return err
			}
			submit := func(ctx context.Context, email, password string) error {
				_, err := rt.api.Post(ctx, loginPath, credentials{Email: email, Password: password}, rt.authRouteOptions()...)
				return err
			}

			if email != "" && password != "" {
				if err := submit(cmd.Context(), email, password); err != nil {
					return err
				}
			} else {
				ok, err := tui.RunLogin(email, submit)
				if err != nil {
					return fmt.Errorf("running login form: %w", err)
				}
				if !ok {
					return errors.New("login cancelled")
				}
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Signed in. Session saved to %s\n", rt.store.Path())
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func logoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if _, err := rt.api.Post(cmd.Context(), logoutPath, nil, rt.authRouteOptions()...); err != nil {
				rt.logger.Warn().Err(err).Msg("logout route failed, clearing local session anyway")
				if clearErr := rt.api.Session().Clear(); clearErr != nil {
					return clearErr
				}
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Signed out.")
			return nil
		},
	}
}

// authRouteOptions targets the app origin when one is configured.
func (rt *runtime) authRouteOptions() []client.RequestOption {
	if rt.cfg.App.URL != "" {
		return []client.RequestOption{client.ToApp()}
	}
	return nil
}

func requestCmd(opts *globalOptions, verb string) *cobra.Command {
	var data string
	var fields, files []string
	method := strings.ToUpper(verb)
	withBody := method == http.MethodPost || method == http.MethodPut

	cmd := &cobra.Command{
		Use:   verb + " <path>",
		Short: fmt.Sprintf("Send a %s request and print the JSON payload", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.load(cmd)
			if err != nil {
				return err
			}
			reqOpts, err := opts.requestOptions()
			if err != nil {
				return err
			}

			var resp *domain.Response
			switch method {
			case http.MethodGet:
				resp, err = rt.api.Get(cmd.Context(), args[0], reqOpts...)
			case http.MethodDelete:
				resp, err = rt.api.Delete(cmd.Context(), args[0], reqOpts...)
			default:
				body, bodyErr := buildBody(data, fields, files)
				if bodyErr != nil {
					return bodyErr
				}
				if method == http.MethodPost {
					resp, err = rt.api.Post(cmd.Context(), args[0], body, reqOpts...)
				} else {
					resp, err = rt.api.Put(cmd.Context(), args[0], body, reqOpts...)
				}
			}
			if err != nil {
				return err
			}
			return printPayload(cmd.OutOrStdout(), resp.Payload)
		},
	}
	if withBody {
		cmd.Flags().StringVarP(&data, "data", "d", "", "JSON body, or @file to read it from a file")
		cmd.Flags().StringArrayVarP(&fields, "form", "F", nil, "multipart form field as key=value (repeatable)")
		cmd.Flags().StringArrayVar(&files, "file", nil, "multipart file as field=path (repeatable)")
	}
	return cmd
}

// buildBody returns a *client.FormData when form fields or files are given,
// the JSON document from --data otherwise, or nil for no body.
func buildBody(data string, fields, files []string) (any, error) {
	if len(fields) > 0 || len(files) > 0 {
		if data != "" {
			return nil, errors.New("--data cannot be combined with --form or --file")
		}
		return buildForm(fields, files)
	}
	if data == "" {
		return nil, nil
	}
	raw := []byte(data)
	if strings.HasPrefix(data, "@") {
		content, err := os.ReadFile(data[1:])
		if err != nil {
			return nil, fmt.Errorf("reading body file: %w", err)
		}
		raw = content
	}
	if !json.Valid(raw) {
		return nil, errors.New("--data is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

func buildForm(fields, files []string) (*client.FormData, error) {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid form field %q: expected key=value", f)
		}
		values[key] = value
	}

	parts := make([]client.FormFile, 0, len(files))
	for _, f := range files {
		field, path, ok := strings.Cut(f, "=")
		if !ok || field == "" || path == "" {
			return nil, fmt.Errorf("invalid file %q: expected field=path", f)
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		parts = append(parts, client.FormFile{Field: field, Filename: baseName(path), Content: bytes.NewReader(content)})
	}
	return client.NewFormData(values, parts...)
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func printPayload(w io.Writer, payload json.RawMessage) error {
	var out bytes.Buffer
	if err := json.Indent(&out, payload, "", "  "); err != nil {
		return fmt.Errorf("formatting payload: %w", err)
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

func statusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.load(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			info, err := rt.api.Session().Inspect()
			if errors.Is(err, session.ErrNoSession) {
				fmt.Fprintln(out, "Not signed in.")
				return nil
			}
			if err != nil {
				// opaque tokens carry no claims; the session still exists
				fmt.Fprintln(out, "Signed in (opaque access token).")
				return nil
			}

			fmt.Fprintln(out, "Signed in.")
			if info.Subject != "" {
				fmt.Fprintf(out, "  subject:       %s\n", info.Subject)
			}
			if !info.ExpiresAt.IsZero() {
				state := "valid"
				if info.Expired(time.Now()) {
					state = "expired"
				}
				fmt.Fprintf(out, "  expires:       %s (%s)\n", info.ExpiresAt.Format(time.RFC3339), state)
			}
			fmt.Fprintf(out, "  refresh token: %t\n", info.HasRefresh)
			return nil
		},
	}
}

func serveCmd(opts *globalOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the app server that owns the local auth routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := opts.load(cmd)
			if err != nil {
				return err
			}
			addr := listen
			if addr == "" {
				addr = rt.cfg.ListenOrDefault()
			}

			srv := server.New(rt.cfg, rt.logger)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Listen(addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			rt.logger.Info().Msg("shutting down app server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default app.listen or :3000)")
	return cmd
}
