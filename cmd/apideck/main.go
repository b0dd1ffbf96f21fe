package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/waabox/apideck/internal/domain"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "apideck",
		Short:         "Call the API with the stored session",
		Long:          "apideck sends authenticated requests to the API and keeps the session token pair in sync.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/apideck/config.toml)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment overrides")
	root.PersistentFlags().BoolVar(&opts.toApp, "app", false, "send the request to the app origin instead of the API")
	root.PersistentFlags().StringArrayVarP(&opts.headers, "header", "H", nil, "extra request header as 'Name: value' (repeatable)")

	root.AddCommand(
		loginCmd(opts),
		logoutCmd(opts),
		requestCmd(opts, "get"),
		requestCmd(opts, "post"),
		requestCmd(opts, "put"),
		requestCmd(opts, "delete"),
		statusCmd(opts),
		serveCmd(opts),
		versionCmd(),
	)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "apideck", version)
		},
	}
}

// reportError prints err for a terminal user. Validation failures are listed per field.
func reportError(w io.Writer, err error) {
	var entityErr *domain.EntityError
	if errors.As(err, &entityErr) {
		msg := entityErr.Payload.Message
		if msg == "" {
			msg = "validation failed"
		}
		fmt.Fprintf(w, "apideck: %s\n", msg)
		for _, fe := range entityErr.Payload.Errors {
			fmt.Fprintf(w, "  %s: %s\n", fe.Field, fe.Message)
		}
		return
	}
	if errors.Is(err, domain.ErrUnauthorized) {
		fmt.Fprintln(w, "apideck: session expired, run 'apideck login' to sign in again")
		return
	}
	fmt.Fprintf(w, "apideck: %v\n", err)
}
