package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"auth-gateway/internal/auth"
	"auth-gateway/internal/client"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	gateway string
	cookie  string
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "authctl",
		Short:         "Inspect an auth gateway session from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&opts.gateway, "gateway", envOr("AUTH_API_URL", "http://localhost:3000"), "gateway base URL")
	rootCmd.PersistentFlags().StringVar(&opts.cookie, "cookie", "", "raw Cookie header to forward, eg: __a0_session=...")

	rootCmd.AddCommand(
		sessionCmd(opts),
		profileCmd(opts),
		resolveCmd(),
	)
	return rootCmd
}

func sessionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Print the gateway's /session answer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := client.New(opts.gateway).Session(cmd.Context(), client.WithCookieHeader(opts.cookie))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		},
	}
}

func profileCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Print the caller's claims from /profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := client.New(opts.gateway).Profile(cmd.Context(), client.WithCookieHeader(opts.cookie))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"user": user})
		},
	}
}

func resolveCmd() *cobra.Command {
	var (
		allowed  []string
		fallback string
	)

	cmd := &cobra.Command{
		Use:   "resolve [returnTo]",
		Short: "Show where the gateway would send a returnTo value",
		Long: `Resolve applies the gateway's allow-list check to a returnTo value.

The check is substring containment: a target passes if any allowed origin
appears anywhere in it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requested := ""
			if len(args) == 1 {
				requested = args[0]
			}
			var origins []string
			for _, o := range allowed {
				if o = strings.TrimSpace(o); o != "" {
					origins = append(origins, o)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), auth.ResolveReturnTo(requested, origins, fallback))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&allowed, "allowed-origins", strings.Split(envOr("ALLOWED_ORIGINS", "http://localhost:5173"), ","), "allowed origins")
	cmd.Flags().StringVar(&fallback, "fallback", envOr("BASE_URL", "http://localhost:3000"), "fallback return target")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
