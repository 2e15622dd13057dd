// Package cmd contains all CLI commands for dojoctl
package cmd

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	retry "github.com/appleboy/go-httpretry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dojodesk/dojoctl/internal/api"
	"github.com/dojodesk/dojoctl/internal/config"
	"github.com/dojodesk/dojoctl/internal/credstore"
	"github.com/dojodesk/dojoctl/internal/output"
	"github.com/dojodesk/dojoctl/internal/session"
	"github.com/dojodesk/dojoctl/internal/transport"
)

var (
	cfgFile   string
	serverURL string
	verbose   bool
	noColor   bool

	cfg     *config.Config
	logger  *slog.Logger
	printer *output.Printer
	app     *appContext

	version = "dev"
)

// appContext holds the wired client stack for one invocation.
type appContext struct {
	Store   *credstore.Store
	Session *session.Manager
	API     *api.Client
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dojoctl",
	Short: "DojoDesk dashboard CLI",
	Long: `dojoctl is a command-line dashboard for a DojoDesk martial-arts
school backend: student records, belt promotions, technique catalogs,
and certificate retrieval.

Example usage:
  dojoctl login                          # Sign in and store a credential
  dojoctl students list --rank shodan    # List students by rank
  dojoctl promotions record <student>    # Record a belt promotion
  dojoctl certificates download <id>     # Fetch a certificate PDF`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initApp()
	},
}

// ExecuteContext adds all child commands to the root command and runs it
// with the given context, which carries signal cancellation.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .dojoctl.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server-url", "", "DojoDesk API URL (default: http://localhost:8080 or DOJOCTL_SERVER_URL env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	_ = viper.BindPFlag("server.url", rootCmd.PersistentFlags().Lookup("server-url"))
}

// initApp loads configuration and wires the client stack.
func initApp() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if serverURL != "" {
		cfg.Server.URL = serverURL
	}

	logLevel := slog.LevelInfo
	if verbose || cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	printer = output.NewPrinter(cfg.Output.Colors && !noColor)
	if warn := cfg.PlaintextWarning(); warn != "" && verbose {
		printer.Warning("%s", warn)
	}

	app, err = buildApp(cfg, logger)
	if err != nil {
		return err
	}

	logger.Debug("configuration loaded",
		"server_url", cfg.Server.URL,
		"credentials_file", cfg.Session.CredentialsFile,
	)
	return nil
}

// buildApp constructs the client stack: credential store, auth client
// (bypasses the interceptor so refresh cannot recurse), session manager,
// authorization interceptor, and the domain client on top of it.
func buildApp(cfg *config.Config, logger *slog.Logger) (*appContext, error) {
	store := credstore.New(cfg.Session.CredentialsFile)

	baseTransport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	authRetry, err := retry.NewBackgroundClient(
		retry.WithHTTPClient(&http.Client{Transport: baseTransport}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth retry client: %w", err)
	}
	authClient := api.NewAuthClient(cfg.Server.URL, authRetry)

	mgr := session.NewManager(store, authClient, session.WithLogger(logger))

	// Transient-failure retry sits beneath the auth interceptor. The
	// interceptor's terminal outcomes (refresh failure, second 401)
	// must reach the caller as-is, never re-driven with backoff.
	domainRetry, err := retry.NewBackgroundClient(
		retry.WithHTTPClient(&http.Client{Transport: baseTransport}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retry client: %w", err)
	}

	// Print the forced-logout hint once per invocation, no matter how
	// many in-flight requests hit the terminal branch.
	var expiredOnce sync.Once
	authTransport := transport.New(store, mgr.Refresh,
		transport.WithBase(&retryRoundTripper{client: domainRetry}),
		transport.WithLogger(logger),
		transport.WithAuthFailureHook(func() {
			expiredOnce.Do(func() {
				printer.Warning("Session expired. Run `dojoctl login` to sign in again.")
			})
		}),
	)

	return &appContext{
		Store:   store,
		Session: mgr,
		API:     api.NewClient(cfg.Server.URL, &http.Client{Transport: authTransport}),
	}, nil
}

// retryRoundTripper adapts the go-httpretry client into a RoundTripper
// so it can serve as the auth interceptor's base transport.
type retryRoundTripper struct {
	client *retry.Client
}

func (t *retryRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.client.DoWithContext(req.Context(), req)
}

// requireSession validates the stored credential and fails the command
// when no session can be established. This is the single startup
// suspension point; commands run only after it resolves.
func requireSession(cmd *cobra.Command) error {
	app.Session.Initialize(cmd.Context())
	if !app.Session.IsAuthenticated() {
		return fmt.Errorf("not signed in: run `dojoctl login` first")
	}
	return nil
}
