package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/pagerduty/config"
	"github.com/s0up4200/pagerduty/filter"
	"github.com/s0up4200/pagerduty/pagerduty"
	"github.com/s0up4200/pagerduty/transport"
)

var (
	cfgFile  string
	logLevel string
	cfg      *config.Config
	logger   zerolog.Logger
	client   *pagerduty.Connection
	filters  *filter.Manager

	version   = "dev"
	buildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pagerduty",
	Short: "A small command line client for the PagerDuty REST API",
	Long: `pagerduty talks to the PagerDuty REST API v2. It authenticates every
request, pages through list endpoints, converts timestamps to your timezone
and can filter results with expressions.`,
	SilenceUsage: true,
}

// SetVersion records build information for the version and update commands.
func SetVersion(v, built string) {
	version = v
	buildTime = built
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
}

// initializeApp loads the configuration and builds the API connection
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger = setupLogger(cfg.Logging)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	httpClient := transport.New(transport.Config{
		Timeout:      cfg.HTTP.Timeout,
		RetryMax:     cfg.HTTP.RetryMax,
		RetryWaitMin: cfg.HTTP.RetryWaitMin,
		RetryWaitMax: cfg.HTTP.RetryWaitMax,
		RateLimit:    cfg.HTTP.RateLimit,
		UserAgent:    "pagerduty-cli/" + version,
	}, logger)

	client, err = pagerduty.New(cfg.PagerDuty.Token,
		pagerduty.WithAPIVersion(cfg.PagerDuty.APIVersion),
		pagerduty.WithLocation(loc),
		pagerduty.WithBaseURL(cfg.PagerDuty.BaseURL),
		pagerduty.WithHTTPClient(httpClient),
		pagerduty.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create PagerDuty client: %w", err)
	}

	filters = filter.NewManager()
	if err := filters.RegisterFilters(cfg.Filter.Presets); err != nil {
		return fmt.Errorf("invalid filter preset: %w", err)
	}

	logger.Debug().
		Str("base_url", client.BaseURL()).
		Int("api_version", client.APIVersion()).
		Str("timezone", loc.String()).
		Msg("PagerDuty client ready")

	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isatty.IsTerminal(os.Stderr.Fd()),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
