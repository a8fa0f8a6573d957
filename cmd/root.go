package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/unstructiq-cli/internal/api"
	cfgpkg "github.com/KaramelBytes/unstructiq-cli/internal/config"
	"github.com/KaramelBytes/unstructiq-cli/internal/logging"
	"github.com/KaramelBytes/unstructiq-cli/internal/session"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	// HTTP/logging flags (override config if set)
	flagBaseURL        string
	flagHTTPTimeoutSec int
	flagLogLevel       string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "unstructiq",
	Short: "UnstructIQ CLI: upload data files, process them and explore the results",
	Long: `UnstructIQ sends CSV, JSON, Excel, text and PDF files to the UnstructIQ backend,
which cleans and analyzes them. The CLI renders the returned statistics, charts and
AI insights, exports cleaned data, and can serve a browser front-end.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return loadConfig(cmd.Root()) },
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		if h := hint(err); h != "" {
			fmt.Fprintln(os.Stderr, "⚠ Hint:", h)
		}
		os.Exit(1)
	}
}

// hint suggests a next step for the error kinds users can act on.
func hint(err error) string {
	var unreachable *api.UnreachableError
	var notFound *api.NotFoundError
	var apiErr *api.APIError
	switch {
	case errors.As(err, &unreachable):
		return fmt.Sprintf("is the backend running? check base_url (%s) or pass --base-url", unreachable.Host)
	case errors.As(err, &notFound):
		return "unknown job id; upload the file again to get a new one"
	case errors.Is(err, session.ErrFileTooLarge):
		return "raise the limit with `unstructiq config set max_upload_bytes <n>` (0 disables it)"
	case errors.As(err, &apiErr) && apiErr.RequestID != "":
		return "request id " + apiErr.RequestID
	}
	return ""
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.unstructiq/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "backend base URL (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds, 0 waits indefinitely (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
}

func loadConfig(root *cobra.Command) error {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so `config set` can repair a bad file
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Default()
	}
	cfg = c

	// Apply CLI overrides if provided
	f := root.PersistentFlags()
	if f.Changed("base-url") && flagBaseURL != "" {
		cfg.BaseURL = strings.TrimRight(flagBaseURL, "/")
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec >= 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("log-level") && flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	return logging.Configure(cfg.LogLevel, debug)
}

// newClient builds an API client from the effective configuration.
func newClient() *api.Client {
	timeout := time.Duration(cfg.HTTPTimeoutSec) * time.Second
	return api.NewClientWithBaseURL(timeout, cfg.BaseURL).WithLogger(logrus.StandardLogger())
}
