package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aluiziolira/go-vitibrasil/config"
	"github.com/spf13/cobra"
)

var (
	// cfg starts from the defaults overlaid with VITIBRASIL_* variables;
	// flags bound to its fields override both.
	cfg     = config.DefaultConfig()
	envErr  = cfg.LoadEnv()
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "vitibrasil",
	Short:         "vitibrasil fetches Brazilian grape and wine statistics from VitiBrasil.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envErr != nil {
			return fmt.Errorf("invalid environment: %w", envErr)
		}
		cfg.Verbose = verbose
		logger, level := newLogger(verbose)
		slog.SetDefault(logger)
		slog.SetLogLoggerLevel(level.Level())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfg.SiteURL, "site-url", cfg.SiteURL, "Publisher page URL")
	rootCmd.PersistentFlags().StringVar(&cfg.DownloadURL, "download-url", cfg.DownloadURL, "Directory holding the CSV mirrors")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger writes to stderr so rendered tables on stdout stay clean.
func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
