package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-vitibrasil/acquisition"
	"github.com/aluiziolira/go-vitibrasil/config"
	"github.com/aluiziolira/go-vitibrasil/models"
	"github.com/aluiziolira/go-vitibrasil/pipeline"
	"github.com/aluiziolira/go-vitibrasil/scraper"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var fetchOpts struct {
	category    string
	startYear   int
	endYear     int
	subCategory string
}

func init() {
	f := fetchCmd.Flags()
	f.StringVarP(&fetchOpts.category, "category", "c", "production", "Dataset to fetch, or \"all\"")
	f.IntVar(&fetchOpts.startYear, "start", 0, "First year (default: dataset's first year)")
	f.IntVar(&fetchOpts.endYear, "end", 0, "Last year (default: dataset's last year)")
	f.StringVar(&fetchOpts.subCategory, "sub", "", "Sub-category option or label, e.g. VINIFERA")
	f.StringVarP(&cfg.OutputFormat, "format", "f", cfg.OutputFormat, "Output format: table, csv, json, dual or sqlite")
	f.StringVarP(&cfg.OutputFile, "output", "o", cfg.OutputFile, "Output file path")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-request timeout")
	f.IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "Scrape attempts before falling back to CSV")
	f.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Wait between scrape attempts")
	f.DurationVar(&cfg.Delay, "delay", cfg.Delay, "Delay between page requests")
	f.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent categories and pipeline workers")
	f.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")

	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetches a dataset and writes canonical records.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		categories, err := resolveCategories(fetchOpts.category, fetchOpts.subCategory)
		if err != nil {
			return err
		}
		return runFetch(cmd.Context(), cfg, categories)
	},
}

// resolveCategories expands "all"; a sub-category needs a single category.
func resolveCategories(name, sub string) ([]models.Category, error) {
	if strings.EqualFold(strings.TrimSpace(name), "all") {
		if sub != "" {
			return nil, fmt.Errorf("--sub requires a single category")
		}
		return models.Categories, nil
	}
	c, err := models.ParseCategory(name)
	if err != nil {
		return nil, err
	}
	return []models.Category{c}, nil
}

func runFetch(parent context.Context, cfg *config.Config, categories []models.Category) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := scraper.NewMetrics()
	svc, err := acquisition.New(cfg, acquisition.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("initialising acquisition: %w", err)
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	p := pipeline.NewPipeline(writer, cfg)
	p.Start(cfg.Workers)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	startTime := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, c := range categories {
		g.Go(func() error {
			desc, err := svc.Catalog().Descriptor(c)
			if err != nil {
				return err
			}
			start, end := fetchOpts.startYear, fetchOpts.endYear
			if start == 0 {
				start = desc.FirstYear
			}
			if end == 0 {
				end = desc.LastYear
			}
			slog.Info("fetching",
				slog.String("category", c.String()),
				slog.Int("start", start),
				slog.Int("end", end),
				slog.String("sub", fetchOpts.subCategory),
			)
			records, err := svc.Fetch(gctx, c, start, end, fetchOpts.subCategory)
			if err != nil {
				return fmt.Errorf("%s: %w", c, err)
			}
			return p.Process(records)
		})
	}
	fetchErr := g.Wait()

	closeErr := p.Close()
	if fetchErr == nil && closeErr == nil {
		if err := writer.Validate(); err != nil {
			slog.Warn("output validation failed", slog.Any("error", err))
		}
	}
	if err := writer.Close(); err != nil {
		slog.Error("close writer", slog.Any("error", err))
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if fetchErr != nil {
		return fetchErr
	}
	if closeErr != nil {
		return fmt.Errorf("pipeline shutdown: %w", closeErr)
	}

	printSummary(time.Since(startTime), cfg, p.GetMetrics())
	return nil
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "table":
		return pipeline.NewTableWriter(os.Stdout), nil
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return pipeline.NewDualWriter(filename, jsonFilename)
	case "sqlite":
		return pipeline.NewSQLiteWriter(filename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(duration time.Duration, cfg *config.Config, metrics map[string]interface{}) {
	total := int64(0)
	if processed, ok := metrics["processed_records"].(int64); ok {
		total = processed
	}

	out := os.Stderr
	fmt.Fprintln(out, "Fetch complete")
	fmt.Fprintf(out, "  Records:       %d\n", total)
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Fprintf(out, "  Validation:    %v\n", valErrors)
	}
	if totals, ok := metrics["categories"].(map[string]pipeline.CategoryTotals); ok {
		for _, c := range models.Categories {
			t, ok := totals[c.String()]
			if !ok {
				continue
			}
			fmt.Fprintf(out, "  %-18s %d records, %d-%d, quantity %d", c.String()+":", t.Records, t.FirstYear, t.LastYear, t.Quantity)
			if c.IsTrade() {
				fmt.Fprintf(out, ", value US$ %d", t.Value)
			}
			fmt.Fprintln(out)
		}
	}
	fmt.Fprintf(out, "  Duration:      %v\n", duration.Round(time.Millisecond))
	if cfg.OutputFile != "" && cfg.OutputFormat != "table" {
		fmt.Fprintf(out, "  Output file:   %s\n", cfg.OutputFile)
	}
}
