// Package acquisition answers data requests from the live site and falls
// back to the CSV mirrors when the site cannot serve them.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aluiziolira/go-vitibrasil/config"
	"github.com/aluiziolira/go-vitibrasil/csvsource"
	"github.com/aluiziolira/go-vitibrasil/dataset"
	"github.com/aluiziolira/go-vitibrasil/models"
	"github.com/aluiziolira/go-vitibrasil/scraper"
	"github.com/go-resty/resty/v2"
)

var (
	// ErrInvalidYearRange is returned when the start year is after the end year.
	ErrInvalidYearRange = errors.New("acquisition: invalid year range")
	// ErrSourceUnavailable is returned when neither source could answer.
	ErrSourceUnavailable = errors.New("acquisition: source unavailable")

	ErrUnsupportedCategory = dataset.ErrUnsupportedCategory
	ErrUnknownSubCategory  = dataset.ErrUnknownSubCategory
)

// Fallback reasons reported in logs and metrics.
const (
	reasonUnhealthy   = "site_unhealthy"
	reasonExhausted   = "retries_exhausted"
	reasonUnavailable = "site_unavailable"
	reasonTransform   = "site_transform"
)

// Option customizes a Service.
type Option func(*options)

type options struct {
	transport http.RoundTripper
	metrics   *scraper.Metrics
	sleep     func(ctx context.Context, d time.Duration) error
}

// WithTransport routes every request, scraped or downloaded, through rt.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// WithMetrics records requests, retries and fallbacks on m.
func WithMetrics(m *scraper.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithSleep replaces the wait between retries.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) {
		o.sleep = fn
	}
}

// Service is safe for concurrent use; all per-call state lives in Fetch.
type Service struct {
	cfg     *config.Config
	catalog *dataset.Catalog
	scraper *scraper.Scraper
	loader  *csvsource.Loader
	metrics *scraper.Metrics
	sleep   func(ctx context.Context, d time.Duration) error
}

// New wires a Service from cfg.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("acquisition: nil config")
	}
	o := options{sleep: sleepContext}
	for _, opt := range opts {
		opt(&o)
	}

	s, err := scraper.NewScraper(cfg, o.transport, o.metrics)
	if err != nil {
		return nil, fmt.Errorf("build scraper: %w", err)
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent)
	if o.transport != nil {
		client.SetTransport(o.transport)
	}

	return &Service{
		cfg:     cfg,
		catalog: dataset.NewCatalog(cfg.SiteURL, cfg.DownloadURL),
		scraper: s,
		loader:  csvsource.NewLoader(client, csvsource.WithCache(cfg.CSVCacheSize, cfg.CSVCacheTTL)),
		metrics: o.metrics,
		sleep:   o.sleep,
	}, nil
}

// Catalog exposes the dataset descriptors.
func (s *Service) Catalog() *dataset.Catalog {
	return s.catalog
}

// Fetch returns the records of category for years [startYear, endYear],
// optionally narrowed to one sub-category. The site is tried first; the CSV
// mirrors answer when it is unhealthy, keeps failing transiently or serves
// unusable pages.
func (s *Service) Fetch(ctx context.Context, category models.Category, startYear, endYear int, subCategory string) ([]models.Record, error) {
	desc, err := s.catalog.Descriptor(category)
	if err != nil {
		return nil, err
	}
	if startYear > endYear {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidYearRange, startYear, endYear)
	}
	button, err := dataset.ResolveButton(desc, subCategory)
	if err != nil {
		return nil, err
	}
	tr, err := dataset.For(category)
	if err != nil {
		return nil, err
	}

	req := request{desc: desc, transformer: tr, start: startYear, end: endYear, button: button}

	if err := s.scraper.Health(ctx, desc.PageURL()); err != nil {
		slog.Warn("site unhealthy",
			slog.String("category", category.String()),
			slog.Any("error", err),
		)
		return s.fallback(ctx, req, reasonUnhealthy)
	}

	buttons := desc.Buttons
	if button != nil {
		buttons = []models.Button{*button}
	}
	years := make([]int, 0, endYear-startYear+1)
	for y := startYear; y <= endYear; y++ {
		years = append(years, y)
	}

	attempt := models.Attempt{Category: category, Source: models.SourceSite}
	maxAttempts := max(s.cfg.MaxAttempts, 1)
	for attempt.Count < maxAttempts {
		attempt.Count++
		out := s.scraper.Scrape(ctx, desc, tr, years, buttons)
		attempt.Outcome = out.Kind.String()

		switch out.Kind {
		case scraper.OK:
			records, err := tr.FromSite(out.Frame)
			if err != nil {
				slog.Warn("site frame rejected",
					slog.String("category", category.String()),
					slog.Any("error", err),
				)
				return s.fallback(ctx, req, reasonTransform)
			}
			s.done(attempt, records)
			return records, nil

		case scraper.Transient:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if attempt.Count >= maxAttempts {
				return s.fallback(ctx, req, reasonExhausted)
			}
			s.metrics.IncRetries(category.String())
			slog.Warn("retrying scrape",
				slog.String("category", category.String()),
				slog.Int("attempt", attempt.Count),
				slog.Duration("backoff", s.cfg.RetryBackoff),
				slog.Any("error", out.Err),
			)
			if err := s.sleep(ctx, s.cfg.RetryBackoff); err != nil {
				return nil, err
			}

		default:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			slog.Warn("site unavailable",
				slog.String("category", category.String()),
				slog.Any("error", out.Err),
			)
			return s.fallback(ctx, req, reasonUnavailable)
		}
	}
	return s.fallback(ctx, req, reasonExhausted)
}

type request struct {
	desc        models.Descriptor
	transformer dataset.Transformer
	start, end  int
	button      *models.Button
}

// fallback answers from the CSV mirrors, narrowed to the requested years and
// sub-category.
func (s *Service) fallback(ctx context.Context, req request, reason string) ([]models.Record, error) {
	category := req.desc.Category
	s.metrics.IncFallback(category.String(), reason)
	slog.Warn("falling back to csv",
		slog.String("category", category.String()),
		slog.String("reason", reason),
	)

	frame, err := s.loader.Load(ctx, req.desc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	all, err := req.transformer.FromCSV(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	records := all[:0]
	for _, r := range all {
		if r.Year < req.start || r.Year > req.end {
			continue
		}
		if req.button != nil && r.SubCategory != req.button.Label {
			continue
		}
		records = append(records, r)
	}

	s.done(models.Attempt{Category: category, Source: models.SourceCSV, Count: 1, Outcome: reason}, records)
	return records, nil
}

func (s *Service) done(a models.Attempt, records []models.Record) {
	s.metrics.AddRecords(a.Category.String(), string(a.Source), len(records))
	slog.Info("fetch complete",
		slog.String("category", a.Category.String()),
		slog.String("source", string(a.Source)),
		slog.Int("attempts", a.Count),
		slog.String("outcome", a.Outcome),
		slog.Int("records", len(records)),
	)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
