package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-vitibrasil/config"
	"github.com/aluiziolira/go-vitibrasil/models"
	"github.com/aluiziolira/go-vitibrasil/table"
	"github.com/go-resty/resty/v2"
	"github.com/gocolly/colly/v2"
)

// Kind tags the result of one scrape attempt.
type Kind int

const (
	// OK means at least one page yielded a table.
	OK Kind = iota
	// Transient failures (timeouts, connection errors) may be retried.
	Transient
	// Unavailable means the site answered but cannot be used.
	Unavailable
)

func (k Kind) String() string {
	switch k {
	case OK:
		return "ok"
	case Transient:
		return "transient"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Outcome is the result of one scrape attempt. Frame is set only for OK.
type Outcome struct {
	Kind  Kind
	Frame *table.Frame
	Err   error
}

// ErrNoTables is reported when no requested page carried a data table.
var ErrNoTables = errors.New("no data table on any page")

// Requester builds the query of one page.
type Requester interface {
	RequestParams(year int, button *models.Button) url.Values
}

// Scraper fetches category pages through a colly collector.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	health    *resty.Client
	Metrics   *Metrics
}

// NewScraper builds a scraper from cfg. A nil transport selects a pooled
// default; tests inject a mock.
func NewScraper(cfg *config.Config, transport http.RoundTripper, metrics *Metrics) (*Scraper, error) {
	parsed, err := url.Parse(cfg.SiteURL)
	if err != nil {
		return nil, fmt.Errorf("parse site url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("site url must include a host")
	}

	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   cfg.Timeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(transport)

	parallelism := cfg.Workers
	if parallelism <= 0 {
		parallelism = 1
	}
	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: parallelism,
		Delay:       cfg.Delay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	health := resty.New().
		SetTransport(transport).
		SetTimeout(cfg.HealthTimeout).
		SetHeader("User-Agent", cfg.UserAgent)

	return &Scraper{
		cfg:       cfg,
		collector: collector,
		health:    health,
		Metrics:   metrics,
	}, nil
}

// Health probes a page. Any transport failure or non-2xx status is an error.
func (s *Scraper) Health(ctx context.Context, pageURL string) error {
	s.Metrics.IncRequest("health")
	res, err := s.health.R().SetContext(ctx).Get(pageURL)
	if err != nil {
		classified := classifyError(err, 0)
		s.Metrics.IncError(errorTypeLabel(classified))
		return classified
	}
	if res.IsError() {
		classified := classifyError(nil, res.StatusCode())
		s.Metrics.IncError(errorTypeLabel(classified))
		return classified
	}
	return nil
}

// Scrape fetches one page per (year, button) pair and assembles a frame
// carrying the table headers plus Classificação, Botao (when buttons are
// given) and Ano. Pages without a table are skipped. Every call starts from
// an empty frame.
func (s *Scraper) Scrape(ctx context.Context, desc models.Descriptor, req Requester, years []int, buttons []models.Button) Outcome {
	pages := make([]*models.Button, 0, len(buttons))
	for i := range buttons {
		pages = append(pages, &buttons[i])
	}
	if len(pages) == 0 {
		pages = append(pages, nil)
	}

	f := newFetcher(s.collector.Clone(), s.Metrics)
	category := desc.Category.String()

	var frame *table.Frame
	for _, year := range years {
		for _, button := range pages {
			if err := ctx.Err(); err != nil {
				return Outcome{Kind: Unavailable, Err: err}
			}

			pageURL := desc.QueryURL(req.RequestParams(year, button))
			body, err := f.get(pageURL)
			if err != nil {
				slog.Warn("page fetch failed",
					slog.String("category", category),
					slog.String("url", pageURL),
					slog.Any("error", err),
				)
				if IsTransient(err) {
					return Outcome{Kind: Transient, Err: err}
				}
				return Outcome{Kind: Unavailable, Err: err}
			}

			page, err := buildPage(body, year, button)
			var missing *ErrTableNotFound
			if errors.As(err, &missing) {
				slog.Warn("data table missing", slog.String("category", category), slog.Any("error", err))
				s.Metrics.IncMissingTable(category)
				continue
			}
			if err != nil {
				return Outcome{Kind: Unavailable, Err: fmt.Errorf("%s year %d: %w", category, year, err)}
			}

			if frame == nil {
				frame = page
			} else {
				frame.Concat(page)
			}
		}
	}

	if frame == nil {
		return Outcome{Kind: Unavailable, Err: ErrNoTables}
	}
	return Outcome{Kind: OK, Frame: frame}
}

// buildPage extracts the data table of one page into a frame.
func buildPage(body []byte, year int, button *models.Button) (*table.Frame, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	headers, rows, err := table.Extract(doc, table.DefaultSelector)
	if errors.Is(err, table.ErrNotFound) {
		missing := &ErrTableNotFound{Year: year}
		if button != nil {
			missing.Button = button.Label
		}
		return nil, missing
	}
	if err != nil {
		return nil, err
	}

	columns := append(append([]string(nil), headers...), models.ColClassification)
	if button != nil {
		columns = append(columns, models.ColSubCategory)
	}
	columns = append(columns, models.ColYear)

	page := table.NewFrame(columns...)
	yearText := strconv.Itoa(year)
	for _, row := range rows {
		cells := append(append([]string(nil), row.Cells...), row.Classification)
		if button != nil {
			cells = append(cells, button.Label)
		}
		cells = append(cells, yearText)
		if err := page.Append(cells); err != nil {
			return nil, err
		}
	}
	return page, nil
}

// fetcher performs synchronous visits on a cloned collector and captures
// the body and status of the last response.
type fetcher struct {
	collector *colly.Collector
	metrics   *Metrics

	body   []byte
	status int
}

func newFetcher(c *colly.Collector, metrics *Metrics) *fetcher {
	f := &fetcher{collector: c, metrics: metrics}

	c.OnRequest(func(r *colly.Request) {
		r.Ctx.Put("start", time.Now())
		metrics.IncRequest("started")
		slog.Debug("fetching page", slog.String("url", r.URL.String()))
	})
	c.OnResponse(func(r *colly.Response) {
		f.body = r.Body
		f.status = r.StatusCode
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			metrics.ObserveDuration(time.Since(start))
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			f.status = r.StatusCode
		}
	})
	return f
}

func (f *fetcher) get(pageURL string) ([]byte, error) {
	f.body, f.status = nil, 0
	if err := f.collector.Visit(pageURL); err != nil {
		classified := classifyError(err, f.status)
		f.metrics.IncError(errorTypeLabel(classified))
		return nil, classified
	}
	f.metrics.IncRequest("completed")
	return f.body, nil
}
