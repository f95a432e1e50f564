// Package csvsource downloads the publisher's CSV mirrors and turns them into
// wide frames labelled with their sub-category.
package csvsource

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aluiziolira/go-vitibrasil/models"
	"github.com/aluiziolira/go-vitibrasil/table"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/text/encoding/charmap"
)

// DownloadError reports a CSV that could not be fetched.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// ParseError reports a CSV that could not be read.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var errEmpty = errors.New("empty document")

// suffixLabels maps a file-name suffix to the Botao label for each category.
var suffixLabels = map[models.Category][][2]string{
	models.Processing: {
		{"ProcessaViniferas.csv", "VINIFERAS"},
		{"ProcessaAmericanas.csv", "AMERICANAS E HIBRIDAS"},
		{"ProcessaMesa.csv", "UVAS DE MESA"},
		{"ProcessaSemclass.csv", "SEM CLASSIFICACAO"},
	},
	models.Import: {
		{"ImpVinhos.csv", "VINHOS DE MESA"},
		{"ImpEspumantes.csv", "ESPUMANTES"},
		{"ImpFrescas.csv", "UVAS FRESCAS"},
		{"ImpPassas.csv", "UVAS PASSAS"},
		{"ImpSuco.csv", "SUCO DE UVA"},
	},
	models.Export: {
		{"ExpVinho.csv", "VINHOS DE MESA"},
		{"ExpEspumantes.csv", "ESPUMANTES"},
		{"ExpUva.csv", "UVAS FRESCAS"},
		{"ExpSuco.csv", "SUCO DE UVA"},
	},
}

// SubCategoryFor returns the Botao label for a CSV URL, and whether the
// category labels its files at all.
func SubCategoryFor(category models.Category, url string) (string, bool) {
	pairs, ok := suffixLabels[category]
	if !ok {
		return "", false
	}
	for _, p := range pairs {
		if strings.HasSuffix(url, p[0]) {
			return p[1], true
		}
	}
	return "", true
}

// InferDelimiter picks the separator used on a header line: ';' then tab
// then ','. Lines containing none of them default to ','.
func InferDelimiter(line string) rune {
	for _, d := range []rune{';', '\t', ','} {
		if strings.ContainsRune(line, d) {
			return d
		}
	}
	return ','
}

// Loader fetches CSV documents.
type Loader struct {
	client *resty.Client
	cache  *expirable.LRU[string, []byte]
}

// LoaderOption customizes a Loader.
type LoaderOption func(*Loader)

// WithCache keeps up to size downloaded bodies for ttl. Repeated fallbacks
// for the same dataset then skip the download.
func WithCache(size int, ttl time.Duration) LoaderOption {
	return func(l *Loader) {
		if size > 0 && ttl > 0 {
			l.cache = expirable.NewLRU[string, []byte](size, nil, ttl)
		}
	}
}

// NewLoader wraps an HTTP client configured by the caller.
func NewLoader(client *resty.Client, opts ...LoaderOption) *Loader {
	l := &Loader{client: client}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load downloads every CSV of the descriptor in order and concatenates them
// into one wide frame. Labelled categories get a Botao column.
func (l *Loader) Load(ctx context.Context, desc models.Descriptor) (*table.Frame, error) {
	var combined *table.Frame
	for _, url := range desc.CSVURLs {
		slog.Info("downloading csv", slog.String("category", desc.Category.String()), slog.String("url", url))

		body, err := l.download(ctx, url)
		if err != nil {
			return nil, err
		}
		frame, err := Parse(body)
		if err != nil {
			return nil, &ParseError{URL: url, Err: err}
		}
		if label, labelled := SubCategoryFor(desc.Category, url); labelled {
			frame.AddColumn(models.ColSubCategory, label)
		}

		if combined == nil {
			combined = frame
			continue
		}
		combined.Concat(frame)
	}
	if combined == nil {
		return table.NewFrame(), nil
	}
	return combined, nil
}

func (l *Loader) download(ctx context.Context, url string) ([]byte, error) {
	if l.cache != nil {
		if body, ok := l.cache.Get(url); ok {
			slog.Debug("csv cache hit", slog.String("url", url))
			return body, nil
		}
	}
	res, err := l.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	if res.IsError() {
		return nil, &DownloadError{URL: url, Err: fmt.Errorf("http status %d", res.StatusCode())}
	}
	body := res.Body()
	if l.cache != nil {
		l.cache.Add(url, body)
	}
	return body, nil
}

// Parse reads one delimited document. Bodies that are not valid UTF-8 are
// decoded as Latin-1. Repeated header names get pandas-style suffixes
// ("1970", "1970.1") so every column stays addressable.
func Parse(body []byte) (*table.Frame, error) {
	body = bytes.TrimPrefix(body, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(body) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(body)
		if err != nil {
			return nil, fmt.Errorf("decode latin-1: %w", err)
		}
		body = decoded
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errEmpty
	}

	firstLine, _, _ := strings.Cut(string(body), "\n")
	r := csv.NewReader(bytes.NewReader(body))
	r.Comma = InferDelimiter(firstLine)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	frame := table.NewFrame(mangleHeaders(header)...)

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		row, err := fitRow(rec, len(frame.Columns))
		if err != nil {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := frame.Append(row); err != nil {
			return nil, err
		}
	}
	return frame, nil
}

func mangleHeaders(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if n := seen[h]; n > 0 {
			out[i] = h + "." + strconv.Itoa(n)
		} else {
			out[i] = h
		}
		seen[h]++
	}
	return out
}

// fitRow pads short records and trims trailing empty fields from long ones.
func fitRow(rec []string, width int) ([]string, error) {
	row := make([]string, width)
	for i, cell := range rec {
		if i < width {
			row[i] = cell
			continue
		}
		if strings.TrimSpace(cell) != "" {
			return nil, fmt.Errorf("record has %d fields, header has %d", len(rec), width)
		}
	}
	return row, nil
}
