// Package dataset describes the published datasets and turns scraped or
// downloaded frames into canonical records.
package dataset

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-vitibrasil/models"
	"github.com/aluiziolira/go-vitibrasil/parser"
	"github.com/aluiziolira/go-vitibrasil/table"
)

// ErrLayout is returned when a frame lacks a column the transformer needs.
var ErrLayout = errors.New("dataset: unexpected layout")

// Transformer converts the two raw shapes of one category into records.
type Transformer interface {
	Category() models.Category
	// RequestParams returns the query for one (year, button) page.
	RequestParams(year int, button *models.Button) url.Values
	// SubCategories lists the buttons the category exposes, possibly none.
	SubCategories() []models.Button
	// FromSite transforms a scraped frame. The frame is normalized in place.
	FromSite(f *table.Frame) ([]models.Record, error)
	// FromCSV transforms a wide frame assembled from the CSV mirrors.
	FromCSV(f *table.Frame) ([]models.Record, error)
}

// For returns the transformer of a category.
func For(category models.Category) (Transformer, error) {
	switch category {
	case models.Production:
		return production{base{category}}, nil
	case models.Processing:
		return processing{base{category}}, nil
	case models.Commercialization:
		return commercialization{base{category}}, nil
	case models.Import, models.Export:
		return trade{base{category}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCategory, category)
	}
}

type base struct {
	category models.Category
}

func (b base) Category() models.Category {
	return b.category
}

func (b base) RequestParams(year int, button *models.Button) url.Values {
	params := url.Values{}
	params.Set("opcao", layouts[b.category].option)
	params.Set("ano", strconv.Itoa(year))
	if button != nil {
		params.Set(button.Name, button.Value)
	}
	return params
}

func (b base) SubCategories() []models.Button {
	return append([]models.Button(nil), layouts[b.category].buttons...)
}

// siteRecords normalizes every cell and reads one record per row. The value
// column is only read for trade categories.
func (b base) siteRecords(f *table.Frame, entityColumn string) ([]models.Record, error) {
	if f.Len() == 0 {
		return nil, nil
	}
	f.Map(func(s string) string {
		return parser.NormalizeText(parser.FixEncoding(s))
	})

	entityIdx := f.Index(entityColumn)
	qtyIdx := prefixIndex(f, "QUANTIDADE")
	yearIdx := f.Index(models.ColYear)
	if entityIdx < 0 || qtyIdx < 0 || yearIdx < 0 {
		return nil, fmt.Errorf("%w: %s site frame has columns %v", ErrLayout, b.category, f.Columns)
	}
	classIdx := f.Index(models.ColClassification)
	subIdx := f.Index(models.ColSubCategory)
	valueIdx := -1
	if b.category.IsTrade() {
		valueIdx = prefixIndex(f, "VALOR")
	}

	records := make([]models.Record, 0, f.Len())
	for _, row := range f.Rows {
		if row[entityIdx] == "" {
			continue
		}
		year, err := strconv.Atoi(row[yearIdx])
		if err != nil {
			return nil, fmt.Errorf("%w: %s year %q", ErrLayout, b.category, row[yearIdx])
		}
		r := models.Record{
			Category: b.category,
			Entity:   row[entityIdx],
			Year:     year,
			Quantity: parser.ParseSiteNumber(row[qtyIdx]),
		}
		if classIdx >= 0 {
			r.Classification = row[classIdx]
		}
		if subIdx >= 0 {
			r.SubCategory = row[subIdx]
		}
		if valueIdx >= 0 {
			v := parser.ParseSiteNumber(row[valueIdx])
			r.Value = &v
		}
		records = append(records, r)
	}
	return finalize(records), nil
}

// fixHeaders repairs double-encoded column names so folded lookups match.
func fixHeaders(f *table.Frame) {
	for i, c := range f.Columns {
		f.Columns[i] = strings.TrimSpace(parser.FixEncoding(c))
	}
}

func prefixIndex(f *table.Frame, prefix string) int {
	for i, c := range f.Columns {
		if strings.HasPrefix(parser.FoldHeader(c), prefix) {
			return i
		}
	}
	return -1
}

// finalize drops aggregate rows, clamps quantities and keeps the first
// record per key.
func finalize(records []models.Record) []models.Record {
	seen := make(map[string]struct{}, len(records))
	out := records[:0]
	for _, r := range records {
		if r.Entity == models.TotalMarker && r.Classification == models.TotalMarker {
			continue
		}
		if r.Quantity < 0 {
			r.Quantity = 0
		}
		key := r.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// prefixDecoder maps a code to the label of the first matching prefix.
// Unknown codes pass through; empty codes fall back to the entity when
// entityOnEmpty is set.
func prefixDecoder(prefixes [][2]string, entityOnEmpty bool) func(code, entity string) string {
	return func(code, entity string) string {
		code = strings.TrimSpace(code)
		if code == "" && entityOnEmpty {
			return entity
		}
		for _, p := range prefixes {
			if strings.HasPrefix(code, p[0]) {
				return p[1]
			}
		}
		return code
	}
}
