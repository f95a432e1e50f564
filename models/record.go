// Package models defines data structures shared by the acquisition pipeline.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Category identifies one of the published datasets.
type Category int

const (
	CategoryUnknown Category = iota
	Production
	Processing
	Commercialization
	Import
	Export
)

// ErrUnsupportedCategory is returned for categories outside the closed set.
var ErrUnsupportedCategory = errors.New("unsupported category")

// Categories lists every supported dataset in publication order.
var Categories = []Category{Production, Processing, Commercialization, Import, Export}

func (c Category) String() string {
	switch c {
	case Production:
		return "production"
	case Processing:
		return "processing"
	case Commercialization:
		return "commercialization"
	case Import:
		return "import"
	case Export:
		return "export"
	default:
		return "unknown"
	}
}

// Tag returns the short dataset tag used by the publisher's downloads.
func (c Category) Tag() string {
	switch c {
	case Production:
		return "Prod"
	case Processing:
		return "Proces"
	case Commercialization:
		return "Comerc"
	case Import:
		return "Imp"
	case Export:
		return "Exp"
	default:
		return ""
	}
}

// IsTrade reports whether the category carries a monetary value column.
func (c Category) IsTrade() bool {
	return c == Import || c == Export
}

// ParseCategory accepts the English names and the short publisher tags.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production", "prod", "producao":
		return Production, nil
	case "processing", "proces", "processamento":
		return Processing, nil
	case "commercialization", "comerc", "comercializacao":
		return Commercialization, nil
	case "import", "imp", "importacao":
		return Import, nil
	case "export", "exp", "exportacao":
		return Export, nil
	default:
		return CategoryUnknown, fmt.Errorf("%w: %q", ErrUnsupportedCategory, s)
	}
}

// Output column names.
const (
	ColProduct        = "Produto"
	ColCultivar       = "Cultivar"
	ColCountry        = "Países"
	ColClassification = "Classificação"
	ColYear           = "Ano"
	ColQuantity       = "Quantidade"
	ColValue          = "Valor (US$)"
	ColSubCategory    = "Botao"
)

// TotalMarker is the normalized label of grand-total rows.
const TotalMarker = "TOTAL"

// Record is one canonical output row.
type Record struct {
	Category       Category
	Entity         string
	Classification string
	Year           int
	Quantity       int64
	Value          *int64
	SubCategory    string
}

// Columns returns the fixed field order for records of the given category.
func Columns(c Category) []string {
	switch c {
	case Production, Commercialization:
		return []string{ColProduct, ColClassification, ColYear, ColQuantity}
	case Processing:
		return []string{ColCultivar, ColClassification, ColYear, ColQuantity, ColSubCategory}
	case Import, Export:
		return []string{ColCountry, ColYear, ColQuantity, ColValue, ColSubCategory}
	default:
		return nil
	}
}

// Columns returns the record's field names in output order.
func (r *Record) Columns() []string {
	return Columns(r.Category)
}

// Values returns the record's values aligned with Columns.
func (r *Record) Values() []any {
	var value any
	if r.Value != nil {
		value = *r.Value
	}
	switch r.Category {
	case Production, Commercialization:
		return []any{r.Entity, r.Classification, r.Year, r.Quantity}
	case Processing:
		return []any{r.Entity, r.Classification, r.Year, r.Quantity, r.SubCategory}
	case Import, Export:
		return []any{r.Entity, r.Year, r.Quantity, value, r.SubCategory}
	default:
		return nil
	}
}

// Key identifies the record for de-duplication.
func (r *Record) Key() string {
	return strings.Join([]string{
		r.Category.String(),
		r.Entity,
		r.Classification,
		r.SubCategory,
		strconv.Itoa(r.Year),
	}, "\x1f")
}

// MarshalJSON emits an object whose keys follow Columns.
func (r Record) MarshalJSON() ([]byte, error) {
	cols := r.Columns()
	if cols == nil {
		return nil, fmt.Errorf("marshal record: unknown category %d", r.Category)
	}
	values := r.Values()

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range cols {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
