package dataset

import (
	"fmt"
	"strconv"

	"github.com/aluiziolira/go-vitibrasil/models"
	"github.com/aluiziolira/go-vitibrasil/parser"
	"github.com/aluiziolira/go-vitibrasil/table"
)

// MeltSpec describes how a wide CSV frame maps onto records.
type MeltSpec struct {
	Category models.Category
	// IDColumn is dropped before reshaping.
	IDColumn string
	// EntityColumn names the entity column. Empty means the first column
	// left after dropping IDColumn.
	EntityColumn string
	// CodeColumn holds the classification code. Empty means none.
	CodeColumn string
	// Decode maps (code, entity) to a classification label. Nil yields the
	// code unchanged.
	Decode func(code, entity string) string
}

// Melt reshapes every four-digit year column into one record per
// (entity, classification, year). Non-numeric quantities become zero.
func Melt(f *table.Frame, ms MeltSpec) ([]models.Record, error) {
	if f.Len() == 0 {
		return nil, nil
	}
	idIdx := -1
	if ms.IDColumn != "" {
		idIdx = f.Index(ms.IDColumn)
	}

	entityIdx := -1
	if ms.EntityColumn != "" {
		entityIdx = f.Index(ms.EntityColumn)
	} else {
		for i := range f.Columns {
			if i != idIdx {
				entityIdx = i
				break
			}
		}
	}
	if entityIdx < 0 {
		return nil, fmt.Errorf("melt %s: entity column %q not found in %v", ms.Category, ms.EntityColumn, f.Columns)
	}

	codeIdx := -1
	if ms.CodeColumn != "" {
		if codeIdx = f.Index(ms.CodeColumn); codeIdx < 0 {
			return nil, fmt.Errorf("melt %s: code column %q not found in %v", ms.Category, ms.CodeColumn, f.Columns)
		}
	}
	subIdx := f.Index(models.ColSubCategory)

	type yearCol struct {
		idx  int
		year int
	}
	var years []yearCol
	for i, col := range f.Columns {
		if y, ok := parseYear(col); ok && i != idIdx {
			years = append(years, yearCol{idx: i, year: y})
		}
	}

	records := make([]models.Record, 0, f.Len()*len(years))
	for _, row := range f.Rows {
		rawEntity := parser.FixEncoding(row[entityIdx])
		entity := parser.NormalizeText(rawEntity)
		if entity == "" {
			continue
		}
		code := ""
		if codeIdx >= 0 {
			code = parser.FixEncoding(row[codeIdx])
		}
		classification := code
		if ms.Decode != nil {
			classification = ms.Decode(code, rawEntity)
		}
		classification = parser.NormalizeText(classification)

		sub := ""
		if subIdx >= 0 {
			sub = row[subIdx]
		}
		for _, yc := range years {
			records = append(records, models.Record{
				Category:       ms.Category,
				Entity:         entity,
				Classification: classification,
				Year:           yc.year,
				Quantity:       parser.ParseQuantity(row[yc.idx]),
				SubCategory:    sub,
			})
		}
	}
	return records, nil
}

func parseYear(s string) (int, bool) {
	if len(s) != 4 {
		return 0, false
	}
	y, err := strconv.Atoi(s)
	if err != nil || y < 1000 {
		return 0, false
	}
	return y, true
}
