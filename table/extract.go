package table

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-vitibrasil/models"
	"golang.org/x/net/html"
)

// DefaultSelector locates the data table on the publisher's pages.
const DefaultSelector = "table.tb_base.tb_dados"

const (
	sectionClass = "tb_item"
	detailClass  = "tb_subitem"
	footerSel    = "tfoot.tb_total tr"
	totalLabel   = "Total"
)

var (
	// ErrNotFound is returned when the selector matches no table.
	ErrNotFound = errors.New("table: not found")
	// ErrMalformed is returned when a row does not line up with the headers.
	ErrMalformed = errors.New("table: malformed")
)

// Extract reads the first table matching selector. The first row supplies
// the headers; every later row with data cells is classified and returned.
func Extract(doc *goquery.Document, selector string) ([]string, []models.RawRow, error) {
	if selector == "" {
		selector = DefaultSelector
	}
	tbl := doc.Find(selector).First()
	if tbl.Length() == 0 {
		return nil, nil, ErrNotFound
	}

	var headers []string
	tbl.Find("th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(th.Text()))
	})

	footer := tbl.Find(footerSel).Nodes

	var (
		rows    []models.RawRow
		current string
		err     error
	)
	tbl.Find("tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if i == 0 {
			return true
		}
		tds := tr.Find("td")
		if tds.Length() == 0 {
			return true
		}
		cells := make([]string, 0, tds.Length())
		tds.Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		if len(cells) != len(headers) {
			err = fmt.Errorf("%w: row %d has %d cells for %d headers", ErrMalformed, i, len(cells), len(headers))
			return false
		}

		var row models.RawRow
		row, current = ClassifyRow(current, cells, tds.First().AttrOr("class", ""), inNodes(footer, tr))
		rows = append(rows, row)
		return true
	})
	if err != nil {
		return nil, nil, err
	}
	return headers, rows, nil
}

// ClassifyRow decides the role of one row given the classification carried
// from the rows above it, and returns the label to carry forward.
func ClassifyRow(current string, cells []string, firstCellClass string, inFooter bool) (models.RawRow, string) {
	row := models.RawRow{Cells: cells}
	classes := strings.Fields(firstCellClass)
	switch {
	case inFooter:
		row.Role = models.RoleTotal
		row.Classification = totalLabel
	case slices.Contains(classes, sectionClass) && len(cells) > 0:
		row.Role = models.RoleHeader
		row.Classification = cells[0]
		current = cells[0]
	case slices.Contains(classes, detailClass):
		row.Role = models.RoleSubitem
		row.Classification = current
	default:
		row.Role = models.RoleData
	}
	return row, current
}

func inNodes(nodes []*html.Node, sel *goquery.Selection) bool {
	for _, n := range sel.Nodes {
		if slices.Contains(nodes, n) {
			return true
		}
	}
	return false
}
