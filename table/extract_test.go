package table

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-vitibrasil/models"
)

const productionPage = `<html><body>
<table class="tb_base tb_header"><tr><td>menu</td></tr></table>
<table class="tb_base tb_dados">
<thead><tr><th>Produto</th><th>Quantidade (L.)</th></tr></thead>
<tbody>
<tr><td class="tb_item">VINHO DE MESA</td><td class="tb_item">169.762.429</td></tr>
<tr><td class="tb_subitem">Tinto</td><td class="tb_subitem">139.320.884</td></tr>
<tr><td class="tb_subitem">Branco</td><td class="tb_subitem">27.910.299</td></tr>
<tr><td class="tb_item">SUCO</td><td class="tb_item">1.000</td></tr>
<tr><td class="tb_subitem">Suco de uva integral</td><td class="tb_subitem">-</td></tr>
<tr><td>Sem classe</td><td>7</td></tr>
</tbody>
<tfoot class="tb_total"><tr><td>Total</td><td>457.792.870</td></tr></tfoot>
</table>
</body></html>`

func mustDoc(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestExtractClassifiesRows(t *testing.T) {
	headers, rows, err := Extract(mustDoc(t, productionPage), DefaultSelector)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(headers) != 2 || headers[0] != "Produto" || headers[1] != "Quantidade (L.)" {
		t.Fatalf("headers = %v", headers)
	}

	want := []struct {
		entity string
		role   models.RowRole
		label  string
	}{
		{"VINHO DE MESA", models.RoleHeader, "VINHO DE MESA"},
		{"Tinto", models.RoleSubitem, "VINHO DE MESA"},
		{"Branco", models.RoleSubitem, "VINHO DE MESA"},
		{"SUCO", models.RoleHeader, "SUCO"},
		{"Suco de uva integral", models.RoleSubitem, "SUCO"},
		{"Sem classe", models.RoleData, ""},
		{"Total", models.RoleTotal, "Total"},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(rows), len(want))
	}
	for i, w := range want {
		got := rows[i]
		if got.Cells[0] != w.entity || got.Role != w.role || got.Classification != w.label {
			t.Errorf("row %d = {%q %s %q}, want {%q %s %q}", i, got.Cells[0], got.Role, got.Classification, w.entity, w.role, w.label)
		}
	}
}

func TestExtractTableNotFound(t *testing.T) {
	_, _, err := Extract(mustDoc(t, `<html><body><p>Sem dados</p></body></html>`), DefaultSelector)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExtractMalformedRow(t *testing.T) {
	page := `<table class="tb_base tb_dados"><tr><th>Países</th><th>Quantidade (Kg)</th><th>Valor (US$)</th></tr>
<tr><td>Chile</td><td>10</td></tr></table>`
	_, _, err := Extract(mustDoc(t, page), DefaultSelector)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestClassifyRowFold(t *testing.T) {
	row, next := ClassifyRow("", []string{"TINTAS", "10"}, "tb_item", false)
	if row.Role != models.RoleHeader || next != "TINTAS" {
		t.Fatalf("header row = %+v next=%q", row, next)
	}
	row, next = ClassifyRow(next, []string{"Bordo", "5"}, "tb_subitem extra", false)
	if row.Classification != "TINTAS" || next != "TINTAS" {
		t.Fatalf("subitem should inherit TINTAS, got %+v next=%q", row, next)
	}
	row, next = ClassifyRow(next, []string{"Total", "15"}, "tb_item", true)
	if row.Role != models.RoleTotal || row.Classification != "Total" || next != "TINTAS" {
		t.Fatalf("footer row = %+v next=%q", row, next)
	}
}
