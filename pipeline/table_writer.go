package pipeline

import (
	"fmt"
	"io"
	"sync"

	"github.com/aluiziolira/go-vitibrasil/models"
	"github.com/jedib0t/go-pretty/v6/table"
)

// TableWriter collects records and renders them as one table on Close.
type TableWriter struct {
	out  io.Writer
	rows []table.Row
	mu   sync.Mutex
}

// NewTableWriter renders to out.
func NewTableWriter(out io.Writer) *TableWriter {
	return &TableWriter{out: out}
}

func (tw *TableWriter) Write(records []models.Record) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	for _, r := range records {
		value := "-"
		if r.Value != nil {
			value = fmt.Sprint(*r.Value)
		}
		tw.rows = append(tw.rows, table.Row{
			r.Category.String(), r.Entity, r.Classification, r.Year, r.Quantity, value, r.SubCategory,
		})
	}
	return nil
}

func (tw *TableWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	t := table.NewWriter()
	t.SetOutputMirror(tw.out)
	t.AppendHeader(table.Row{"Category", "Entity", "Classification", "Year", "Quantity", "Value (US$)", "Botao"})
	t.AppendRows(tw.rows)
	t.AppendFooter(table.Row{"Records", len(tw.rows)})
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

// Validate always succeeds: an empty table is still rendered.
func (tw *TableWriter) Validate() error {
	return nil
}
