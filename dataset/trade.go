package dataset

import (
	"github.com/aluiziolira/go-vitibrasil/models"
	"github.com/aluiziolira/go-vitibrasil/table"
)

// trade serves both Import and Export. The country is the entity; only the
// site reports a value.
type trade struct{ base }

func (t trade) FromSite(f *table.Frame) ([]models.Record, error) {
	fixHeaders(f)
	return t.siteRecords(f, models.ColCountry)
}

func (t trade) FromCSV(f *table.Frame) ([]models.Record, error) {
	records, err := Melt(f, MeltSpec{
		Category: t.category,
		IDColumn: "Id",
	})
	if err != nil {
		return nil, err
	}
	return finalize(records), nil
}
