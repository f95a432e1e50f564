package dataset

import (
	"github.com/aluiziolira/go-vitibrasil/models"
	"github.com/aluiziolira/go-vitibrasil/table"
)

var productionCodes = prefixDecoder([][2]string{
	{"vm_", "VINHO DE MESA"},
	{"vv_", "VINHO FINO DE MESA (VINIFERA)"},
	{"su_", "SUCO"},
	{"de_", "DERIVADOS"},
}, false)

type production struct{ base }

func (p production) FromSite(f *table.Frame) ([]models.Record, error) {
	fixHeaders(f)
	return p.siteRecords(f, models.ColProduct)
}

func (p production) FromCSV(f *table.Frame) ([]models.Record, error) {
	records, err := Melt(f, MeltSpec{
		Category:     p.category,
		IDColumn:     "id",
		EntityColumn: "produto",
		CodeColumn:   "control",
		Decode:       productionCodes,
	})
	if err != nil {
		return nil, err
	}
	return finalize(records), nil
}
