package dataset

import (
	"github.com/aluiziolira/go-vitibrasil/models"
	"github.com/aluiziolira/go-vitibrasil/table"
)

var commercializationCodes = prefixDecoder([][2]string{
	{"vm_", "VINHO DE MESA"},
	{"vv_", "VINHO FINO DE MESA"},
	{"ve_", "VINHO ESPECIAL"},
	{"es_", "ESPUMANTES"},
	{"su_", "SUCO DE UVAS"},
	{"ou_", "OUTROS PRODUTOS COMERCIALIZADOS"},
}, true)

type commercialization struct{ base }

func (c commercialization) FromSite(f *table.Frame) ([]models.Record, error) {
	fixHeaders(f)
	return c.siteRecords(f, models.ColProduct)
}

func (c commercialization) FromCSV(f *table.Frame) ([]models.Record, error) {
	records, err := Melt(f, MeltSpec{
		Category:     c.category,
		IDColumn:     "id",
		EntityColumn: "produto",
		CodeColumn:   "control",
		Decode:       commercializationCodes,
	})
	if err != nil {
		return nil, err
	}
	return finalize(records), nil
}
