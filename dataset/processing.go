package dataset

import (
	"github.com/aluiziolira/go-vitibrasil/models"
	"github.com/aluiziolira/go-vitibrasil/table"
)

// colUndefined heads the entity column on pages listing unclassified grapes.
const colUndefined = "Sem definição"

var processingCodes = prefixDecoder([][2]string{
	{"ti_", "TINTAS"},
	{"br_", "BRANCAS E ROSADAS"},
	{"sc", "SEM CLASSIFICACAO"},
}, false)

type processing struct{ base }

func (p processing) FromSite(f *table.Frame) ([]models.Record, error) {
	fixHeaders(f)
	reconcileCultivar(f)
	return p.siteRecords(f, models.ColCultivar)
}

// reconcileCultivar folds the "Sem definição" column into Cultivar. Pages of
// different buttons concatenate into a frame carrying both.
func reconcileCultivar(f *table.Frame) {
	undefIdx := f.Index(colUndefined)
	if undefIdx < 0 {
		return
	}
	if f.Index(models.ColCultivar) < 0 {
		f.Rename(f.Columns[undefIdx], models.ColCultivar)
		return
	}
	for i, row := range f.Rows {
		if f.Get(i, models.ColCultivar) == "" {
			f.Set(i, models.ColCultivar, row[undefIdx])
		}
	}
	f.Drop(f.Columns[undefIdx])
}

func (p processing) FromCSV(f *table.Frame) ([]models.Record, error) {
	records, err := Melt(f, MeltSpec{
		Category:     p.category,
		IDColumn:     "id",
		EntityColumn: "cultivar",
		CodeColumn:   "control",
		Decode:       processingCodes,
	})
	if err != nil {
		return nil, err
	}
	return finalize(records), nil
}
