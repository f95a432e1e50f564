package dataset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aluiziolira/go-vitibrasil/models"
	"github.com/aluiziolira/go-vitibrasil/parser"
)

var (
	// ErrUnsupportedCategory is returned for categories outside the closed set.
	ErrUnsupportedCategory = models.ErrUnsupportedCategory
	// ErrUnknownSubCategory is returned when a sub-category does not belong to
	// the requested category.
	ErrUnknownSubCategory = errors.New("dataset: unknown sub-category")
)

const buttonParam = "subopcao"

type layout struct {
	option    string
	csvFiles  []string
	buttons   []models.Button
	firstYear int
	lastYear  int
}

var layouts = map[models.Category]layout{
	models.Production: {
		option:    "opt_02",
		csvFiles:  []string{"Producao.csv"},
		firstYear: 1970,
		lastYear:  2022,
	},
	models.Processing: {
		option: "opt_03",
		csvFiles: []string{
			"ProcessaViniferas.csv",
			"ProcessaAmericanas.csv",
			"ProcessaMesa.csv",
			"ProcessaSemclass.csv",
		},
		buttons: []models.Button{
			{Name: buttonParam, Value: "subopt_01", Option: "VINIFERA", Label: "VINIFERAS"},
			{Name: buttonParam, Value: "subopt_02", Option: "AMERICANAS_E_HIBRIDA", Label: "AMERICANAS E HIBRIDAS"},
			{Name: buttonParam, Value: "subopt_03", Option: "UVA_DE_MESA", Label: "UVAS DE MESA"},
			{Name: buttonParam, Value: "subopt_04", Option: "SEM_CLASSIFICACAO", Label: "SEM CLASSIFICACAO"},
		},
		firstYear: 1970,
		lastYear:  2021,
	},
	models.Commercialization: {
		option:    "opt_04",
		csvFiles:  []string{"Comercio.csv"},
		firstYear: 1970,
		lastYear:  2022,
	},
	models.Import: {
		option: "opt_05",
		csvFiles: []string{
			"ImpVinhos.csv",
			"ImpEspumantes.csv",
			"ImpFrescas.csv",
			"ImpPassas.csv",
			"ImpSuco.csv",
		},
		buttons: []models.Button{
			{Name: buttonParam, Value: "subopt_01", Option: "VINHOS_DE_MESA", Label: "VINHOS DE MESA"},
			{Name: buttonParam, Value: "subopt_02", Option: "ESPUMANTES", Label: "ESPUMANTES"},
			{Name: buttonParam, Value: "subopt_03", Option: "UVAS_FRESCAS", Label: "UVAS FRESCAS"},
			{Name: buttonParam, Value: "subopt_04", Option: "UVAS_PASSAS", Label: "UVAS PASSAS"},
			{Name: buttonParam, Value: "subopt_05", Option: "SUCO_DE_UVA", Label: "SUCO DE UVA"},
		},
		firstYear: 1970,
		lastYear:  2022,
	},
	models.Export: {
		option: "opt_06",
		csvFiles: []string{
			"ExpVinho.csv",
			"ExpEspumantes.csv",
			"ExpUva.csv",
			"ExpSuco.csv",
		},
		buttons: []models.Button{
			{Name: buttonParam, Value: "subopt_01", Option: "VINHOS_DE_MESA", Label: "VINHOS DE MESA"},
			{Name: buttonParam, Value: "subopt_02", Option: "ESPUMANTES", Label: "ESPUMANTES"},
			{Name: buttonParam, Value: "subopt_03", Option: "UVAS_FRESCAS", Label: "UVAS FRESCAS"},
			{Name: buttonParam, Value: "subopt_04", Option: "SUCO_DE_UVA", Label: "SUCO DE UVA"},
		},
		firstYear: 1970,
		lastYear:  2022,
	},
}

// Catalog holds the descriptor of every category. It is built once and
// only read afterwards.
type Catalog struct {
	descriptors map[models.Category]models.Descriptor
}

// NewCatalog builds descriptors rooted at the given site page and download
// directory.
func NewCatalog(siteURL, downloadURL string) *Catalog {
	if !strings.HasSuffix(downloadURL, "/") {
		downloadURL += "/"
	}
	descriptors := make(map[models.Category]models.Descriptor, len(layouts))
	for category, l := range layouts {
		urls := make([]string, len(l.csvFiles))
		for i, file := range l.csvFiles {
			urls[i] = downloadURL + file
		}
		buttons := make([]models.Button, len(l.buttons))
		copy(buttons, l.buttons)
		descriptors[category] = models.Descriptor{
			Category:  category,
			Option:    l.option,
			SiteURL:   siteURL,
			CSVURLs:   urls,
			Buttons:   buttons,
			FirstYear: l.firstYear,
			LastYear:  l.lastYear,
		}
	}
	return &Catalog{descriptors: descriptors}
}

// Descriptor returns a copy of the category's descriptor.
func (c *Catalog) Descriptor(category models.Category) (models.Descriptor, error) {
	d, ok := c.descriptors[category]
	if !ok {
		return models.Descriptor{}, fmt.Errorf("%w: %s", ErrUnsupportedCategory, category)
	}
	d.CSVURLs = append([]string(nil), d.CSVURLs...)
	d.Buttons = append([]models.Button(nil), d.Buttons...)
	return d, nil
}

// ResolveButton finds the button named by a caller option key such as
// "VINIFERA" or by its label such as "VINIFERAS". An empty option resolves
// to nil.
func ResolveButton(desc models.Descriptor, option string) (*models.Button, error) {
	if strings.TrimSpace(option) == "" {
		return nil, nil
	}
	key := foldOption(option)
	for i := range desc.Buttons {
		b := desc.Buttons[i]
		if key == foldOption(b.Option) || key == foldOption(b.Label) {
			return &b, nil
		}
	}
	return nil, fmt.Errorf("%w: %q for %s", ErrUnknownSubCategory, option, desc.Category)
}

func foldOption(s string) string {
	return parser.FoldHeader(strings.ReplaceAll(s, "_", " "))
}

// Button resolves a sub-category option for a category.
func (c *Catalog) Button(category models.Category, option string) (*models.Button, error) {
	desc, err := c.Descriptor(category)
	if err != nil {
		return nil, err
	}
	return ResolveButton(desc, option)
}
