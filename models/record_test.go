package models

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"
)

func TestRecordMarshalJSONKeepsColumnOrder(t *testing.T) {
	value := int64(42)
	tests := []struct {
		name   string
		record Record
		want   string
	}{
		{
			name:   "production",
			record: Record{Category: Production, Entity: "TINTO", Classification: "VINHO DE MESA", Year: 2020, Quantity: 7},
			want:   `{"Produto":"TINTO","Classificação":"VINHO DE MESA","Ano":2020,"Quantidade":7}`,
		},
		{
			name:   "processing",
			record: Record{Category: Processing, Entity: "BORDO", Classification: "TINTAS", Year: 2021, Quantity: 3, SubCategory: "VINIFERAS"},
			want:   `{"Cultivar":"BORDO","Classificação":"TINTAS","Ano":2021,"Quantidade":3,"Botao":"VINIFERAS"}`,
		},
		{
			name:   "trade with value",
			record: Record{Category: Import, Entity: "CHILE", Year: 2022, Quantity: 1, Value: &value, SubCategory: "ESPUMANTES"},
			want:   `{"Países":"CHILE","Ano":2022,"Quantidade":1,"Valor (US$)":42,"Botao":"ESPUMANTES"}`,
		},
		{
			name:   "trade without value",
			record: Record{Category: Export, Entity: "CHILE", Year: 2022, Quantity: 1},
			want:   `{"Países":"CHILE","Ano":2022,"Quantidade":1,"Valor (US$)":null,"Botao":""}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.record)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("json = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRecordMarshalJSONUnknownCategory(t *testing.T) {
	if _, err := json.Marshal(Record{Entity: "X"}); err == nil {
		t.Fatalf("expected error for unknown category")
	}
}

func TestRecordKeyIgnoresQuantity(t *testing.T) {
	a := Record{Category: Import, Entity: "CHILE", Year: 2020, Quantity: 1, SubCategory: "ESPUMANTES"}
	b := a
	b.Quantity = 2
	if a.Key() != b.Key() {
		t.Fatalf("keys differ on quantity")
	}
	b.SubCategory = "SUCO DE UVA"
	if a.Key() == b.Key() {
		t.Fatalf("keys should differ on sub-category")
	}
}

func TestParseCategory(t *testing.T) {
	for in, want := range map[string]Category{
		"production":      Production,
		" Proces ":        Processing,
		"comercializacao": Commercialization,
		"IMP":             Import,
		"export":          Export,
	} {
		got, err := ParseCategory(in)
		if err != nil || got != want {
			t.Fatalf("ParseCategory(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseCategory("harvest"); !errors.Is(err, ErrUnsupportedCategory) {
		t.Fatalf("ParseCategory(harvest) error = %v, want ErrUnsupportedCategory", err)
	}
}

func TestDescriptorPageURL(t *testing.T) {
	d := Descriptor{SiteURL: "http://vitibrasil.test/index.php", Option: "opt_03"}
	if got := d.PageURL(); got != "http://vitibrasil.test/index.php?opcao=opt_03" {
		t.Fatalf("PageURL = %s", got)
	}
}

func TestDescriptorQueryURLKeepsExistingQuery(t *testing.T) {
	d := Descriptor{SiteURL: "http://vitibrasil.test/index.php?lang=pt&opcao=opt_01", Option: "opt_05"}

	if got, want := d.PageURL(), "http://vitibrasil.test/index.php?lang=pt&opcao=opt_05"; got != want {
		t.Fatalf("PageURL = %s, want %s", got, want)
	}

	params := url.Values{}
	params.Set("ano", "2021")
	params.Set("opcao", "opt_05")
	got, err := url.Parse(d.QueryURL(params))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := got.Query()
	if q.Get("lang") != "pt" || q.Get("ano") != "2021" || q.Get("opcao") != "opt_05" || len(q["opcao"]) != 1 {
		t.Fatalf("query = %v", q)
	}
	if got.Path != "/index.php" {
		t.Fatalf("path = %s", got.Path)
	}
}
