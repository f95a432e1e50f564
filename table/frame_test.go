package table

import (
	"reflect"
	"testing"
)

func TestFrameConcatUnionsColumns(t *testing.T) {
	a := NewFrame("Cultivar", "Quantidade (Kg)", "Ano")
	if err := a.Append([]string{"Bordo", "10", "2020"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	b := NewFrame("Sem definição", "Quantidade (Kg)", "Ano")
	if err := b.Append([]string{"Outras", "3", "2020"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	a.Concat(b)

	wantCols := []string{"Cultivar", "Quantidade (Kg)", "Ano", "Sem definição"}
	if !reflect.DeepEqual(a.Columns, wantCols) {
		t.Fatalf("columns = %v, want %v", a.Columns, wantCols)
	}
	wantRows := [][]string{
		{"Bordo", "10", "2020", ""},
		{"", "3", "2020", "Outras"},
	}
	if !reflect.DeepEqual(a.Rows, wantRows) {
		t.Fatalf("rows = %v, want %v", a.Rows, wantRows)
	}
}

func TestFrameIndexFoldsAccents(t *testing.T) {
	f := NewFrame("Países", "Quantidade (Kg)")
	if got := f.Index("PAISES"); got != 0 {
		t.Fatalf("Index(PAISES) = %d, want 0", got)
	}
	if got := f.Index("valor"); got != -1 {
		t.Fatalf("Index(valor) = %d, want -1", got)
	}
}

func TestFrameDropAndSet(t *testing.T) {
	f := NewFrame("id", "produto", "2020")
	_ = f.Append([]string{"1", "Tinto", "5"})
	f.Drop("id", "missing")
	f.Set(0, "Botao", "VINIFERAS")

	want := [][]string{{"Tinto", "5", "VINIFERAS"}}
	if !reflect.DeepEqual(f.Rows, want) {
		t.Fatalf("rows = %v, want %v", f.Rows, want)
	}
	if f.Get(0, "PRODUTO") != "Tinto" {
		t.Fatalf("Get should fold column names")
	}
}

func TestFrameConcatMatchesFoldedHeaders(t *testing.T) {
	a := NewFrame("Id", "País", "2020")
	_ = a.Append([]string{"1", "Chile", "5"})
	b := NewFrame("Id", "Pais", "2020")
	_ = b.Append([]string{"1", "Argentina", "7"})
	c := NewFrame("Id", "PAÍS", "2020", "2020.1")
	_ = c.Append([]string{"1", "Peru", "9", "90"})

	a.Concat(b)
	a.Concat(c)

	wantCols := []string{"Id", "País", "2020", "2020.1"}
	if !reflect.DeepEqual(a.Columns, wantCols) {
		t.Fatalf("columns = %v, want %v", a.Columns, wantCols)
	}
	wantRows := [][]string{
		{"1", "Chile", "5", ""},
		{"1", "Argentina", "7", ""},
		{"1", "Peru", "9", "90"},
	}
	if !reflect.DeepEqual(a.Rows, wantRows) {
		t.Fatalf("rows = %v, want %v", a.Rows, wantRows)
	}
}

func TestFrameConcatKeepsFoldedDuplicatesApart(t *testing.T) {
	a := NewFrame("Pais")
	b := NewFrame("PAIS", "País")
	_ = b.Append([]string{"x", "y"})

	a.Concat(b)

	if want := []string{"Pais", "País"}; !reflect.DeepEqual(a.Columns, want) {
		t.Fatalf("columns = %v, want %v", a.Columns, want)
	}
	if want := [][]string{{"x", "y"}}; !reflect.DeepEqual(a.Rows, want) {
		t.Fatalf("rows = %v, want %v", a.Rows, want)
	}
}
