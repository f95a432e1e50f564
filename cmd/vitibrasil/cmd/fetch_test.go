package cmd

import (
	"path/filepath"
	"testing"

	"github.com/aluiziolira/go-vitibrasil/models"
	"github.com/aluiziolira/go-vitibrasil/pipeline"
)

func TestResolveCategories(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		sub     string
		want    int
		wantErr bool
	}{
		{name: "all", in: "ALL", want: len(models.Categories)},
		{name: "single", in: "exp", want: 1},
		{name: "single with sub", in: "processing", sub: "VINIFERA", want: 1},
		{name: "all with sub", in: "all", sub: "VINIFERA", wantErr: true},
		{name: "unknown", in: "harvest", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveCategories(tt.in, tt.sub)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("categories = %v, want %d", got, tt.want)
			}
		})
	}
}

func TestCreateWriter(t *testing.T) {
	dir := t.TempDir()

	for _, format := range []string{"csv", "json", "dual", "sqlite"} {
		w, err := createWriter(format, filepath.Join(dir, format, "records.csv"))
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("%s close: %v", format, err)
		}
	}

	w, err := createWriter("table", "")
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if _, ok := w.(*pipeline.TableWriter); !ok {
		t.Fatalf("table format should build a TableWriter, got %T", w)
	}

	if _, err := createWriter("xml", "out.xml"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
