package pipeline

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/aluiziolira/go-vitibrasil/config"
	"github.com/aluiziolira/go-vitibrasil/models"
)

type mockWriter struct {
	mu          sync.Mutex
	batches     [][]models.Record
	closed      bool
	validateErr error
}

func (mw *mockWriter) Write(records []models.Record) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	copyBatch := make([]models.Record, len(records))
	copy(copyBatch, records)
	mw.batches = append(mw.batches, copyBatch)
	return nil
}

func (mw *mockWriter) Close() error {
	mw.mu.Lock()
	mw.closed = true
	mw.mu.Unlock()
	return nil
}

func (mw *mockWriter) Validate() error {
	return mw.validateErr
}

func (mw *mockWriter) totalWritten() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	total := 0
	for _, batch := range mw.batches {
		total += len(batch)
	}
	return total
}

func (mw *mockWriter) batchSizes() []int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	sizes := make([]int, 0, len(mw.batches))
	for _, batch := range mw.batches {
		sizes = append(sizes, len(batch))
	}
	return sizes
}

type failingWriter struct{}

func (failingWriter) Write([]models.Record) error { return errors.New("disk full") }
func (failingWriter) Close() error                { return nil }
func (failingWriter) Validate() error             { return nil }

func record(entity string, year int) models.Record {
	return models.Record{Category: models.Production, Entity: entity, Classification: "VINHO DE MESA", Year: year, Quantity: 10}
}

func TestPipelineProcessValidationAndTotals(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{}
	p := NewPipeline(writer, cfg)
	p.Start(1)

	value := int64(500)
	records := []models.Record{
		record("TINTO", 2020),
		record("BRANCO", 2018),
		record("", 2020),
		{Category: models.Production, Entity: "ROSADO", Year: 2021, Quantity: 1, Value: &value},
		{Category: models.Export, Entity: "CHILE", Year: 2019, Quantity: 3, Value: &value, SubCategory: "ESPUMANTES"},
		{Category: models.Export, Entity: "PERU", Year: 2021, Quantity: 4, SubCategory: "ESPUMANTES"},
	}
	if err := p.Process(records); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := writer.totalWritten(); got != 4 {
		t.Fatalf("written records = %d, want 4", got)
	}

	metrics := p.GetMetrics()
	if got := metrics["processed_records"].(int64); got != 4 {
		t.Fatalf("processed = %d, want 4", got)
	}
	validation := metrics["validation_errors"].(map[string]int)
	if validation["invalid_record"] != 1 || validation["unexpected_value"] != 1 {
		t.Fatalf("validation = %v", validation)
	}

	totals := metrics["categories"].(map[string]CategoryTotals)
	want := map[string]CategoryTotals{
		"production": {Records: 2, Quantity: 20, FirstYear: 2018, LastYear: 2020},
		"export":     {Records: 2, Quantity: 7, Value: 500, FirstYear: 2019, LastYear: 2021},
	}
	if !reflect.DeepEqual(totals, want) {
		t.Fatalf("totals = %+v, want %+v", totals, want)
	}
}

func TestPipelineKeepsRepeatedKeys(t *testing.T) {
	writer := &mockWriter{}
	p := NewPipeline(writer, config.DefaultConfig())
	p.Start(1)

	first := record("TINTO", 2020)
	second := first
	second.Quantity = 99
	if err := p.Process([]models.Record{first, second}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := writer.totalWritten(); got != 2 {
		t.Fatalf("written records = %d, want 2", got)
	}
}

func TestPipelineBatchFlushThreshold(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BatchSize = 64
	writer := &mockWriter{}
	p := NewPipeline(writer, cfg)
	p.Start(1)

	for i := 0; i < 65; i++ {
		if err := p.Process([]models.Record{record("TINTO", 1900+i)}); err != nil {
			t.Fatalf("process: %v", err)
		}
	}

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	sizes := writer.batchSizes()
	if len(sizes) != 2 {
		t.Fatalf("batch writes = %d, want 2", len(sizes))
	}
	if sizes[0] != 64 || sizes[1] != 1 {
		t.Fatalf("batch sizes = %v, want [64 1]", sizes)
	}
}

func TestPipelineCloseDrainsPendingItems(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{}
	p := NewPipeline(writer, cfg)
	p.Start(2)

	for i := 0; i < 100; i++ {
		if err := p.Process([]models.Record{record("BRANCO", 1900+i)}); err != nil {
			t.Fatalf("process: %v", err)
		}
	}

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := writer.totalWritten(); got != 100 {
		t.Fatalf("written records = %d, want 100", got)
	}
}

func TestPipelineWriteErrorStopsProcessing(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BatchSize = 1
	p := NewPipeline(failingWriter{}, cfg)
	p.Start(1)

	_ = p.Process([]models.Record{record("TINTO", 2020)})
	err := p.Close()
	if err == nil {
		t.Fatalf("expected write error")
	}

	if err := p.Process([]models.Record{record("TINTO", 2021)}); err == nil {
		t.Fatalf("process after failure should error")
	}
}

func TestPipelineProcessAfterClose(t *testing.T) {
	p := NewPipeline(&mockWriter{}, config.DefaultConfig())
	p.Start(1)
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Process([]models.Record{record("TINTO", 2020)}); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("expected ErrPipelineClosed, got %v", err)
	}
}
