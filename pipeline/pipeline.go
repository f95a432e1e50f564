package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-vitibrasil/config"
	"github.com/aluiziolira/go-vitibrasil/models"
	"github.com/aluiziolira/go-vitibrasil/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(records []models.Record) error
	Close() error
	Validate() error
}

// CategoryTotals summarises the records written for one category.
type CategoryTotals struct {
	Records   int64
	Quantity  int64
	Value     int64 // trade categories only; records without a value add nothing
	FirstYear int
	LastYear  int
}

func (t *CategoryTotals) add(r *models.Record) {
	if t.Records == 0 || r.Year < t.FirstYear {
		t.FirstYear = r.Year
	}
	if r.Year > t.LastYear {
		t.LastYear = r.Year
	}
	t.Records++
	t.Quantity += r.Quantity
	if r.Value != nil {
		t.Value += *r.Value
	}
}

// Pipeline validates records, batches them to the writer and keeps
// per-category totals. Records arrive already de-duplicated per fetch.
type Pipeline struct {
	writer    OutputWriter
	recordCh  chan models.Record
	batchSize int

	wg sync.WaitGroup

	metrics metrics

	mu     sync.Mutex // guards closed/err
	closed bool
	err    error

	closeOnce    sync.Once
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewPipeline builds a pipeline batching writes by cfg.BatchSize.
func NewPipeline(writer OutputWriter, cfg *config.Config) *Pipeline {
	batchSize := 64
	if cfg != nil && cfg.BatchSize > 0 {
		batchSize = cfg.BatchSize
	}
	return &Pipeline{
		writer:    writer,
		recordCh:  make(chan models.Record, 512),
		batchSize: batchSize,
		metrics:   newMetrics(),
		shutdown:  make(chan struct{}),
	}
}

// Start launches worker goroutines.
func (p *Pipeline) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Process enqueues records for downstream processing.
func (p *Pipeline) Process(records []models.Record) error {
	if len(records) == 0 {
		return nil
	}

	closed, err := p.state()
	if err != nil {
		return err
	}
	if closed {
		return ErrPipelineClosed
	}

	for _, r := range records {
		if err := p.enqueue(r); err != nil {
			return err
		}
	}
	return nil
}

// Close waits for workers to finish and prevents more submissions.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
	}
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.recordCh)
	})

	p.wg.Wait()
	return p.Err()
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// StartMetricsReporting emits periodic progress logs.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				metrics := p.GetMetrics()
				slog.Info("pipeline progress",
					slog.Int64("processed", metrics["processed_records"].(int64)),
					slog.Int("validation_errors", len(metrics["validation_errors"].(map[string]int))),
				)
			case <-p.shutdown:
				return
			}
		}
	}()
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	batch := make([]models.Record, 0, p.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := p.writer.Write(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for r := range p.recordCh {
		if !p.accept(&r) {
			continue
		}
		batch = append(batch, r)
		if len(batch) >= p.batchSize {
			if err := flush(); err != nil {
				p.setErr(fmt.Errorf("write batch: %w", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		p.setErr(fmt.Errorf("write batch: %w", err))
	}
}

func (p *Pipeline) accept(r *models.Record) bool {
	if err := parser.ValidateRecord(r); err != nil {
		p.metrics.addValidation("invalid_record")
		slog.Debug("record rejected", slog.Any("error", err))
		return false
	}
	if r.Value != nil && !r.Category.IsTrade() {
		p.metrics.addValidation("unexpected_value")
		slog.Debug("record rejected",
			slog.String("category", r.Category.String()),
			slog.String("entity", r.Entity),
			slog.String("reason", "value outside trade"),
		)
		return false
	}
	p.metrics.record(r)
	return true
}

func (p *Pipeline) enqueue(r models.Record) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = ErrPipelineClosed
		}
	}()

	select {
	case <-p.shutdown:
		return ErrPipelineClosed
	case p.recordCh <- r:
		return nil
	}
}

func (p *Pipeline) setErr(err error) {
	if err == nil {
		return
	}

	p.mu.Lock()
	if p.err != nil {
		p.mu.Unlock()
		return
	}
	p.err = err
	p.closed = true
	p.mu.Unlock()

	p.signalShutdown()
	p.closeOnce.Do(func() {
		close(p.recordCh)
	})
}

func (p *Pipeline) state() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed, p.err
}

func (p *Pipeline) signalShutdown() {
	p.shutdownOnce.Do(func() {
		close(p.shutdown)
	})
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	validation map[string]int
	categories map[string]*CategoryTotals
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
		categories: make(map[string]*CategoryTotals),
	}
}

func (m *metrics) record(r *models.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed++
	name := r.Category.String()
	totals, ok := m.categories[name]
	if !ok {
		totals = &CategoryTotals{}
		m.categories[name] = totals
	}
	totals.add(r)
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}
	copyCategories := make(map[string]CategoryTotals, len(m.categories))
	for k, v := range m.categories {
		copyCategories[k] = *v
	}

	return map[string]interface{}{
		"processed_records": m.processed,
		"validation_errors": copyValidation,
		"categories":        copyCategories,
	}
}
