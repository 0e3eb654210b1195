package writer

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/altrates/internal/engine"
	"github.com/rickgao/altrates/internal/metrics"
	"github.com/rickgao/altrates/internal/model"
)

const insertRate = `
	INSERT INTO rate_history (snapshot_id, merged_at, source, src, dst, rate)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (snapshot_id, src, dst) DO NOTHING
`

// BatchSender sends queued statements in one round trip.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// rateRow is one altcoin rate of a merged snapshot.
type rateRow struct {
	SnapshotID string
	MergedAt   time.Time
	Source     string
	Src        string
	Dst        string
	Rate       float64
}

// RateWriter persists merged rate snapshots to the rate_history table.
type RateWriter struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Collector

	// Input from the engine's merge listener
	input chan engine.MergeEvent

	// Database
	db BatchSender

	// Batching
	batch       []rateRow
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats Stats
}

// NewRateWriter creates a new RateWriter.
func NewRateWriter(cfg Config, db BatchSender, m *metrics.Collector, logger *slog.Logger) *RateWriter {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	return &RateWriter{
		cfg:     cfg,
		db:      db,
		metrics: m,
		logger:  logger.With("component", "history"),
		input:   make(chan engine.MergeEvent, cfg.BufferSize),
		batch:   make([]rateRow, 0, cfg.BatchSize),
	}
}

// HandleMerge queues ev without blocking. Events are dropped when the buffer is full.
func (w *RateWriter) HandleMerge(ev engine.MergeEvent) {
	select {
	case w.input <- ev:
	default:
		w.batchMu.Lock()
		w.stats.Dropped++
		w.batchMu.Unlock()
		w.metrics.RecordHistoryError()
		w.logger.Warn("history buffer full, dropping snapshot", "snapshot_id", ev.ID, "source", ev.Source)
	}
}

// Start begins consuming merge events and writing to the database.
func (w *RateWriter) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	// Consumer goroutine
	w.wg.Add(1)
	go w.consumeLoop()

	// Flush ticker goroutine
	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("rate writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop shuts down the writer and flushes what is pending using ctx.
func (w *RateWriter) Stop(ctx context.Context) error {
	w.logger.Info("stopping rate writer")

	if w.cancel != nil {
		w.cancel()
	}

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	// Wait for goroutines
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("rate writer stopped")
	case <-ctx.Done():
		w.logger.Warn("rate writer stop timed out")
	}

	// Drain and final flush
	w.drain()
	w.flush(ctx)

	return nil
}

// Stats returns current counters.
func (w *RateWriter) Stats() Stats {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	return w.stats
}

// consumeLoop reads merge events and accumulates batches.
func (w *RateWriter) consumeLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case ev := <-w.input:
			w.handleEvent(w.ctx, ev)
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *RateWriter) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// drain moves queued events into the batch without flushing.
func (w *RateWriter) drain() {
	for {
		select {
		case ev := <-w.input:
			w.batchMu.Lock()
			w.batch = append(w.batch, transform(ev)...)
			w.batchMu.Unlock()
		default:
			return
		}
	}
}

// handleEvent transforms and adds an event's rows to the batch.
func (w *RateWriter) handleEvent(ctx context.Context, ev engine.MergeEvent) {
	rows := transform(ev)

	w.batchMu.Lock()
	w.batch = append(w.batch, rows...)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(ctx)
	}
}

// transform converts a merge event into one row per altcoin rate, ordered by pair.
func transform(ev engine.MergeEvent) []rateRow {
	var rows []rateRow
	for src, row := range ev.Rates {
		if slices.Contains(model.Fiats, src) {
			continue
		}
		for dst, v := range row {
			rows = append(rows, rateRow{
				SnapshotID: ev.ID.String(),
				MergedAt:   ev.At,
				Source:     ev.Source,
				Src:        string(src),
				Dst:        string(dst),
				Rate:       v,
			})
		}
	}
	slices.SortFunc(rows, func(a, b rateRow) int {
		if c := cmp.Compare(a.Src, b.Src); c != 0 {
			return c
		}
		return cmp.Compare(a.Dst, b.Dst)
	})
	return rows
}

// flush writes the current batch to the database.
func (w *RateWriter) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]rateRow, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.stats.Errors++
		w.batchMu.Unlock()
		w.metrics.RecordHistoryError()
		return
	}

	w.batchMu.Lock()
	w.stats.Inserts += int64(len(batch) - conflicts)
	w.stats.Conflicts += int64(conflicts)
	w.stats.Flushes++
	w.batchMu.Unlock()
	w.metrics.RecordHistoryRows(len(batch) - conflicts)

	w.logger.Debug("flushed rates",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *RateWriter) batchInsert(ctx context.Context, rows []rateRow) (conflicts int, err error) {
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(insertRate, r.SnapshotID, r.MergedAt, r.Source, r.Src, r.Dst, r.Rate)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
