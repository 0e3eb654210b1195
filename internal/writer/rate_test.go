package writer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/altrates/internal/engine"
	"github.com/rickgao/altrates/internal/model"
	"github.com/rickgao/altrates/internal/rates"
)

// fakeResults answers Exec with queued command tags.
type fakeResults struct {
	tags []pgconn.CommandTag
	err  error
}

func (r *fakeResults) Exec() (pgconn.CommandTag, error) {
	if r.err != nil {
		return pgconn.CommandTag{}, r.err
	}
	if len(r.tags) == 0 {
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	tag := r.tags[0]
	r.tags = r.tags[1:]
	return tag, nil
}

func (r *fakeResults) Query() (pgx.Rows, error) { return nil, errors.New("not supported") }
func (r *fakeResults) QueryRow() pgx.Row         { return nil }
func (r *fakeResults) Close() error              { return nil }

type fakeDB struct {
	mu      sync.Mutex
	batches []int
	tags    []pgconn.CommandTag
	err     error
	execs   []string
}

func (d *fakeDB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batches = append(d.batches, b.Len())
	tags := d.tags
	d.tags = nil
	return &fakeResults{tags: tags, err: d.err}
}

func (d *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.execs = append(d.execs, sql)
	return pgconn.NewCommandTag("CREATE TABLE"), d.err
}

func (d *fakeDB) sent() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.batches...)
}

func mergeEvent() engine.MergeEvent {
	return engine.MergeEvent{
		ID:     uuid.New(),
		Source: "stream",
		At:     time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		Rates: rates.Table{
			model.BTC: {model.USD: 10000, model.ETH: 20},
			model.ETH: {model.USD: 500, model.BTC: 0.05},
			model.USD: {model.BTC: 0.0001, model.ETH: 0.002},
		},
	}
}

func TestTransform(t *testing.T) {
	ev := mergeEvent()
	rows := transform(ev)

	require.Len(t, rows, 4, "fiat rows are not persisted")
	assert.Equal(t, "BTC", rows[0].Src)
	assert.Equal(t, "ETH", rows[0].Dst)
	assert.Equal(t, 20.0, rows[0].Rate)
	assert.Equal(t, "BTC", rows[1].Src)
	assert.Equal(t, "USD", rows[1].Dst)
	assert.Equal(t, "ETH", rows[3].Src)
	assert.Equal(t, "USD", rows[3].Dst)

	for _, r := range rows {
		assert.Equal(t, ev.ID.String(), r.SnapshotID)
		assert.Equal(t, "stream", r.Source)
		assert.Equal(t, ev.At, r.MergedAt)
	}
}

func TestRateWriter_FlushCountsConflicts(t *testing.T) {
	db := &fakeDB{tags: []pgconn.CommandTag{
		pgconn.NewCommandTag("INSERT 0 1"),
		pgconn.NewCommandTag("INSERT 0 0"),
	}}
	w := NewRateWriter(DefaultConfig(), db, nil, nil)

	w.handleEvent(context.Background(), mergeEvent())
	w.flush(context.Background())

	stats := w.Stats()
	assert.Equal(t, int64(3), stats.Inserts)
	assert.Equal(t, int64(1), stats.Conflicts)
	assert.Equal(t, int64(1), stats.Flushes)
	assert.Equal(t, []int{4}, db.sent())
}

func TestRateWriter_FlushOnBatchSize(t *testing.T) {
	db := &fakeDB{}
	w := NewRateWriter(Config{BatchSize: 4, FlushInterval: time.Hour, BufferSize: 10}, db, nil, nil)

	w.handleEvent(context.Background(), mergeEvent())
	assert.Equal(t, []int{4}, db.sent())
}

func TestRateWriter_InsertError(t *testing.T) {
	db := &fakeDB{err: errors.New("connection reset")}
	w := NewRateWriter(DefaultConfig(), db, nil, nil)

	w.handleEvent(context.Background(), mergeEvent())
	w.flush(context.Background())

	stats := w.Stats()
	assert.Equal(t, int64(1), stats.Errors)
	assert.Equal(t, int64(0), stats.Inserts)
}

func TestRateWriter_DropsWhenFull(t *testing.T) {
	w := NewRateWriter(Config{BatchSize: 10, FlushInterval: time.Hour, BufferSize: 1}, &fakeDB{}, nil, nil)

	w.HandleMerge(mergeEvent())
	w.HandleMerge(mergeEvent())

	assert.Equal(t, int64(1), w.Stats().Dropped)
}

func TestRateWriter_StartStop(t *testing.T) {
	db := &fakeDB{}
	w := NewRateWriter(Config{BatchSize: 100, FlushInterval: time.Hour, BufferSize: 10}, db, nil, nil)

	require.NoError(t, w.Start(context.Background()))
	w.HandleMerge(mergeEvent())
	w.HandleMerge(mergeEvent())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))

	assert.Equal(t, int64(8), w.Stats().Inserts)
}

func TestEnsureSchema(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, EnsureSchema(context.Background(), db))
	assert.Len(t, db.execs, 2)
	assert.Contains(t, db.execs[0], "CREATE TABLE IF NOT EXISTS rate_history")

	db = &fakeDB{err: errors.New("permission denied")}
	assert.ErrorContains(t, EnsureSchema(context.Background(), db), "permission denied")
}
