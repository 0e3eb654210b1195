package writer

import "time"

// Config holds batch writer settings.
type Config struct {
	BatchSize     int           // Rows per insert batch (default: 500)
	FlushInterval time.Duration // Max time rows wait in the batch (default: 5s)
	BufferSize    int           // Pending merge events before dropping (default: 1000)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		FlushInterval: 5 * time.Second,
		BufferSize:    1000,
	}
}

// Stats counts writer activity.
type Stats struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
	Dropped   int64 // Merge events discarded because the buffer was full
}
