package cache

import (
	"context"
	"log/slog"
)

// Recorder counts lookups. observability.ConversionMetrics satisfies it.
type Recorder interface {
	RecordCache(ctx context.Context, hit bool)
}

// Cache is a two-level result cache: an in-memory LRU in front of an
// optional disk store. Disk failures degrade to misses and are logged.
type Cache struct {
	memory   *LRU
	disk     *Disk
	recorder Recorder
	logger   *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithDisk adds a disk level.
func WithDisk(disk *Disk) Option {
	return func(c *Cache) { c.disk = disk }
}

// WithRecorder reports hits and misses to recorder.
func WithRecorder(recorder Recorder) Option {
	return func(c *Cache) { c.recorder = recorder }
}

// WithLogger sets the logger for disk failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// New creates a cache keeping entries results in memory.
func New(entries int, opts ...Option) *Cache {
	c := &Cache{
		memory: NewLRU(entries),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get looks key up in memory, then on disk. Disk hits are promoted.
func (c *Cache) Get(ctx context.Context, key Key) (string, bool) {
	if output, ok := c.memory.Get(key); ok {
		c.record(ctx, true)

		return output, true
	}

	if c.disk != nil {
		output, ok, err := c.disk.Get(key)
		if err != nil {
			c.logger.WarnContext(ctx, "cache read failed", "key", key.String(), "error", err)
		}

		if ok {
			c.memory.Put(key, output)
			c.record(ctx, true)

			return output, true
		}
	}

	c.record(ctx, false)

	return "", false
}

// Put stores output in every level.
func (c *Cache) Put(ctx context.Context, key Key, output string) {
	c.memory.Put(key, output)

	if c.disk == nil {
		return
	}

	err := c.disk.Put(key, output)
	if err != nil {
		c.logger.WarnContext(ctx, "cache write failed", "key", key.String(), "error", err)
	}
}

// GetOrCompute returns the cached output for key, or computes and stores
// it. Failed computations are not cached. Concurrent calls for the same
// key may compute more than once.
func (c *Cache) GetOrCompute(ctx context.Context, key Key, compute func() (string, error)) (output string, hit bool, err error) {
	if cached, ok := c.Get(ctx, key); ok {
		return cached, true, nil
	}

	output, err = compute()
	if err != nil {
		return "", false, err
	}

	c.Put(ctx, key, output)

	return output, false, nil
}

// Stats returns the in-memory level statistics.
func (c *Cache) Stats() Stats {
	return c.memory.Stats()
}

func (c *Cache) record(ctx context.Context, hit bool) {
	if c.recorder != nil {
		c.recorder.RecordCache(ctx, hit)
	}
}
