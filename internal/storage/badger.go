package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// BadgerEngine implements KVEngine on Badger v3.
type BadgerEngine struct {
	db     *badger.DB
	cfg    KVConfig
	logger *slog.Logger

	lastGC atomic.Int64 // unix milliseconds

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewBadgerEngine opens the database and starts periodic value log GC.
func NewBadgerEngine(cfg KVConfig, logger *slog.Logger) (*BadgerEngine, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, errors.New("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "badger")

	opts := badger.DefaultOptions(cfg.Dir).
		WithLogger(badgerLogger{logger}).
		WithSyncWrites(cfg.SyncWrites)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", cfg.Dir, err)
	}

	e := &BadgerEngine{db: db, cfg: cfg, logger: logger, stop: make(chan struct{})}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		e.wg.Add(1)
		go e.gcLoop()
	}
	logger.Info("session database opened", "dir", cfg.Dir, "in_memory", cfg.InMemory)
	return e, nil
}

// Scan iterates over keys with a given prefix.
func (e *BadgerEngine) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	return e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !fn(item.KeyCopy(nil), value) {
				return nil
			}
		}
		return nil
	})
}

// ReplacePrefix drops the stale keys under prefix and writes entries in a
// single transaction. Every entry key must carry prefix.
func (e *BadgerEngine) ReplacePrefix(ctx context.Context, prefix []byte, entries map[string][]byte) error {
	for key := range entries {
		if !bytes.HasPrefix([]byte(key), prefix) {
			return fmt.Errorf("badger: key %q outside prefix %q", key, prefix)
		}
	}
	return e.db.Update(func(txn *badger.Txn) error {
		var stale [][]byte
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			if _, ok := entries[string(it.Item().Key())]; !ok {
				stale = append(stale, it.Item().KeyCopy(nil))
			}
		}
		it.Close()

		for _, key := range stale {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for key, value := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := txn.Set([]byte(key), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// RunGC rewrites value log files until Badger reports nothing to reclaim.
func (e *BadgerEngine) RunGC(ctx context.Context) (int, error) {
	if e.cfg.InMemory {
		return 0, nil
	}
	cycles := 0
	for ctx.Err() == nil {
		err := e.db.RunValueLogGC(e.cfg.GCDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			break
		}
		if err != nil {
			return cycles, fmt.Errorf("badger: gc: %w", err)
		}
		cycles++
	}
	e.lastGC.Store(time.Now().UnixMilli())
	return cycles, ctx.Err()
}

// Close stops GC and closes the database. It is safe to call more than
// once.
func (e *BadgerEngine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.stop)
		e.wg.Wait()
		if cerr := e.db.Close(); cerr != nil {
			err = fmt.Errorf("badger: close: %w", cerr)
			return
		}
		e.logger.Info("session database closed")
	})
	return err
}

func (e *BadgerEngine) gcLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), e.cfg.GCInterval)
			cycles, err := e.RunGC(ctx)
			cancel()
			if err != nil {
				e.logger.Warn("value log gc failed", "error", err)
				continue
			}
			e.logger.Debug("value log gc done", "cycles", cycles)
		case <-e.stop:
			return
		}
	}
}

// Collector exposes database sizes as gauges read at scrape time.
func (e *BadgerEngine) Collector(namespace string) prometheus.Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "session_db", name), help, nil, nil)
	}
	return &badgerCollector{
		engine: e,
		lsm:    desc("lsm_size_bytes", "Size of the session database LSM tree."),
		vlog:   desc("value_log_size_bytes", "Size of the session database value log."),
		lastGC: desc("last_gc_timestamp_seconds", "Time of the last completed value log GC."),
	}
}

type badgerCollector struct {
	engine            *BadgerEngine
	lsm, vlog, lastGC *prometheus.Desc
}

func (c *badgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.lsm
	ch <- c.vlog
	ch <- c.lastGC
}

func (c *badgerCollector) Collect(ch chan<- prometheus.Metric) {
	lsm, vlog := c.engine.db.Size()
	ch <- prometheus.MustNewConstMetric(c.lsm, prometheus.GaugeValue, float64(lsm))
	ch <- prometheus.MustNewConstMetric(c.vlog, prometheus.GaugeValue, float64(vlog))
	ch <- prometheus.MustNewConstMetric(c.lastGC, prometheus.GaugeValue, float64(c.engine.lastGC.Load())/1000)
}

// badgerLogger routes Badger's printf logging into slog. Badger's info
// chatter is demoted to debug.
type badgerLogger struct{ l *slog.Logger }

func (b badgerLogger) Errorf(f string, a ...interface{}) { b.l.Error(fmt.Sprintf(f, a...)) }
func (b badgerLogger) Warningf(f string, a ...interface{}) { b.l.Warn(fmt.Sprintf(f, a...)) }
func (b badgerLogger) Infof(f string, a ...interface{}) { b.l.Debug(fmt.Sprintf(f, a...)) }
func (b badgerLogger) Debugf(f string, a ...interface{}) { b.l.Debug(fmt.Sprintf(f, a...)) }
