package pebblestore

import (
	"errors"
	"time"

	"github.com/cockroachdb/pebble"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("pebblestore: not found")

// FsyncMode defines durability behavior for write operations.
type FsyncMode int

const (
	FsyncModeUnspecified FsyncMode = iota
	// FsyncModeAlways requests a WAL fsync on each committed write.
	FsyncModeAlways
	// FsyncModeInterval enables group-commit by allowing Pebble to coalesce
	// WAL syncs for operations within the configured interval.
	FsyncModeInterval
	// FsyncModeNever avoids forcing WAL syncs from the application. A crash
	// may lose the most recent activity refresh, which only shortens the
	// session's effective TTL.
	FsyncModeNever
)

// Options configures the Pebble store wrapper.
type Options struct {
	// DataDir is the path to the Pebble database directory.
	DataDir string
	// Fsync determines when to sync the WAL.
	Fsync FsyncMode
	// FsyncInterval controls group-commit when Fsync=FsyncModeInterval.
	FsyncInterval time.Duration
}

// DB wraps a Pebble database instance with the configured fsync policy.
type DB struct {
	inner     *pebble.DB
	writeSync bool
}

// Open creates or opens a Pebble database with the provided options.
func Open(opts Options) (*DB, error) {
	if opts.DataDir == "" {
		return nil, errors.New("pebblestore: Options.DataDir is required")
	}

	po := &pebble.Options{}
	switch opts.Fsync {
	case FsyncModeAlways:
		// Sync requested per commit below; WALMinSyncInterval stays default.
	case FsyncModeInterval:
		if opts.FsyncInterval <= 0 {
			opts.FsyncInterval = 5 * time.Millisecond
		}
		po.WALMinSyncInterval = func() time.Duration { return opts.FsyncInterval }
	case FsyncModeNever:
	default:
		po.WALMinSyncInterval = func() time.Duration { return 5 * time.Millisecond }
	}

	inner, err := pebble.Open(opts.DataDir, po)
	if err != nil {
		return nil, err
	}

	return &DB{
		inner:     inner,
		writeSync: opts.Fsync == FsyncModeAlways,
	}, nil
}

// Close closes the Pebble database.
func (db *DB) Close() error {
	if db == nil || db.inner == nil {
		return nil
	}
	return db.inner.Close()
}

func (db *DB) writeOpts() *pebble.WriteOptions {
	if db.writeSync {
		return pebble.Sync
	}
	return pebble.NoSync
}

// Set sets a key to a value respecting the fsync policy.
func (db *DB) Set(key, value []byte) error {
	return db.inner.Set(key, value, db.writeOpts())
}

// Delete removes a key respecting the fsync policy.
func (db *DB) Delete(key []byte) error {
	return db.inner.Delete(key, db.writeOpts())
}

// Get copies the value for the given key. Returns ErrNotFound when absent.
func (db *DB) Get(key []byte) ([]byte, error) {
	val, closer, err := db.inner.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer closer.Close()
	return append([]byte(nil), val...), nil
}
