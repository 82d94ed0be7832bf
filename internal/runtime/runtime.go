package runtime

import (
	cfgpkg "github.com/Watchlog-monitoring/watchlog-rum-go/internal/config"
	"github.com/Watchlog-monitoring/watchlog-rum-go/internal/identity"
	pebblestore "github.com/Watchlog-monitoring/watchlog-rum-go/internal/storage/pebble"
	logpkg "github.com/Watchlog-monitoring/watchlog-rum-go/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir string
	Fsync   pebblestore.FsyncMode
	Logger  logpkg.Logger
}

// Runtime wires storage and identity for a single agent instance.
type Runtime struct {
	db       *pebblestore.DB
	identity *identity.Manager
}

// Open initializes the identity store and returns a Runtime. When the store
// cannot be opened, identity degrades to unpersisted in-memory values rather
// than failing: telemetry must never break the host.
func Open(opts Options) *Runtime {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = cfgpkg.DefaultDataDir()
	}

	rt := &Runtime{}
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dataDir, Fsync: opts.Fsync})
	if err != nil {
		logger.Warn("identity store unavailable, running unpersisted", logpkg.Err(err))
		rt.identity = identity.NewManager(unavailableKV{}, logger)
		return rt
	}
	rt.db = db
	rt.identity = identity.NewManager(db, logger)
	return rt
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Identity returns the identity manager.
func (r *Runtime) Identity() *identity.Manager { return r.identity }

// unavailableKV stands in when the store could not be opened; every
// operation fails so identity stays fail-open and in-memory.
type unavailableKV struct{}

func (unavailableKV) Get([]byte) ([]byte, error) { return nil, pebblestore.ErrNotFound }
func (unavailableKV) Set([]byte, []byte) error   { return pebblestore.ErrNotFound }
