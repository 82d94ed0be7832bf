package identity

// KV is the narrow storage surface identity needs. The production
// implementation is the Pebble wrapper; tests substitute in-memory or
// failing stores.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
}

// Storage keys. Shared with any other process reading the same store; races
// are tolerated by failing open on read and never locking across a
// read-modify-write.
var (
	keyDeviceID = []byte("device/id")
	keySession  = []byte("session/current")
)
