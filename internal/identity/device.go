package identity

import (
	"encoding/binary"
	"encoding/hex"
	"math/rand/v2"

	"github.com/google/uuid"

	logpkg "github.com/Watchlog-monitoring/watchlog-rum-go/pkg/log"
)

// newDeviceID returns a fresh random device id. It prefers a
// cryptographically strong UUIDv4 and degrades to a pseudo-random id when
// the entropy source fails.
func newDeviceID() string {
	u, err := uuid.NewRandom()
	if err != nil {
		return pseudoDeviceID()
	}
	return u.String()
}

func pseudoDeviceID() string {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[0:8], rand.Uint64())
	binary.LittleEndian.PutUint64(b[8:16], rand.Uint64())
	return hex.EncodeToString(b[:])
}

// DeviceID reads the persisted device id, creating and persisting one on
// first use. On storage failure it returns a fresh id without persisting;
// the caller always gets a usable id.
func (m *Manager) DeviceID() string {
	if b, err := m.kv.Get(keyDeviceID); err == nil && len(b) > 0 {
		return string(b)
	}
	id := newDeviceID()
	if err := m.kv.Set(keyDeviceID, []byte(id)); err != nil {
		m.logger.Debug("device id not persisted", logpkg.Err(err))
	}
	return id
}
