package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Generator produces a fresh identifier on every call. Implementations must be
// safe for concurrent use.
type Generator func() string

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// CreateULID returns a time-sortable ULID encoded as a 26-character string.
// It is the default correlation ID generator.
func CreateULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return id.String()
}

// CreateUUID returns a random (v4) UUID for callers that need the canonical
// 36-character form on the wire.
func CreateUUID() string {
	return uuid.NewString()
}

// Default is the process-wide generator used when none is configured.
var Default Generator = CreateULID
