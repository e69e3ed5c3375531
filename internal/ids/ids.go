// Package ids generates identifiers: sortable ULIDs for storage keys and
// UUIDs for identifiers exposed outside the service.
package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier suitable for storage
// keys.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewPublic returns an identifier safe to expose in API responses and
// token claims. Public ids carry no ordering information.
func NewPublic() string {
	return uuid.NewString()
}
