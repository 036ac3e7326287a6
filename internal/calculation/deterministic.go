package calculation

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock returns the current time. Engines take one so tests can pin CreatedAt.
type Clock func() time.Time

// IDGenerator returns a new run identifier.
type IDGenerator func() string

// NewRunID returns a time-sortable UUIDv7 run identifier.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// SequentialIDs returns "<prefix>-1", "<prefix>-2", ... for deterministic tests.
func SequentialIDs(prefix string) IDGenerator {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
