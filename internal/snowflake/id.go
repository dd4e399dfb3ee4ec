// Package snowflake provides a time-ordered unique ID generator.
package snowflake

import (
	"math/rand"
	"time"
)

// ID is a 64 bit unique identifier which sorts by creation time.
type ID uint64

// Now returns a new ID for the current time.
func Now() ID {
	return TimeToID(time.Now())
}

// TimeToID converts a time.Time to an ID.
func TimeToID(ts time.Time) ID {
	// 48 bits for time in milliseconds.
	// 0 bits for worker ID.
	// 0 bits for sequence.
	// 16 bits for random.
	return ID(uint64(ts.UnixNano()/int64(time.Millisecond))<<16 | uint64(rand.Intn(1<<16)))
}

// IDToTime converts an ID to a time.Time.
func IDToTime(id ID) time.Time {
	return time.Unix(0, int64(id>>16)*1e6)
}
