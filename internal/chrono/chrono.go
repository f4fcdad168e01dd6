package chrono

import (
	"time"
)

// Japan has no daylight saving time, so a fixed zone avoids depending on
// the host's tzdata.
var tokyo = time.FixedZone("Asia/Tokyo", 9*60*60)

// Tokyo returns the [*time.Location] the portal's dates are written in.
func Tokyo() *time.Location {
	return tokyo
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time in Asia/Tokyo.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now().In(tokyo)
}

// FixedTime always returns the same instant, it is meant for tests.
type FixedTime struct {
	At time.Time
}

func (f FixedTime) Now() time.Time {
	return f.At.In(tokyo)
}
