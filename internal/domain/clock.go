package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock supplies the default query date and the processed_at stamp.
var clock = clockwork.NewRealClock()

// SetClock replaces the package clock. nil restores the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}

func now() time.Time {
	return clock.Now().UTC()
}
