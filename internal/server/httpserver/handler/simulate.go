package handler

import (
	"math/rand/v2"
	"time"
)

// DelayRange is an inclusive range of simulated work durations.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

// Pick returns a uniformly random duration in [Min, Max]. A range with
// Max <= Min yields Min.
func (d DelayRange) Pick() time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + rand.N(d.Max-d.Min+1)
}

// SleepRandom blocks for a random duration drawn from d. It is not
// interrupted by request cancellation.
func SleepRandom(d DelayRange) {
	if pause := d.Pick(); pause > 0 {
		time.Sleep(pause)
	}
}
