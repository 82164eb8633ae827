package clock

import "time"

// Clock provides time to the planner services.
// Tests swap in a manual clock for stable timestamps.
type Clock interface {
	Now() time.Time
}
