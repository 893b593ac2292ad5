package accounting

import "math"

// Counter is a monotonically advancing tally. It only moves forward: Inc
// saturates at the uint32 ceiling instead of wrapping, so a counter value can
// never be observed to decrease.
type Counter uint32

// Inc advances the counter by one.
func (c *Counter) Inc() {
	if *c == math.MaxUint32 {
		return
	}
	*c++
}

// Value returns the current tally as an int for threshold math.
func (c Counter) Value() int {
	return int(c)
}
