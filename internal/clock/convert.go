package clock

import (
	"math"
	"math/bits"
	"time"

	"fortio.org/safecast"
)

// ToDuration converts ticks at freq ticks per second, saturating at the
// largest Duration. A zero frequency yields 0.
func ToDuration(ticks, freq uint64) time.Duration {
	if freq == 0 {
		return 0
	}
	hi, lo := bits.Mul64(ticks, uint64(time.Second))
	if hi >= freq {
		return time.Duration(math.MaxInt64)
	}
	q, _ := bits.Div64(hi, lo, freq)
	d, err := safecast.Conv[int64](q)
	if err != nil {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// ToTicks converts d to ticks at freq, rounding down. Negative durations
// yield 0.
func ToTicks(d time.Duration, freq uint64) uint64 {
	ns, err := safecast.Conv[uint64](int64(d))
	if err != nil {
		return 0
	}
	hi, lo := bits.Mul64(ns, freq)
	if hi >= uint64(time.Second) {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, uint64(time.Second))
	return q
}
