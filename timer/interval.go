// Package timer keeps one process-wide one-shot interval timer armed for the
// earliest pending deadline. Expiry is delivered as SIGALRM.
package timer

import (
	"syscall"
	"time"
)

// Signal is the signal raised when the timer expires.
const Signal = syscall.SIGALRM

// minInterval is the smallest non-zero interval the timer accepts; a zero
// interval disarms it.
const minInterval = time.Microsecond

// Interval arms and disarms ITIMER_REAL.
type Interval struct {
	arms    uint64
	disarms uint64
}

func NewInterval() *Interval {
	return &Interval{}
}

// Arm fires the timer once after d. A non-positive d fires immediately.
func (i *Interval) Arm(d time.Duration) error {
	i.arms++
	return setTimer(normalize(d))
}

// Disarm cancels any pending expiry.
func (i *Interval) Disarm() error {
	i.disarms++
	return setTimer(0)
}

// Stats returns how many times the timer was armed and disarmed.
func (i *Interval) Stats() (arms, disarms uint64) {
	return i.arms, i.disarms
}

// normalize clamps d to at least minInterval and rounds it up to a whole
// microsecond so the timer never fires before the deadline.
func normalize(d time.Duration) time.Duration {
	if d < minInterval {
		return minInterval
	}
	if r := d % time.Microsecond; r != 0 {
		d += time.Microsecond - r
	}
	return d
}
