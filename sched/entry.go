// Package sched is the reactor's event queue: callbacks ordered by absolute
// deadline, with a sequence number breaking ties, driving a one-shot alarm
// that always targets the earliest deadline.
package sched

import (
	"fmt"
	"time"
)

// Action is a unit of deferred work. Arguments are captured by the closure.
type Action func() error

// Handle identifies one scheduled entry for cancellation. The zero Handle
// never identifies an entry.
type Handle uint64

// Kind tags what an entry does when it fires.
type Kind uint8

const (
	// KindAction runs a user Action.
	KindAction Kind = iota
	// KindStop ends the reactor loop.
	KindStop
)

func (k Kind) String() string {
	switch k {
	case KindAction:
		return "action"
	case KindStop:
		return "stop"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Alarm is a one-shot timer the queue keeps armed for its earliest entry.
type Alarm interface {
	Arm(d time.Duration) error
	Disarm() error
}

// key orders entries by offset from the queue epoch then sequence.
type key struct {
	at  int64
	seq Handle
}

func compareKeys(lhs, rhs interface{}) int {
	l, r := lhs.(key), rhs.(key)
	switch {
	case l.at < r.at:
		return -1
	case l.at > r.at:
		return 1
	case l.seq < r.seq:
		return -1
	case l.seq > r.seq:
		return 1
	}
	return 0
}

// Entry is a scheduled action with its deadline.
type Entry struct {
	Deadline time.Time
	Seq      Handle
	Kind     Kind
	action   Action

	// offset is the delay of an entry scheduled before the queue started.
	offset   time.Duration
	pending  bool
	canceled bool

	// order is the skiplist key, fixed when the entry is placed.
	order key
}

// Run executes the entry's action. Stop entries do nothing.
func (e *Entry) Run() error {
	if e.Kind != KindAction || e.action == nil {
		return nil
	}
	return e.action()
}

func (e *Entry) String() string {
	if e.pending {
		return fmt.Sprintf("<Entry %d %v +%v>", e.Seq, e.Kind, e.offset)
	}
	return fmt.Sprintf("<Entry %d %v %v>", e.Seq, e.Kind, e.Deadline.Format(time.RFC3339Nano))
}
