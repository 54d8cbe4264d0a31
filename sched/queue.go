package sched

import (
	"time"

	"github.com/eapache/queue"
	"github.com/huandu/skiplist"
	"github.com/pkg/errors"
	slog "github.com/vearne/simplelog"

	"github.com/vearne/netsched/consts"
)

// Queue holds scheduled entries sorted by (deadline, sequence).
//
// Until Start is called the queue is not anchored: relative entries are kept
// as pending offsets and the alarm is never armed. Start converts pending
// entries against the reference time and arms the alarm.
//
// A Queue is not safe for concurrent use; it belongs to the reactor goroutine.
type Queue struct {
	list    *skiplist.SkipList
	pending *queue.Queue
	live    map[Handle]*Entry
	seq     Handle

	alarm Alarm
	now   func() time.Time
	// epoch is the clock reading keys are measured from.
	epoch time.Time

	started bool
	ref     time.Time

	// armed is the entry the alarm currently targets, 0 if none.
	armed Handle
}

// Option configures a Queue.
type Option func(*Queue)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

func NewQueue(alarm Alarm, opts ...Option) *Queue {
	q := &Queue{
		list:    skiplist.New(skiplist.GreaterThanFunc(compareKeys)),
		pending: queue.New(),
		live:    make(map[Handle]*Entry),
		alarm:   alarm,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.epoch = q.now()
	return q
}

// place keys e by its distance from the epoch. Keys, the due check in PopNext
// and the delta in Rearm all go through Sub/After and read the same clock.
func (q *Queue) place(e *Entry) {
	e.order = key{at: int64(e.Deadline.Sub(q.epoch)), seq: e.Seq}
	q.list.Set(e.order, e)
}

// Now returns the queue's notion of the current time.
func (q *Queue) Now() time.Time {
	return q.now()
}

// Started reports whether the queue has a reference time.
func (q *Queue) Started() bool {
	return q.started
}

// Reference returns the reference time set by Start.
func (q *Queue) Reference() time.Time {
	return q.ref
}

// Len counts live entries, pending ones included.
func (q *Queue) Len() int {
	return len(q.live)
}

// Peek returns the earliest absolute deadline.
func (q *Queue) Peek() (time.Time, bool) {
	front := q.list.Front()
	if front == nil {
		return time.Time{}, false
	}
	return front.Value.(*Entry).Deadline, true
}

// ScheduleRelative runs action delay after now, or delay after the reference
// time if the queue has not started yet.
func (q *Queue) ScheduleRelative(delay time.Duration, action Action) (Handle, error) {
	return q.scheduleRelative(delay, KindAction, action)
}

// ScheduleStop schedules the stop control entry.
func (q *Queue) ScheduleStop(delay time.Duration) (Handle, error) {
	return q.scheduleRelative(delay, KindStop, nil)
}

func (q *Queue) scheduleRelative(delay time.Duration, kind Kind, action Action) (Handle, error) {
	if delay < 0 {
		return 0, errors.Wrapf(consts.ErrInvalidArgument, "relative delay cannot be negative: %v", delay)
	}
	if !q.started {
		e := q.newEntry(kind, action)
		e.offset = delay
		e.pending = true
		q.pending.Add(e)
		return e.Seq, nil
	}
	return q.insert(q.now().Add(delay), kind, action)
}

// ScheduleAbsolute runs action at deadline. A deadline before now is
// rejected with ErrPastDeadline unless allowPast is set.
func (q *Queue) ScheduleAbsolute(deadline time.Time, action Action, allowPast bool) (Handle, error) {
	if !allowPast && deadline.Before(q.now()) {
		return 0, errors.Wrapf(consts.ErrPastDeadline, "deadline %v", deadline.Format(time.RFC3339Nano))
	}
	return q.insert(deadline, KindAction, action)
}

func (q *Queue) newEntry(kind Kind, action Action) *Entry {
	q.seq++
	e := &Entry{Seq: q.seq, Kind: kind, action: action}
	q.live[e.Seq] = e
	return e
}

func (q *Queue) insert(deadline time.Time, kind Kind, action Action) (Handle, error) {
	e := q.newEntry(kind, action)
	e.Deadline = deadline
	q.place(e)
	if err := q.Rearm(); err != nil {
		q.list.Remove(e.order)
		delete(q.live, e.Seq)
		return 0, err
	}
	return e.Seq, nil
}

// Cancel removes the entry identified by h. It reports whether the entry was
// still scheduled; unknown, fired and canceled handles return false.
func (q *Queue) Cancel(h Handle) bool {
	e, ok := q.live[h]
	if !ok {
		return false
	}
	delete(q.live, h)
	if e.pending {
		// dropped when the queue starts
		e.canceled = true
		return true
	}
	q.list.Remove(e.order)
	if err := q.Rearm(); err != nil {
		slog.Error("[SCHED] rearm after cancel %v: %v", e, err)
	}
	return true
}

// PopNext removes and returns the earliest entry if it is due at now.
// It does not touch the alarm; call Rearm when done popping.
func (q *Queue) PopNext(now time.Time) (*Entry, bool) {
	front := q.list.Front()
	if front == nil {
		return nil, false
	}
	e := front.Value.(*Entry)
	if e.Deadline.After(now) {
		return nil, false
	}
	q.list.Remove(front.Key())
	delete(q.live, e.Seq)
	return e, true
}

// PopDue removes every entry due at now, in (deadline, sequence) order, and
// re-arms the alarm for what remains.
func (q *Queue) PopDue(now time.Time) []*Entry {
	var due []*Entry
	for {
		e, ok := q.PopNext(now)
		if !ok {
			break
		}
		due = append(due, e)
	}
	if err := q.Rearm(); err != nil {
		slog.Error("[SCHED] rearm after pop: %v", err)
	}
	return due
}

// AlarmFired records that the armed alarm expired, so the next Rearm arms
// again even if the earliest entry has not changed.
func (q *Queue) AlarmFired() {
	q.armed = 0
}

// Rearm points the alarm at the earliest entry. It is a no-op when the alarm
// already targets that entry or the queue has not started.
func (q *Queue) Rearm() error {
	if !q.started {
		return nil
	}
	front := q.list.Front()
	if front == nil {
		if q.armed == 0 {
			return nil
		}
		q.armed = 0
		return q.alarm.Disarm()
	}
	e := front.Value.(*Entry)
	if e.Seq == q.armed {
		return nil
	}
	delta := e.Deadline.Sub(q.now())
	if delta < 0 {
		delta = 0
	}
	if err := q.alarm.Arm(delta); err != nil {
		q.armed = 0
		return errors.Wrapf(err, "arm for %v", e)
	}
	q.armed = e.Seq
	return nil
}

// Start anchors the queue at ref: pending relative entries become absolute
// deadlines in scheduling order and the alarm is armed.
func (q *Queue) Start(ref time.Time) error {
	if q.started {
		return errors.Wrap(consts.ErrInvalidState, "queue already started")
	}
	q.started = true
	q.ref = ref
	for q.pending.Length() > 0 {
		e := q.pending.Remove().(*Entry)
		if e.canceled {
			continue
		}
		e.pending = false
		e.Deadline = ref.Add(e.offset)
		q.place(e)
	}
	return q.Rearm()
}

// Reset drops every entry and the reference time. Sequence numbers keep
// increasing so old handles stay invalid.
func (q *Queue) Reset() error {
	var err error
	if q.armed != 0 {
		err = q.alarm.Disarm()
	}
	q.armed = 0
	q.list = skiplist.New(skiplist.GreaterThanFunc(compareKeys))
	q.pending = queue.New()
	q.live = make(map[Handle]*Entry)
	q.started = false
	q.ref = time.Time{}
	return err
}

// Halt disarms the alarm without dropping entries.
func (q *Queue) Halt() error {
	if q.armed == 0 {
		return nil
	}
	q.armed = 0
	return q.alarm.Disarm()
}
