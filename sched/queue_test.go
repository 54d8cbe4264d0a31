package sched

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vearne/netsched/consts"
)

type fakeAlarm struct {
	arms    []time.Duration
	disarms int
}

func (a *fakeAlarm) Arm(d time.Duration) error {
	a.arms = append(a.arms, d)
	return nil
}

func (a *fakeAlarm) Disarm() error {
	a.disarms++
	return nil
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestQueue() (*Queue, *fakeAlarm, *fakeClock) {
	alarm := &fakeAlarm{}
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	return NewQueue(alarm, WithClock(clock.Now)), alarm, clock
}

func recorder(log *[]string, name string) Action {
	return func() error {
		*log = append(*log, name)
		return nil
	}
}

func runAll(entries []*Entry) {
	for _, e := range entries {
		_ = e.Run()
	}
}

func TestRelativeOrderBeforeStart(t *testing.T) {
	q, alarm, clock := newTestQueue()
	var log []string

	delays := []time.Duration{300, 100, 500, 200, 400}
	for _, d := range delays {
		_, err := q.ScheduleRelative(d*time.Millisecond, recorder(&log, (d*time.Millisecond).String()))
		require.NoError(t, err)
	}
	assert.Equal(t, 5, q.Len())
	assert.Empty(t, alarm.arms, "nothing is armed before start")

	require.NoError(t, q.Start(clock.Now()))
	require.Len(t, alarm.arms, 1)
	assert.Equal(t, 100*time.Millisecond, alarm.arms[0])

	clock.Advance(time.Second)
	runAll(q.PopDue(clock.Now()))
	assert.Equal(t, []string{"100ms", "200ms", "300ms", "400ms", "500ms"}, log)
	assert.Equal(t, 0, q.Len())
}

func TestRelativeOrderMixedBeforeAndAfterStart(t *testing.T) {
	q, _, clock := newTestQueue()
	var log []string

	_, err := q.ScheduleRelative(300*time.Millisecond, recorder(&log, "before-300"))
	require.NoError(t, err)
	_, err = q.ScheduleRelative(100*time.Millisecond, recorder(&log, "before-100"))
	require.NoError(t, err)

	require.NoError(t, q.Start(clock.Now()))

	_, err = q.ScheduleRelative(200*time.Millisecond, recorder(&log, "after-200"))
	require.NoError(t, err)
	_, err = q.ScheduleRelative(50*time.Millisecond, recorder(&log, "after-50"))
	require.NoError(t, err)

	clock.Advance(150 * time.Millisecond)
	runAll(q.PopDue(clock.Now()))
	assert.Equal(t, []string{"after-50", "before-100"}, log)

	clock.Advance(time.Second)
	runAll(q.PopDue(clock.Now()))
	assert.Equal(t, []string{"after-50", "before-100", "after-200", "before-300"}, log)
}

func TestEqualDeadlineSequenceOrder(t *testing.T) {
	q, _, clock := newTestQueue()
	require.NoError(t, q.Start(clock.Now()))
	var log []string

	at := clock.Now().Add(time.Second)
	names := []string{"a", "b", "c", "d", "e", "f"}
	for _, n := range names {
		_, err := q.ScheduleAbsolute(at, recorder(&log, n), false)
		require.NoError(t, err)
	}

	clock.Advance(time.Second)
	runAll(q.PopDue(clock.Now()))
	assert.Equal(t, names, log)
}

func TestCancel(t *testing.T) {
	q, _, clock := newTestQueue()
	require.NoError(t, q.Start(clock.Now()))
	var log []string

	h1, err := q.ScheduleRelative(10*time.Millisecond, recorder(&log, "one"))
	require.NoError(t, err)
	_, err = q.ScheduleRelative(20*time.Millisecond, recorder(&log, "two"))
	require.NoError(t, err)

	assert.True(t, q.Cancel(h1))
	assert.False(t, q.Cancel(h1), "second cancel is a no-op")
	assert.False(t, q.Cancel(Handle(9999)), "unknown handle")
	assert.False(t, q.Cancel(0))

	clock.Advance(time.Second)
	runAll(q.PopDue(clock.Now()))
	assert.Equal(t, []string{"two"}, log)
}

func TestCancelPending(t *testing.T) {
	q, alarm, clock := newTestQueue()
	var log []string

	h, err := q.ScheduleRelative(10*time.Millisecond, recorder(&log, "canceled"))
	require.NoError(t, err)
	_, err = q.ScheduleRelative(20*time.Millisecond, recorder(&log, "kept"))
	require.NoError(t, err)

	assert.True(t, q.Cancel(h))
	assert.False(t, q.Cancel(h))
	assert.Equal(t, 1, q.Len())

	require.NoError(t, q.Start(clock.Now()))
	require.Len(t, alarm.arms, 1)
	assert.Equal(t, 20*time.Millisecond, alarm.arms[0])

	clock.Advance(time.Second)
	runAll(q.PopDue(clock.Now()))
	assert.Equal(t, []string{"kept"}, log)
}

func TestCancelFiredHandle(t *testing.T) {
	q, _, clock := newTestQueue()
	require.NoError(t, q.Start(clock.Now()))

	h, err := q.ScheduleRelative(0, func() error { return nil })
	require.NoError(t, err)
	assert.Len(t, q.PopDue(clock.Now()), 1)
	assert.False(t, q.Cancel(h))
}

func TestInvalidArgument(t *testing.T) {
	q, _, clock := newTestQueue()

	_, err := q.ScheduleRelative(-time.Second, func() error { return nil })
	assert.True(t, errors.Is(err, consts.ErrInvalidArgument))
	assert.Equal(t, 0, q.Len())

	require.NoError(t, q.Start(clock.Now()))
	_, err = q.ScheduleRelative(-time.Nanosecond, func() error { return nil })
	assert.True(t, errors.Is(err, consts.ErrInvalidArgument))
	_, err = q.ScheduleStop(-time.Millisecond)
	assert.True(t, errors.Is(err, consts.ErrInvalidArgument))
	assert.Equal(t, 0, q.Len())
}

func TestPastDeadline(t *testing.T) {
	q, alarm, clock := newTestQueue()
	require.NoError(t, q.Start(clock.Now()))
	fired := false

	past := clock.Now().Add(-time.Second)
	_, err := q.ScheduleAbsolute(past, func() error { fired = true; return nil }, false)
	assert.True(t, errors.Is(err, consts.ErrPastDeadline))
	assert.Equal(t, 0, q.Len())

	_, err = q.ScheduleAbsolute(past, func() error { fired = true; return nil }, true)
	require.NoError(t, err)
	require.Len(t, alarm.arms, 1)
	assert.Equal(t, time.Duration(0), alarm.arms[0], "past deadline arms for immediate expiry")

	runAll(q.PopDue(clock.Now()))
	assert.True(t, fired)
}

func TestRearmOnlyWhenEarliestChanges(t *testing.T) {
	q, alarm, clock := newTestQueue()
	require.NoError(t, q.Start(clock.Now()))
	noop := func() error { return nil }

	_, err := q.ScheduleRelative(100*time.Millisecond, noop)
	require.NoError(t, err)
	assert.Len(t, alarm.arms, 1)

	// not the new earliest
	_, err = q.ScheduleRelative(200*time.Millisecond, noop)
	require.NoError(t, err)
	assert.Len(t, alarm.arms, 1)

	// new earliest
	h, err := q.ScheduleRelative(50*time.Millisecond, noop)
	require.NoError(t, err)
	require.Len(t, alarm.arms, 2)
	assert.Equal(t, 50*time.Millisecond, alarm.arms[1])

	// canceling a later entry does not re-arm
	h200, err := q.ScheduleRelative(300*time.Millisecond, noop)
	require.NoError(t, err)
	assert.True(t, q.Cancel(h200))
	assert.Len(t, alarm.arms, 2)

	// canceling the earliest re-arms for the next one
	assert.True(t, q.Cancel(h))
	require.Len(t, alarm.arms, 3)
	assert.Equal(t, 100*time.Millisecond, alarm.arms[2])

	// popping the earliest re-arms for the remaining one
	clock.Advance(100 * time.Millisecond)
	q.AlarmFired()
	assert.Len(t, q.PopDue(clock.Now()), 1)
	require.Len(t, alarm.arms, 4)
	assert.Equal(t, 100*time.Millisecond, alarm.arms[3])

	// popping the last one leaves nothing armed; the alarm already expired
	clock.Advance(100 * time.Millisecond)
	q.AlarmFired()
	assert.Len(t, q.PopDue(clock.Now()), 1)
	assert.Len(t, alarm.arms, 4)
	assert.Equal(t, 0, alarm.disarms)
}

func TestDisarmWhenLastCanceled(t *testing.T) {
	q, alarm, clock := newTestQueue()
	require.NoError(t, q.Start(clock.Now()))

	h, err := q.ScheduleRelative(time.Second, func() error { return nil })
	require.NoError(t, err)
	assert.True(t, q.Cancel(h))
	assert.Equal(t, 1, alarm.disarms)
	_, ok := q.Peek()
	assert.False(t, ok)
}

func TestRearmAfterEarlyWake(t *testing.T) {
	q, alarm, clock := newTestQueue()
	require.NoError(t, q.Start(clock.Now()))

	_, err := q.ScheduleRelative(100*time.Millisecond, func() error { return nil })
	require.NoError(t, err)
	require.Len(t, alarm.arms, 1)

	// the alarm expired a hair early by wall clock; nothing is due yet
	clock.Advance(100*time.Millisecond - time.Microsecond)
	q.AlarmFired()
	assert.Empty(t, q.PopDue(clock.Now()))
	require.Len(t, alarm.arms, 2)
	assert.Equal(t, time.Microsecond, alarm.arms[1])
}

func TestActionMutatesQueueDuringPass(t *testing.T) {
	q, _, clock := newTestQueue()
	require.NoError(t, q.Start(clock.Now()))
	var log []string

	var victim Handle
	_, err := q.ScheduleRelative(10*time.Millisecond, func() error {
		log = append(log, "first")
		// due in this pass, scheduled after everything already queued
		_, err := q.ScheduleAbsolute(clock.Now().Add(-time.Millisecond), recorder(&log, "spawned"), true)
		if err != nil {
			return err
		}
		q.Cancel(victim)
		return nil
	})
	require.NoError(t, err)
	victim, err = q.ScheduleRelative(20*time.Millisecond, recorder(&log, "victim"))
	require.NoError(t, err)
	_, err = q.ScheduleRelative(30*time.Millisecond, recorder(&log, "last"))
	require.NoError(t, err)

	clock.Advance(50 * time.Millisecond)
	now := clock.Now()
	for {
		e, ok := q.PopNext(now)
		if !ok {
			break
		}
		require.NoError(t, e.Run())
	}
	assert.Equal(t, []string{"first", "last", "spawned"}, log)
}

func TestStopEntry(t *testing.T) {
	q, _, clock := newTestQueue()
	h, err := q.ScheduleStop(10 * time.Millisecond)
	require.NoError(t, err)
	assert.NotZero(t, h)
	require.NoError(t, q.Start(clock.Now()))

	clock.Advance(10 * time.Millisecond)
	due := q.PopDue(clock.Now())
	require.Len(t, due, 1)
	assert.Equal(t, KindStop, due[0].Kind)
	assert.NoError(t, due[0].Run())
}

func TestActionError(t *testing.T) {
	q, _, clock := newTestQueue()
	require.NoError(t, q.Start(clock.Now()))
	boom := errors.New("boom")

	_, err := q.ScheduleRelative(0, func() error { return boom })
	require.NoError(t, err)
	due := q.PopDue(clock.Now())
	require.Len(t, due, 1)
	assert.Equal(t, boom, due[0].Run())
}

func TestReset(t *testing.T) {
	q, alarm, clock := newTestQueue()
	require.NoError(t, q.Start(clock.Now()))

	h, err := q.ScheduleRelative(time.Second, func() error { return nil })
	require.NoError(t, err)
	require.NoError(t, q.Reset())
	assert.Equal(t, 1, alarm.disarms)
	assert.Equal(t, 0, q.Len())
	assert.False(t, q.Started())
	assert.True(t, q.Reference().IsZero())
	assert.False(t, q.Cancel(h))

	h2, err := q.ScheduleRelative(time.Second, func() error { return nil })
	require.NoError(t, err)
	assert.True(t, h2 > h, "handles are not reused across reset")

	require.NoError(t, q.Start(clock.Now()))
	assert.True(t, errors.Is(q.Start(clock.Now()), consts.ErrInvalidState))
}

func TestDeadlinesFollowOneClock(t *testing.T) {
	alarm := &fakeAlarm{}
	// time.Now carries a monotonic reading; Add keeps it
	clock := &fakeClock{t: time.Now()}
	q := NewQueue(alarm, WithClock(clock.Now))
	require.NoError(t, q.Start(clock.Now()))
	var log []string

	_, err := q.ScheduleRelative(30*time.Millisecond, recorder(&log, "a"))
	require.NoError(t, err)
	_, err = q.ScheduleRelative(10*time.Millisecond, recorder(&log, "b"))
	require.NoError(t, err)
	// wall reading only
	_, err = q.ScheduleAbsolute(clock.Now().Round(0).Add(20*time.Millisecond), recorder(&log, "c"), false)
	require.NoError(t, err)

	for _, want := range []string{"b", "c", "a"} {
		clock.Advance(10 * time.Millisecond)
		q.AlarmFired()
		due := q.PopDue(clock.Now())
		require.Len(t, due, 1, "alarm expiry at %v leaves %v undue", clock.Now(), want)
		runAll(due)
	}
	assert.Equal(t, []string{"b", "c", "a"}, log)
	// no immediate re-arm after any expiry
	assert.Equal(t, []time.Duration{30 * time.Millisecond, 10 * time.Millisecond,
		10 * time.Millisecond, 10 * time.Millisecond}, alarm.arms)
}
