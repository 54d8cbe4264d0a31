// Package reactor runs frame capture and timed callbacks on one goroutine.
//
// A Reactor blocks in epoll on every capture descriptor plus the read end of
// a self-pipe. SIGALRM from the interval timer is forwarded into that pipe,
// so expiry of the earliest deadline and frame arrival wake the same wait.
// Each wake runs every due entry, re-arms the timer, then delivers one frame
// from each ready capture.
package reactor

import (
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/smallnest/gofsm"
	slog "github.com/vearne/simplelog"

	"github.com/vearne/netsched/capture"
	"github.com/vearne/netsched/consts"
	"github.com/vearne/netsched/sched"
	"github.com/vearne/netsched/timer"
	"github.com/vearne/netsched/wake"
)

// FrameHandler receives one frame; ts is relative to the start of Run.
type FrameHandler func(ts time.Duration, ifname string, frame []byte) error

// the interval timer and its signal are process-wide
var active int32

type Reactor struct {
	handler  FrameHandler
	state    string
	fsm      *fsm.StateMachine
	registry *capture.Registry
	queue    *sched.Queue
	interval *timer.Interval
	wake     *wake.Channel
	bridge   *wake.Bridge
	// delivery of a stop signal
	interrupt       *wake.Channel
	interruptBridge *wake.Bridge
	poller          *poller
	ready           []int
}

// New opens every capture and installs the alarm handler.
// Only one Reactor may be open in a process at a time.
func New(handler FrameHandler, opts ...Option) (r *Reactor, err error) {
	if handler == nil {
		return nil, errors.Wrap(consts.ErrInvalidArgument, "nil frame handler")
	}
	if !atomic.CompareAndSwapInt32(&active, 0, 1) {
		return nil, consts.ErrReactorActive
	}
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	r = &Reactor{
		handler:  handler,
		state:    StateInitializing,
		fsm:      initLifecycleFSM(),
		interval: timer.NewInterval(),
	}
	defer func() {
		if err != nil {
			r.release()
			r = nil
		}
	}()

	if len(o.sources) > 0 {
		r.registry, err = capture.NewRegistry(o.sources...)
	} else {
		r.registry, err = capture.Open(o.capture)
	}
	if err != nil {
		return r, err
	}
	if r.wake, err = wake.NewChannel(); err != nil {
		return r, err
	}
	if r.poller, err = newPoller(); err != nil {
		return r, err
	}
	if err = r.poller.Add(r.wake.Fd()); err != nil {
		return r, err
	}
	for _, src := range r.registry.Sources() {
		if err = r.poller.Add(src.Fd()); err != nil {
			return r, err
		}
	}
	if len(o.stop) > 0 {
		if r.interrupt, err = wake.NewChannel(); err != nil {
			return r, err
		}
		if err = r.poller.Add(r.interrupt.Fd()); err != nil {
			return r, err
		}
		r.interruptBridge = wake.NewBridge(r.interrupt, o.stop...)
	}
	r.bridge = wake.NewBridge(r.wake, timer.Signal)
	r.queue = sched.NewQueue(r.interval, sched.WithClock(o.clock))
	r.ready = make([]int, 0, r.registry.Len()+2)
	slog.Info("[REACTOR] created, captures:%v", r.registry.Len())
	return r, nil
}

// State returns the lifecycle state.
func (r *Reactor) State() string {
	return r.state
}

// Registry returns the captures owned by the reactor.
func (r *Reactor) Registry() *capture.Registry {
	return r.registry
}

// Schedule runs action after delay. Before Run the delay counts from the
// start of Run.
func (r *Reactor) Schedule(delay time.Duration, action sched.Action) (sched.Handle, error) {
	if r.state == StateClosed {
		return 0, consts.ErrInvalidState
	}
	return r.queue.ScheduleRelative(delay, action)
}

// ScheduleAt runs action at deadline. A deadline in the past is rejected
// unless allowPast is set, in which case it fires on the next pass.
func (r *Reactor) ScheduleAt(deadline time.Time, action sched.Action, allowPast bool) (sched.Handle, error) {
	if r.state == StateClosed {
		return 0, consts.ErrInvalidState
	}
	return r.queue.ScheduleAbsolute(deadline, action, allowPast)
}

// ScheduleStop makes Run return nil after delay.
func (r *Reactor) ScheduleStop(delay time.Duration) (sched.Handle, error) {
	if r.state == StateClosed {
		return 0, consts.ErrInvalidState
	}
	return r.queue.ScheduleStop(delay)
}

// Cancel removes a scheduled entry. It reports false for handles that
// already fired, were canceled, or never existed.
func (r *Reactor) Cancel(h sched.Handle) bool {
	if r.state == StateClosed {
		return false
	}
	return r.queue.Cancel(h)
}

// Len returns the number of scheduled entries.
func (r *Reactor) Len() int {
	return r.queue.Len()
}

// Reference returns the time Run started, zero before that.
func (r *Reactor) Reference() time.Time {
	return r.queue.Reference()
}

// Time returns the time elapsed since Run started, zero before that.
func (r *Reactor) Time() time.Duration {
	if !r.queue.Started() {
		return 0
	}
	return r.queue.Now().Sub(r.queue.Reference())
}

// Run drops frames queued so far, anchors relative deadlines to now and
// loops until a stop entry fires or a stop signal arrives. An error from an action or the frame
// handler ends the loop and is returned as is.
func (r *Reactor) Run() (err error) {
	if err = r.trigger(EventStart); err != nil {
		return err
	}
	defer func() {
		if herr := r.queue.Halt(); herr != nil {
			slog.Error("[REACTOR] disarm timer, error:%v", herr)
		}
		r.trigger(EventStop)
		if err != nil {
			slog.Error("[REACTOR] stopped, error:%v", err)
		} else {
			slog.Info("[REACTOR] stopped")
		}
	}()

	r.registry.DrainPending()
	if r.interrupt != nil {
		r.interrupt.Drain()
	}
	ref := r.queue.Now()
	if err = r.queue.Start(ref); err != nil {
		return err
	}
	slog.Info("[REACTOR] running, pending entries:%v", r.queue.Len())

	for {
		r.ready, err = r.poller.Wait(r.ready[:0])
		if err != nil {
			return err
		}

		frames := r.ready[:0]
		for _, fd := range r.ready {
			switch {
			case fd == r.wake.Fd():
				r.wake.Drain()
				r.queue.AlarmFired()
			case r.interrupt != nil && fd == r.interrupt.Fd():
				r.interrupt.Drain()
				slog.Info("[REACTOR] interrupted by signal")
				return nil
			default:
				frames = append(frames, fd)
			}
		}

		stop, err := r.runDue()
		if err != nil || stop {
			return err
		}
		if err = r.queue.Rearm(); err != nil {
			return err
		}

		for _, fd := range frames {
			name, data, ci, err := r.registry.Next(fd)
			if err == capture.ErrNoFrame {
				// readiness without a frame
				continue
			}
			if err != nil {
				return errors.Wrapf(err, "read %v", name)
			}
			if err = r.handler(ci.Timestamp.Sub(ref), name, data); err != nil {
				return err
			}
		}
	}
}

// runDue pops and runs due entries one at a time against the time the pass
// started, so entries added or canceled by an action are honored in the
// same pass.
func (r *Reactor) runDue() (stop bool, err error) {
	now := r.queue.Now()
	for {
		e, ok := r.queue.PopNext(now)
		if !ok {
			return false, nil
		}
		if e.Kind == sched.KindStop {
			slog.Debug("[REACTOR] stop entry %v", e)
			return true, nil
		}
		if err = e.Run(); err != nil {
			return false, err
		}
	}
}

// Reset drops every scheduled entry and the reference time. Captures stay
// open. Timestamps from before and after a Reset are not comparable.
func (r *Reactor) Reset() error {
	if err := r.trigger(EventReset); err != nil {
		return err
	}
	return r.queue.Reset()
}

// Close disarms the timer, removes the alarm handler and closes every
// descriptor.
func (r *Reactor) Close() error {
	if err := r.trigger(EventClose); err != nil {
		return err
	}
	return r.release()
}

func (r *Reactor) release() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if r.queue != nil {
		keep(r.queue.Reset())
	} else {
		keep(r.interval.Disarm())
	}
	if r.bridge != nil {
		r.bridge.Close()
	}
	if r.wake != nil {
		keep(r.wake.Close())
	}
	if r.interruptBridge != nil {
		r.interruptBridge.Close()
	}
	if r.interrupt != nil {
		keep(r.interrupt.Close())
	}
	if r.poller != nil {
		keep(r.poller.Close())
	}
	if r.registry != nil {
		keep(r.registry.Close())
	}
	atomic.StoreInt32(&active, 0)
	return first
}
