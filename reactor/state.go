package reactor

import (
	"github.com/pkg/errors"
	"github.com/smallnest/gofsm"
	slog "github.com/vearne/simplelog"

	"github.com/vearne/netsched/consts"
)

const (
	// StateInitializing registry and queue are built, no reference time yet
	StateInitializing = "INITIALIZING"
	// StateRunning the loop is running
	StateRunning = "RUNNING"
	// StateStopped the loop returned
	StateStopped = "STOPPED"
	// StateClosed every resource is released
	StateClosed = "CLOSED"
)

const (
	EventStart = "START"
	EventStop  = "STOP"
	EventReset = "RESET"
	EventClose = "CLOSE"
)

type lifecycleProcessor struct{}

func (p *lifecycleProcessor) Action(action string, fromState string, toState string, args []interface{}) error {
	switch action {
	case "change-state":
		slog.Debug("[REACTOR] change-state, fromState:[%v] -> toState:[%v]", fromState, toState)
	case "do-nothing":
		slog.Debug("[REACTOR] do-nothing, current state:%v", toState)
	}
	return nil
}

func (p *lifecycleProcessor) OnActionFailure(action string, fromState string, toState string, args []interface{}, err error) {
}

func (p *lifecycleProcessor) OnExit(fromState string, args []interface{}) {
}

func (p *lifecycleProcessor) OnEnter(toState string, args []interface{}) {
	r := args[0].(*Reactor)
	r.state = toState
	slog.Info("[REACTOR] state -> %v", toState)
}

func initLifecycleFSM() *fsm.StateMachine {
	delegate := &fsm.DefaultDelegate{P: &lifecycleProcessor{}}
	transitions := []fsm.Transition{
		{From: StateInitializing, Event: EventStart, To: StateRunning, Action: "change-state"},
		{From: StateRunning, Event: EventStop, To: StateStopped, Action: "change-state"},

		{From: StateInitializing, Event: EventReset, To: StateInitializing, Action: "do-nothing"},
		{From: StateStopped, Event: EventReset, To: StateInitializing, Action: "change-state"},

		{From: StateInitializing, Event: EventClose, To: StateClosed, Action: "change-state"},
		{From: StateStopped, Event: EventClose, To: StateClosed, Action: "change-state"},
	}
	return fsm.NewStateMachine(delegate, transitions...)
}

// trigger fires event against the current state.
func (r *Reactor) trigger(event string) error {
	if err := r.fsm.Trigger(r.state, event, r); err != nil {
		return errors.Wrapf(consts.ErrInvalidState, "%v in state %v", event, r.state)
	}
	return nil
}
