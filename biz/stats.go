package biz

import (
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"
	slog "github.com/vearne/simplelog"

	"github.com/vearne/netsched/capture"
	"github.com/vearne/netsched/sched"
)

// Scheduler is the part of the reactor a periodic action needs.
type Scheduler interface {
	Schedule(delay time.Duration, action sched.Action) (sched.Handle, error)
	Time() time.Duration
}

// StatsReporter logs capture, emitter and NIC counters every interval.
// It reschedules itself, so it runs on the reactor goroutine.
type StatsReporter struct {
	scheduler  Scheduler
	interval   time.Duration
	emitter    *Emitter
	captures   func() map[string]capture.Stats
	ioCounters func(pernic bool) ([]psnet.IOCountersStat, error)
	reports    int
}

func NewStatsReporter(s Scheduler, interval time.Duration, e *Emitter,
	captures func() map[string]capture.Stats) *StatsReporter {
	return &StatsReporter{
		scheduler:  s,
		interval:   interval,
		emitter:    e,
		captures:   captures,
		ioCounters: psnet.IOCounters,
	}
}

// Start schedules the first report.
func (r *StatsReporter) Start() error {
	_, err := r.scheduler.Schedule(r.interval, r.Report)
	return err
}

// Report logs one round of counters and schedules the next.
func (r *StatsReporter) Report() error {
	r.reports++
	captures := r.captures()
	slog.Info("[STATS] t:%v, emitter:%+v", r.scheduler.Time(), r.emitter.Stats())

	nics := make(map[string]psnet.IOCountersStat)
	if counters, err := r.ioCounters(true); err != nil {
		slog.Warn("[STATS] io counters, error:%v", err)
	} else {
		for _, c := range counters {
			nics[c.Name] = c
		}
	}
	for name, st := range captures {
		if nic, ok := nics[name]; ok {
			slog.Info("[STATS] %v, received:%v, discarded:%v, nic packetsRecv:%v, nic dropin:%v",
				name, st.Received, st.Discarded, nic.PacketsRecv, nic.Dropin)
		} else {
			slog.Info("[STATS] %v, received:%v, discarded:%v", name, st.Received, st.Discarded)
		}
	}

	_, err := r.scheduler.Schedule(r.interval, r.Report)
	return err
}

// Reports returns how many reports were logged.
func (r *StatsReporter) Reports() int {
	return r.reports
}
