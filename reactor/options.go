package reactor

import (
	"os"
	"time"

	"github.com/vearne/netsched/capture"
)

type options struct {
	capture capture.Config
	sources []capture.Source
	clock   func() time.Time
	stop    []os.Signal
}

// Option configures a Reactor.
type Option func(*options)

// WithSysClassNet sets the directory interfaces are enumerated from.
func WithSysClassNet(dir string) Option {
	return func(o *options) {
		o.capture.SysClassNet = dir
	}
}

// WithIgnoreInterface excludes the named interfaces from capture.
func WithIgnoreInterface(names ...string) Option {
	return func(o *options) {
		o.capture.IgnoreInterface = append(o.capture.IgnoreInterface, names...)
	}
}

// WithBPFFilter attaches a BPF filter to every capture.
func WithBPFFilter(expr string) Option {
	return func(o *options) {
		o.capture.BPFFilter = expr
	}
}

// WithCaptureOutgoing also delivers frames sent by this host.
func WithCaptureOutgoing(b bool) Option {
	return func(o *options) {
		o.capture.CaptureOutgoing = b
	}
}

// WithSources uses the given sources instead of enumerating interfaces.
// The reactor takes ownership of them.
func WithSources(sources ...capture.Source) Option {
	return func(o *options) {
		o.sources = append(o.sources, sources...)
	}
}

// WithClock replaces time.Now for deadlines and the reference time.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithStopSignals makes Run return nil when one of sigs is delivered.
func WithStopSignals(sigs ...os.Signal) Option {
	return func(o *options) {
		o.stop = append(o.stop, sigs...)
	}
}
