package wake

import (
	"os"
	"os/signal"
	"sync"

	slog "github.com/vearne/simplelog"
)

// Bridge forwards every delivery of its signals to a Channel.
//
// The Go runtime owns the process-level handler; it queues the signal for
// os/signal, and the forwarder's only action per delivery is Channel.Signal.
// Nothing else is touched from signal context.
type Bridge struct {
	ch   *Channel
	c    chan os.Signal
	done chan struct{}
	once sync.Once
}

// NewBridge installs the handler for sigs. It stays installed until Close.
// As with signal.Notify, no sigs means every signal.
func NewBridge(ch *Channel, sigs ...os.Signal) *Bridge {
	b := &Bridge{
		ch:   ch,
		c:    make(chan os.Signal, 1),
		done: make(chan struct{}),
	}
	signal.Notify(b.c, sigs...)
	go b.forward()
	return b
}

func (b *Bridge) forward() {
	defer close(b.done)
	for sig := range b.c {
		if err := b.ch.Signal(); err != nil {
			slog.Error("[WAKE] forward %v: %v", sig, err)
		}
	}
}

// Close removes the handler, restoring the disposition that was in place
// before NewBridge, and waits for the forwarder to exit.
func (b *Bridge) Close() {
	b.once.Do(func() {
		signal.Stop(b.c)
		close(b.c)
		<-b.done
	})
}
