package plugin

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vearne/netsched/protocol"
)

// DummyOutput used for debugging, prints one line per incoming frame
type DummyOutput struct {
	w     io.Writer
	count int
}

// NewDummyOutput constructor for DummyOutput
func NewDummyOutput() (di *DummyOutput) {
	di = new(DummyOutput)
	di.w = os.Stdout
	return
}

// Write writes message to this plugin
func (i *DummyOutput) Write(msg *protocol.Message) error {
	i.count++
	_, err := fmt.Fprintf(i.w, "%v %v %d %v\n", time.Duration(msg.Meta.Timestamp),
		msg.Interface, msg.Length, msg.Summary)
	return err
}

// Count returns the number of frames written
func (i *DummyOutput) Count() int {
	return i.count
}

func (i *DummyOutput) String() string {
	return "Dummy Output"
}
