package capture

import (
	"fmt"

	"github.com/google/gopacket"
	"github.com/pkg/errors"

	"github.com/vearne/netsched/consts"
)

// ErrNoFrame is returned by a Source with nothing to read right now.
var ErrNoFrame = errors.New("no frame available")

// Source is one non-blocking frame source bound to one interface.
type Source interface {
	gopacket.PacketDataSource
	// Name is the interface name.
	Name() string
	// Fd is the descriptor to watch for read readiness.
	Fd() int
	Close() error
}

// Socket is any interface that defines the behaviors of Socket
type Socket interface {
	Source
	SetBPFFilter(string) error
	SetPromiscuous(bool) error
	SetSnapLen(int) error
	GetSnapLen() int
	SetCaptureOutgoing(bool)
}

// ConstructionError reports an interface whose capture could not be opened.
type ConstructionError struct {
	Interface string
	Err       error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("open capture on %q: %v", e.Interface, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}

// Is matches consts.ErrConstruction.
func (e *ConstructionError) Is(target error) bool {
	return target == consts.ErrConstruction
}
