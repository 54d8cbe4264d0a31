// Package wake turns signal delivery into ordinary descriptor readiness.
//
// A Channel is a self-pipe: its read end is registered with the reactor's
// readiness wait, and anything that needs to wake the reactor writes a single
// marker byte to the write end. A Bridge forwards signals to a Channel.
package wake

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Marker is the byte written for every wake.
const Marker byte = 0x01

// Channel is an anonymous, unidirectional, non-blocking byte channel.
type Channel struct {
	r, w   int
	marker [1]byte
	buf    [1024]byte
}

// NewChannel creates the pipe with both ends non-blocking and close-on-exec.
func NewChannel() (*Channel, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return nil, errors.Wrap(err, "wake pipe")
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return nil, errors.Wrap(err, "wake pipe nonblock")
		}
	}
	c := &Channel{r: p[0], w: p[1]}
	c.marker[0] = Marker
	return c, nil
}

// Fd returns the read end, the descriptor to watch for readiness.
func (c *Channel) Fd() int {
	return c.r
}

// Signal writes one marker. A full pipe already holds a pending wake, so
// EAGAIN is not an error.
func (c *Channel) Signal() error {
	_, err := unix.Write(c.w, c.marker[:])
	if err == unix.EAGAIN || err == unix.EINTR {
		return nil
	}
	return err
}

// Drain reads until nothing is immediately available and returns the number
// of bytes consumed. It never blocks.
func (c *Channel) Drain() int {
	total := 0
	for {
		n, err := unix.Read(c.r, c.buf[:])
		if n > 0 {
			total += n
		}
		if err == unix.EINTR {
			continue
		}
		if err != nil || n <= 0 {
			return total
		}
	}
}

// Close closes both ends.
func (c *Channel) Close() error {
	errW := unix.Close(c.w)
	errR := unix.Close(c.r)
	if errR != nil {
		return errR
	}
	return errW
}
