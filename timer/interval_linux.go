//go:build linux

package timer

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func setTimer(d time.Duration) error {
	it := unix.Itimerval{}
	if d > 0 {
		it.Value = unix.NsecToTimeval(d.Nanoseconds())
	}
	if _, err := unix.Setitimer(unix.ItimerReal, it); err != nil {
		return errors.Wrapf(err, "setitimer %v", d)
	}
	return nil
}
