//go:build linux

package reactor

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// poller waits for read readiness on a fixed set of descriptors.
type poller struct {
	epfd   int
	events []unix.EpollEvent
}

func newPoller() (*poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, errors.Wrap(err, "epoll_create1")
	}
	return &poller{epfd: epfd}, nil
}

// Add watches fd for read readiness.
func (p *poller) Add(fd int) error {
	ev := &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return errors.Wrapf(err, "epoll_ctl add %v", fd)
	}
	p.events = append(p.events, unix.EpollEvent{})
	return nil
}

// Wait blocks until at least one descriptor is ready and appends the ready
// descriptors to ready. EINTR is retried.
func (p *poller) Wait(ready []int) ([]int, error) {
	for {
		n, err := unix.EpollWait(p.epfd, p.events, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return ready, errors.Wrap(err, "epoll_wait")
		}
		for _, ev := range p.events[:n] {
			ready = append(ready, int(ev.Fd))
		}
		return ready, nil
	}
}

func (p *poller) Close() error {
	if p.epfd < 0 {
		return nil
	}
	err := unix.Close(p.epfd)
	p.epfd = -1
	return err
}
