package capture

import (
	"fmt"
	"sync/atomic"

	"github.com/google/gopacket"
	"github.com/pkg/errors"
	slog "github.com/vearne/simplelog"

	"github.com/vearne/netsched/consts"
	"github.com/vearne/netsched/util"
)

// Config controls which interfaces are captured and how.
type Config struct {
	SysClassNet     string
	IgnoreInterface []string
	BPFFilter       string
	CaptureOutgoing bool
}

// Stats counts frames per source.
type Stats struct {
	Received  uint64
	Discarded uint64
}

type member struct {
	src       Source
	received  uint64
	discarded uint64
}

// Registry holds one Source per captured interface.
type Registry struct {
	members []*member
	byFd    map[int]*member
}

// Open enumerates interfaces under cfg.SysClassNet and opens a capture on each.
// On any failure every capture opened so far is closed and a
// *ConstructionError is returned.
func Open(cfg Config) (*Registry, error) {
	ignore := util.NewStringSet(cfg.IgnoreInterface...)
	names, err := ListInterfaces(cfg.SysClassNet, ignore)
	if err != nil {
		return nil, &ConstructionError{Interface: cfg.SysClassNet, Err: err}
	}

	sources := make([]Source, 0, len(names))
	fail := func(name string, err error) (*Registry, error) {
		for _, src := range sources {
			src.Close()
		}
		return nil, &ConstructionError{Interface: name, Err: err}
	}
	for _, name := range names {
		ifi, err := LookupInterface(name)
		if err != nil {
			return fail(name, err)
		}
		sock, err := NewSocket(ifi)
		if err != nil {
			return fail(name, err)
		}
		sources = append(sources, sock)
		sock.SetCaptureOutgoing(cfg.CaptureOutgoing)
		if err = sock.SetPromiscuous(false); err != nil {
			return fail(name, errors.Wrap(err, "promiscuous"))
		}
		if cfg.BPFFilter != "" {
			if err = sock.SetBPFFilter(cfg.BPFFilter); err != nil {
				return fail(name, errors.Wrap(err, "bpf filter"))
			}
		}
		slog.Info("[CAPTURE] opened %v, index:%v, mtu:%v, snaplen:%v",
			name, ifi.Index, ifi.MTU, sock.GetSnapLen())
	}
	return NewRegistry(sources...)
}

// NewRegistry wraps already opened sources.
func NewRegistry(sources ...Source) (*Registry, error) {
	r := &Registry{byFd: make(map[int]*member, len(sources))}
	for _, src := range sources {
		if _, ok := r.byFd[src.Fd()]; ok {
			return nil, errors.Wrapf(consts.ErrInvalidArgument, "duplicate descriptor %v", src.Fd())
		}
		m := &member{src: src}
		r.members = append(r.members, m)
		r.byFd[src.Fd()] = m
	}
	return r, nil
}

// Sources returns the sources in interface order.
func (r *Registry) Sources() []Source {
	res := make([]Source, len(r.members))
	for i, m := range r.members {
		res[i] = m.src
	}
	return res
}

// Len returns the number of sources.
func (r *Registry) Len() int {
	return len(r.members)
}

// Owns reports whether fd belongs to one of the sources.
func (r *Registry) Owns(fd int) bool {
	_, ok := r.byFd[fd]
	return ok
}

// Next reads one frame from the source owning fd.
// It returns ErrNoFrame when the source has nothing queued.
func (r *Registry) Next(fd int) (string, []byte, gopacket.CaptureInfo, error) {
	m, ok := r.byFd[fd]
	if !ok {
		return "", nil, gopacket.CaptureInfo{}, fmt.Errorf("unknown descriptor %v", fd)
	}
	data, ci, err := m.src.ReadPacketData()
	if err != nil {
		return m.src.Name(), nil, ci, err
	}
	atomic.AddUint64(&m.received, 1)
	return m.src.Name(), data, ci, nil
}

// DrainPending discards every frame already queued on every source.
// It never blocks and returns the number of frames discarded.
func (r *Registry) DrainPending() int {
	total := 0
	for _, m := range r.members {
		for {
			_, _, err := m.src.ReadPacketData()
			if err != nil {
				if err != ErrNoFrame {
					slog.Warn("[CAPTURE] drain %v, error:%v", m.src.Name(), err)
				}
				break
			}
			atomic.AddUint64(&m.discarded, 1)
			total++
		}
	}
	if total > 0 {
		slog.Debug("[CAPTURE] discarded %v pending frames", total)
	}
	return total
}

// Stats returns the counters keyed by interface name.
func (r *Registry) Stats() map[string]Stats {
	res := make(map[string]Stats, len(r.members))
	for _, m := range r.members {
		res[m.src.Name()] = Stats{
			Received:  atomic.LoadUint64(&m.received),
			Discarded: atomic.LoadUint64(&m.discarded),
		}
	}
	return res
}

// Close closes every source and returns the first error.
func (r *Registry) Close() error {
	var first error
	for _, m := range r.members {
		if err := m.src.Close(); err != nil && first == nil {
			first = errors.Wrapf(err, "close %v", m.src.Name())
		}
	}
	return first
}
