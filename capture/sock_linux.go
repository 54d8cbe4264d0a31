//go:build linux

package capture

import (
	"fmt"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

const (
	// ETHALL htons(ETH_P_ALL)
	ETHALL uint16 = unix.ETH_P_ALL<<8 | unix.ETH_P_ALL>>8
	// BLOCKSIZE ring buffer block_size
	BLOCKSIZE = 64 << 10
	// BLOCKNR ring buffer block_nr
	BLOCKNR = (2 << 20) / BLOCKSIZE // 2mb / 64kb
	// FRAMESIZE ring buffer frame_size
	FRAMESIZE = BLOCKSIZE
	// FRAMENR ring buffer frame_nr
	FRAMENR = BLOCKNR * BLOCKSIZE / FRAMESIZE
)

var tpacket2hdrlen = tpAlign(int(unsafe.Sizeof(unix.Tpacket2Hdr{})))

// SockRaw is a linux mmap'ed af_packet socket in non-blocking mode.
type SockRaw struct {
	mu       sync.Mutex
	name     string
	fd       int
	ifindex  int
	snaplen  int
	frame    uint32 // current frame
	buf      []byte // points to the memory space of the ring buffer shared with the kernel.
	outgoing bool   // deliver frames sent by this host
}

// NewSocket returns a non-blocking mmap'ed sock_raw on packet version 2,
// bound to ifi. Promiscuous mode is left off.
func NewSocket(ifi Interface) (*SockRaw, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, int(ETHALL))
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	sock := &SockRaw{
		name:    ifi.Name,
		fd:      fd,
		ifindex: ifi.Index,
		snaplen: FRAMESIZE,
	}

	// set packet version
	err = unix.SetsockoptInt(fd, unix.SOL_PACKET, unix.PACKET_VERSION, unix.TPACKET_V2)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setsockopt packet_version: %w", err)
	}

	// create shared-memory ring buffer
	tp := &unix.TpacketReq{
		Block_size: BLOCKSIZE,
		Block_nr:   BLOCKNR,
		Frame_size: FRAMESIZE,
		Frame_nr:   FRAMENR,
	}
	err = unix.SetsockoptTpacketReq(fd, unix.SOL_PACKET, unix.PACKET_RX_RING, tp)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("setsockopt packet_rx_ring: %w", err)
	}
	sock.buf, err = unix.Mmap(fd, 0, BLOCKSIZE*BLOCKNR, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("socket mmap: %w", err)
	}

	// bind last so nothing lands in the ring before it exists
	err = unix.Bind(fd, &unix.SockaddrLinklayer{Protocol: ETHALL, Ifindex: ifi.Index})
	if err != nil {
		sock.Close()
		return nil, fmt.Errorf("bind: %w", err)
	}

	if ifi.MTU > 0 {
		sock.snaplen = ifi.MTU + 200
		if sock.snaplen > FRAMESIZE {
			sock.snaplen = FRAMESIZE
		}
	}
	return sock, nil
}

// Name returns the interface name.
func (sock *SockRaw) Name() string {
	return sock.name
}

// Fd returns the socket descriptor.
func (sock *SockRaw) Fd() int {
	return sock.fd
}

// ReadPacketData implements gopacket.PacketDataSource. It returns exactly
// one frame, or ErrNoFrame if the ring holds none.
func (sock *SockRaw) ReadPacketData() (buf []byte, ci gopacket.CaptureInfo, err error) {
	sock.mu.Lock()
	defer sock.mu.Unlock()
	if sock.buf == nil {
		return nil, ci, unix.EBADF
	}
	for {
		i := int(sock.frame * FRAMESIZE)
		tpHdr := (*unix.Tpacket2Hdr)(unsafe.Pointer(&sock.buf[i]))
		if tpHdr.Status&unix.TP_STATUS_USER == 0 {
			return nil, ci, ErrNoFrame
		}
		sock.frame = (sock.frame + 1) % FRAMENR
		sockAddr := (*unix.RawSockaddrLinklayer)(unsafe.Pointer(&sock.buf[i+tpacket2hdrlen]))

		if sockAddr.Pkttype == unix.PACKET_OUTGOING && !sock.outgoing {
			tpHdr.Status = unix.TP_STATUS_KERNEL
			continue
		}

		ci.Length = int(tpHdr.Len)
		ci.Timestamp = time.Unix(int64(tpHdr.Sec), int64(tpHdr.Nsec))
		ci.InterfaceIndex = int(sockAddr.Ifindex)
		buf = make([]byte, tpHdr.Snaplen)
		ci.CaptureLength = copy(buf, sock.buf[i+int(tpHdr.Mac):])
		// hand the slot back only after copying out of it
		tpHdr.Status = unix.TP_STATUS_KERNEL
		return buf, ci, nil
	}
}

// Close closes the underlying socket
func (sock *SockRaw) Close() (err error) {
	sock.mu.Lock()
	defer sock.mu.Unlock()
	if sock.fd != -1 {
		if sock.buf != nil {
			unix.Munmap(sock.buf)
			sock.buf = nil
		}
		err = unix.Close(sock.fd)
		sock.fd = -1
	}
	return
}

// SetSnapLen sets the maximum capture length to the given value.
// for this to take effects on the kernel level SetBPFilter should be called too.
func (sock *SockRaw) SetSnapLen(snap int) error {
	sock.mu.Lock()
	defer sock.mu.Unlock()
	if snap < 0 {
		return fmt.Errorf("expected %d snap length to be at least 0", snap)
	}
	if snap > FRAMESIZE {
		snap = FRAMESIZE
	}
	sock.snaplen = snap
	return nil
}

// GetSnapLen returns the maximum capture length
func (sock *SockRaw) GetSnapLen() int {
	sock.mu.Lock()
	defer sock.mu.Unlock()
	return sock.snaplen
}

// SetCaptureOutgoing controls whether frames sent by this host are delivered.
func (sock *SockRaw) SetCaptureOutgoing(b bool) {
	sock.mu.Lock()
	defer sock.mu.Unlock()
	sock.outgoing = b
}

// SetBPFFilter compiles and sets a BPF filter for the socket handle.
func (sock *SockRaw) SetBPFFilter(expr string) error {
	sock.mu.Lock()
	defer sock.mu.Unlock()
	if expr == "" {
		return unix.SetsockoptInt(sock.fd, unix.SOL_SOCKET, unix.SO_DETACH_FILTER, 0)
	}
	filter, err := pcap.CompileBPFFilter(layers.LinkTypeEthernet, sock.snaplen, expr)
	if err != nil {
		return err
	}
	if len(filter) > int(^uint16(0)) {
		return fmt.Errorf("filters out of range 0-%d", ^uint16(0))
	}
	if len(filter) == 0 {
		return unix.SetsockoptInt(sock.fd, unix.SOL_SOCKET, unix.SO_DETACH_FILTER, 0)
	}
	fprog := &unix.SockFprog{
		Len:    uint16(len(filter)),
		Filter: (*unix.SockFilter)(unsafe.Pointer(&filter[0])),
	}
	return unix.SetsockoptSockFprog(sock.fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, fprog)
}

// SetPromiscuous sets promiscuous mode to the required value.
// If it is enabled, traffic not destined for the interface will also be captured.
func (sock *SockRaw) SetPromiscuous(b bool) error {
	sock.mu.Lock()
	defer sock.mu.Unlock()
	mreq := unix.PacketMreq{
		Ifindex: int32(sock.ifindex),
		Type:    unix.PACKET_MR_PROMISC,
	}

	opt := unix.PACKET_ADD_MEMBERSHIP
	if !b {
		opt = unix.PACKET_DROP_MEMBERSHIP
	}

	return unix.SetsockoptPacketMreq(sock.fd, unix.SOL_PACKET, opt, &mreq)
}

// Stats returns number of packets and dropped packets since the last call.
func (sock *SockRaw) Stats() (*unix.TpacketStats, error) {
	sock.mu.Lock()
	defer sock.mu.Unlock()
	return unix.GetsockoptTpacketStats(sock.fd, unix.SOL_PACKET, unix.PACKET_STATISTICS)
}

func tpAlign(x int) int {
	return int((uint(x) + unix.TPACKET_ALIGNMENT - 1) &^ (unix.TPACKET_ALIGNMENT - 1))
}
