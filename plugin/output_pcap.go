package plugin

import (
	"bufio"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/pkg/errors"

	"github.com/vearne/netsched/protocol"
)

const pcapSnapLen = 1 << 16

// PcapOutput writes delivered frames to a pcap file with nanosecond timestamps.
type PcapOutput struct {
	path   string
	file   *os.File
	buf    *bufio.Writer
	writer *pcapgo.Writer
}

func NewPcapOutput(path string) (*PcapOutput, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create pcap file")
	}
	o := &PcapOutput{path: path, file: f, buf: bufio.NewWriter(f)}
	o.writer = pcapgo.NewWriterNanos(o.buf)
	if err = o.writer.WriteFileHeader(pcapSnapLen, layers.LinkTypeEthernet); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "write pcap header")
	}
	return o, nil
}

func (o *PcapOutput) Write(msg *protocol.Message) error {
	length := msg.Length
	if length < len(msg.Data) {
		length = len(msg.Data)
	}
	ci := gopacket.CaptureInfo{
		Timestamp:     time.Unix(0, msg.Meta.CaptureTime),
		CaptureLength: len(msg.Data),
		Length:        length,
	}
	return o.writer.WritePacket(ci, msg.Data)
}

func (o *PcapOutput) Close() error {
	err := o.buf.Flush()
	if cerr := o.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func (o *PcapOutput) String() string {
	return "Pcap Output: " + o.path
}
