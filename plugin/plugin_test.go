package plugin

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vearne/netsched/consts"
	"github.com/vearne/netsched/protocol"
)

func testMessage() *protocol.Message {
	return &protocol.Message{
		Meta: protocol.Meta{
			Version:     protocol.Version,
			UUID:        "5d1f0c7e-uuid",
			Timestamp:   int64(25 * time.Millisecond),
			CaptureTime: time.Date(2024, 1, 2, 3, 4, 5, 6000, time.UTC).UnixNano(),
		},
		Interface: "h1-s1",
		Length:    64,
		Summary:   "Ethernet ARP",
		Data:      []byte{0xde, 0xad, 0xbe, 0xef},
	}
}

func TestUnknownCodec(t *testing.T) {
	_, err := NewStdOutput("xml")
	assert.True(t, errors.Is(err, consts.ErrInvalidArgument))
}

func TestStdOutput(t *testing.T) {
	o, err := NewStdOutput(protocol.CodecSimpleName)
	require.Nil(t, err)
	var buf bytes.Buffer
	o.w = &buf

	require.Nil(t, o.Write(testMessage()))
	assert.True(t, strings.HasPrefix(buf.String(), "1 5d1f0c7e-uuid 25000000 "))
	assert.Contains(t, buf.String(), "\nh1-s1\nEthernet ARP\ndeadbeef\n")
	assert.Nil(t, o.Close())
}

func TestIsValidDir(t *testing.T) {
	dir := t.TempDir()
	assert.Nil(t, IsValidDir(dir))
	assert.NotNil(t, IsValidDir(filepath.Join(dir, "missing")))

	file := filepath.Join(dir, "file")
	require.Nil(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.NotNil(t, IsValidDir(file))
}

func TestFileDirOutput(t *testing.T) {
	dir := t.TempDir()
	o, err := NewFileDirOutput(protocol.CodecJsonName, dir, &FileDirOutputConfig{MaxSize: 1})
	require.Nil(t, err)
	require.Nil(t, o.Write(testMessage()))
	other := testMessage()
	other.Interface = "h2-s1"
	require.Nil(t, o.Write(other))
	require.Nil(t, o.Write(other))
	require.Nil(t, o.Close())

	assert.Equal(t, []string{
		filepath.Join(dir, "h1-s1.json.log"),
		filepath.Join(dir, "h2-s1.json.log"),
	}, o.Files())

	data, err := os.ReadFile(filepath.Join(dir, "h1-s1.json.log"))
	require.Nil(t, err)
	got := &protocol.Message{}
	require.Nil(t, protocol.CodecJson{}.Unmarshal(bytes.TrimSpace(data), got))
	assert.Equal(t, testMessage(), got)

	data, err = os.ReadFile(filepath.Join(dir, "h2-s1.json.log"))
	require.Nil(t, err)
	assert.Len(t, bytes.Split(bytes.TrimSpace(data), []byte{'\n'}), 2)

	_, err = NewFileDirOutput(protocol.CodecJsonName, filepath.Join(dir, "missing"), &FileDirOutputConfig{})
	assert.NotNil(t, err)
}

func TestFrameFileName(t *testing.T) {
	assert.Equal(t, "h1-s1.simple.log", frameFileName("h1-s1", protocol.CodecSimpleName))
	assert.Equal(t, "unknown.json.log", frameFileName("", protocol.CodecJsonName))
	assert.Equal(t, "a_b.json.log", frameFileName("a/b", protocol.CodecJsonName))
}

func TestPcapOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.pcap")
	o, err := NewPcapOutput(path)
	require.Nil(t, err)
	msg := testMessage()
	require.Nil(t, o.Write(msg))
	require.Nil(t, o.Close())

	f, err := os.Open(path)
	require.Nil(t, err)
	defer f.Close()
	r, err := pcapgo.NewReader(f)
	require.Nil(t, err)
	assert.Equal(t, layers.LinkTypeEthernet, r.LinkType())

	data, ci, err := r.ReadPacketData()
	require.Nil(t, err)
	assert.Equal(t, msg.Data, data)
	assert.Equal(t, 64, ci.Length)
	assert.Equal(t, msg.Meta.CaptureTime, ci.Timestamp.UnixNano())
}

func TestDummyOutput(t *testing.T) {
	o := NewDummyOutput()
	var buf bytes.Buffer
	o.w = &buf
	require.Nil(t, o.Write(testMessage()))
	assert.Equal(t, 1, o.Count())
	assert.Equal(t, "25ms h1-s1 64 Ethernet ARP\n", buf.String())
}

func TestKafkaOutput(t *testing.T) {
	producer := mocks.NewAsyncProducer(t, nil)
	producer.ExpectInputAndSucceed()
	producer.ExpectInputWithCheckerFunctionAndFail(func(val []byte) error {
		if !bytes.Contains(val, []byte(`"interface":"h1-s1"`)) {
			return errors.New("unexpected value")
		}
		return nil
	}, sarama.ErrOutOfBrokers)

	o, err := NewKafkaOutput(protocol.CodecJsonName, &OutputKafkaConfig{
		producer: producer,
		Topic:    "frames",
	})
	require.Nil(t, err)
	require.Nil(t, o.Write(testMessage()))
	require.Nil(t, o.Write(testMessage()))
	assert.Nil(t, o.Close())
}
