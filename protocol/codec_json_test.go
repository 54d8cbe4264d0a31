package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecJson_Data(t *testing.T) {
	codec := CodecJson{}
	captured := time.Date(2024, 5, 1, 12, 0, 0, 15000000, time.UTC)
	msg := &Message{
		Meta: Meta{Version: Version, UUID: "u", Timestamp: int64(15 * time.Millisecond),
			CaptureTime: captured.UnixNano()},
		Interface: "eth1",
		Length:    3,
		Summary:   "Ethernet",
		Data:      []byte{1, 2, 3},
	}
	data, err := codec.Marshal(msg)
	require.Nil(t, err)
	assert.Contains(t, string(data), `"interface":"eth1"`)
	assert.Contains(t, string(data), `"data":"010203"`)
	assert.Contains(t, string(data), `"offset":"15ms"`)
	assert.Contains(t, string(data), `"capture_time":"2024-05-01T12:00:00.015Z"`)

	got := &Message{}
	require.Nil(t, codec.Unmarshal(data, got))
	assert.Equal(t, msg, got)
}

func TestCodecJson_NoCaptureTime(t *testing.T) {
	codec := CodecJson{}
	msg := &Message{Meta: Meta{Version: Version, UUID: "u"}, Interface: "eth1", Data: []byte{}}
	data, err := codec.Marshal(msg)
	require.Nil(t, err)
	assert.NotContains(t, string(data), "capture_time")

	got := &Message{}
	require.Nil(t, codec.Unmarshal(data, got))
	assert.Equal(t, msg, got)
}

func TestCodecJson_BadData(t *testing.T) {
	got := &Message{}
	assert.NotNil(t, CodecJson{}.Unmarshal([]byte(`{"data":"zz"}`), got))
	assert.NotNil(t, CodecJson{}.Unmarshal([]byte(`{"capture_time":"yesterday"}`), got))
}
