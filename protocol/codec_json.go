package protocol

import (
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

const CodecJsonName = "json"

func init() {
	RegisterCodec(CodecJson{})
}

// jsonRecord is the on-disk form: the frame is hex like the simple codec and
// the capture time is readable.
type jsonRecord struct {
	Version     int    `json:"version"`
	UUID        string `json:"uuid"`
	Offset      string `json:"offset"`
	OffsetNanos int64  `json:"offset_ns"`
	CaptureTime string `json:"capture_time,omitempty"`
	Interface   string `json:"interface"`
	Length      int    `json:"length"`
	Summary     string `json:"summary,omitempty"`
	Data        string `json:"data"`
}

// CodecJson encodes one record per JSON object.
type CodecJson struct{}

func (c CodecJson) Marshal(v *Message) ([]byte, error) {
	r := jsonRecord{
		Version:     v.Meta.Version,
		UUID:        v.Meta.UUID,
		Offset:      time.Duration(v.Meta.Timestamp).String(),
		OffsetNanos: v.Meta.Timestamp,
		Interface:   v.Interface,
		Length:      v.Length,
		Summary:     v.Summary,
		Data:        hex.EncodeToString(v.Data),
	}
	if v.Meta.CaptureTime != 0 {
		r.CaptureTime = time.Unix(0, v.Meta.CaptureTime).UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(&r)
}

func (c CodecJson) Unmarshal(data []byte, v *Message) error {
	var r jsonRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	frame, err := hex.DecodeString(r.Data)
	if err != nil {
		return errors.Wrap(err, "data")
	}
	var captured int64
	if r.CaptureTime != "" {
		ts, err := time.Parse(time.RFC3339Nano, r.CaptureTime)
		if err != nil {
			return errors.Wrap(err, "capture_time")
		}
		captured = ts.UnixNano()
	}
	v.Meta = Meta{
		Version:     r.Version,
		UUID:        r.UUID,
		Timestamp:   r.OffsetNanos,
		CaptureTime: captured,
	}
	v.Interface = r.Interface
	v.Length = r.Length
	v.Summary = r.Summary
	v.Data = frame
	return nil
}

func (c CodecJson) Name() string {
	return CodecJsonName
}
