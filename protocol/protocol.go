package protocol

const Version = 1

// Message is the record built for one delivered frame and passed to outputs.
type Message struct {
	Meta      Meta   `json:"meta"`
	Interface string `json:"interface"`
	// length on the wire, may exceed len(Data)
	Length int `json:"length"`
	// one line describing the decoded layers
	Summary string `json:"summary"`
	Data    []byte `json:"data"`
}

type Meta struct {
	Version int    `json:"version"`
	UUID    string `json:"uuid"`
	// Nanosecond, relative to the start of the reactor loop
	Timestamp int64 `json:"timestamp"`
	// Nanosecond, unix time the kernel captured the frame
	CaptureTime int64 `json:"captureTime"`
}
