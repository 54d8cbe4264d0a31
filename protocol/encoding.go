package protocol

import (
	"sort"
	"strings"
)

// Codec turns a frame record into bytes for an output and back.
type Codec interface {
	// Marshal returns the wire format of v.
	Marshal(v *Message) ([]byte, error)
	// Unmarshal parses the wire format into v.
	Unmarshal(data []byte, v *Message) error
	// Name returns the name the codec is selected by. It must be static.
	Name() string
}

var registeredCodecs = make(map[string]Codec)

func RegisterCodec(codec Codec) {
	if codec == nil {
		panic("cannot register a nil Codec")
	}
	if codec.Name() == "" {
		panic("cannot register Codec with empty string result for Name()")
	}
	registeredCodecs[strings.ToLower(codec.Name())] = codec
}

// GetCodec returns the codec registered under name, or nil.
func GetCodec(name string) Codec {
	return registeredCodecs[strings.ToLower(name)]
}

// CodecNames returns the registered codec names, sorted.
func CodecNames() []string {
	names := make([]string, 0, len(registeredCodecs))
	for name := range registeredCodecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
