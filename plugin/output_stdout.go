package plugin

import (
	"io"
	"os"

	"github.com/vearne/netsched/protocol"
)

type StdOutput struct {
	codec protocol.Codec
	w     io.Writer
}

func NewStdOutput(codec string) (*StdOutput, error) {
	var o StdOutput
	var err error
	o.codec, err = getCodec(codec)
	if err != nil {
		return nil, err
	}
	o.w = os.Stderr
	return &o, nil
}

func (o *StdOutput) Close() error {
	return nil
}

func (o *StdOutput) Write(msg *protocol.Message) (err error) {
	var (
		data []byte
	)

	data, err = o.codec.Marshal(msg)
	if err != nil {
		return err
	}

	_, err = o.w.Write(data)
	if err != nil {
		return err
	}
	// make it more readable
	_, err = o.w.Write([]byte{'\n'})
	return err
}

func (o *StdOutput) String() string {
	return "Stdout Output"
}
