package protocol

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/vearne/netsched/consts"
)

const CodecSimpleName = "simple"

func init() {
	RegisterCodec(CodecSimple{})
}

type CodecSimple struct{}

func (c CodecSimple) Marshal(msg *Message) ([]byte, error) {
	buff := bytes.NewBuffer(make([]byte, 0, 64+len(msg.Data)*2))
	// line 1
	//{version} {uuid} {timestamp} {capture-time} {length}
	buff.WriteString(fmt.Sprintf("%d %s %d %d %d", msg.Meta.Version, msg.Meta.UUID,
		msg.Meta.Timestamp, msg.Meta.CaptureTime, msg.Length))
	buff.Write([]byte{'\n'})
	// line 2
	// interface
	buff.WriteString(msg.Interface)
	buff.Write([]byte{'\n'})
	// line 3
	// summary
	buff.WriteString(strings.ReplaceAll(msg.Summary, "\n", " "))
	buff.Write([]byte{'\n'})
	// line 4
	// frame, hex
	buff.WriteString(hex.EncodeToString(msg.Data))
	buff.Write([]byte{'\n'})
	return buff.Bytes(), nil
}

func (c CodecSimple) Unmarshal(data []byte, msg *Message) error {
	lines := bytes.Split(bytes.TrimSuffix(data, []byte{'\n'}), []byte{'\n'})
	if len(lines) != 4 {
		return errors.Wrapf(consts.ErrProtocal, "expected 4 lines, got %d", len(lines))
	}
	// line 1
	strList := strings.Split(string(lines[0]), " ")
	if len(strList) != 5 {
		return errors.Wrapf(consts.ErrProtocal, "bad header %q", lines[0])
	}
	var err error
	msg.Meta.Version, err = strconv.Atoi(strList[0])
	if err != nil {
		return err
	}
	msg.Meta.UUID = strList[1]
	msg.Meta.Timestamp, err = strconv.ParseInt(strList[2], 10, 64)
	if err != nil {
		return err
	}
	msg.Meta.CaptureTime, err = strconv.ParseInt(strList[3], 10, 64)
	if err != nil {
		return err
	}
	msg.Length, err = strconv.Atoi(strList[4])
	if err != nil {
		return err
	}
	// line 2
	msg.Interface = string(lines[1])
	// line 3
	msg.Summary = string(lines[2])
	// line 4
	msg.Data, err = hex.DecodeString(string(lines[3]))
	return err
}

func (c CodecSimple) Name() string {
	return CodecSimpleName
}
