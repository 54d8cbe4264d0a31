package plugin

import (
	"github.com/pkg/errors"

	"github.com/vearne/netsched/consts"
	"github.com/vearne/netsched/protocol"
)

func getCodec(name string) (protocol.Codec, error) {
	codec := protocol.GetCodec(name)
	if codec == nil {
		return nil, errors.Wrapf(consts.ErrInvalidArgument, "unknown codec %q, expected one of %v",
			name, protocol.CodecNames())
	}
	return codec, nil
}
