package filter

import (
	"regexp"

	"github.com/pkg/errors"

	"github.com/vearne/netsched/protocol"
)

type InterfaceMatchIncludeFilter struct {
	r *regexp.Regexp
}

func NewInterfaceMatchIncludeFilter(expr string) (*InterfaceMatchIncludeFilter, error) {
	var f InterfaceMatchIncludeFilter
	var err error
	f.r, err = regexp.Compile(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "interface expr %q", expr)
	}
	return &f, nil
}

// Filter :If ok is true, it means that the message can pass
func (f *InterfaceMatchIncludeFilter) Filter(msg *protocol.Message) (*protocol.Message, bool) {
	if f.r.MatchString(msg.Interface) {
		return msg, true
	}
	return nil, false
}
