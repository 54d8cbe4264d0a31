package filter

import (
	"github.com/vearne/netsched/protocol"
	"github.com/vearne/netsched/util"
)

type InterfaceExcludeFilter struct {
	exclude *util.StringSet
}

func NewInterfaceExcludeFilter(names ...string) *InterfaceExcludeFilter {
	var f InterfaceExcludeFilter
	f.exclude = util.NewStringSet(names...)
	return &f
}

// Filter :If ok is true, it means that the message can pass
func (f *InterfaceExcludeFilter) Filter(msg *protocol.Message) (*protocol.Message, bool) {
	if f.exclude.Has(msg.Interface) {
		return nil, false
	}
	return msg, true
}
