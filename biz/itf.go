package biz

import "github.com/vearne/netsched/protocol"

// PluginWriter is an interface for output plugins
type PluginWriter interface {
	Write(msg *protocol.Message) error
}

// Limiter decides whether one more record of an interface may be emitted now.
type Limiter interface {
	Allow(ifname string) bool
}
