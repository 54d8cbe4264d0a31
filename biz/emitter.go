// Package biz 包含 nsched 的核心业务逻辑：把 reactor 交付的帧转换成记录，
// 经过过滤器和限流器后分发到输出插件。
package biz

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/uuid"
	slog "github.com/vearne/simplelog"

	"github.com/vearne/netsched/filter"
	"github.com/vearne/netsched/protocol"
)

// Emitter 是 reactor 的帧消费者。
// 它在 reactor 的 goroutine 中同步运行，不得阻塞。
type Emitter struct {
	plugins     *OutPlugins   // 输出插件的集合
	filterChain filter.Filter // 过滤器链，用于过滤不需要的消息
	limiter     Limiter       // 限流器，用于控制消息处理速率
	reference   func() time.Time

	received uint64
	filtered uint64
	limited  uint64
	emitted  uint64
}

// NewEmitter 创建并初始化一个新的 Emitter 对象。
// reference 返回 reactor 开始运行的时刻，用于计算帧的绝对捕获时间。
func NewEmitter(f filter.Filter, lim Limiter, plugins *OutPlugins, reference func() time.Time) *Emitter {
	var e Emitter
	e.filterChain = f
	e.limiter = lim
	e.plugins = plugins
	e.reference = reference
	return &e
}

// HandleFrame 为一个帧构造记录，并写入所有输出插件。
// 输出插件的错误只记录日志，不会终止 reactor 的循环。
func (e *Emitter) HandleFrame(ts time.Duration, ifname string, frame []byte) error {
	atomic.AddUint64(&e.received, 1)
	msg := e.newMessage(ts, ifname, frame)

	msg, ok := e.filterChain.Filter(msg)
	if !ok {
		atomic.AddUint64(&e.filtered, 1)
		return nil
	}

	if e.limiter != nil && !e.limiter.Allow(ifname) {
		atomic.AddUint64(&e.limited, 1)
		return nil
	}

	for _, dst := range e.plugins.Outputs {
		if err := dst.Write(msg); err != nil {
			slog.Error("dst.Write:%v", err)
		}
	}
	atomic.AddUint64(&e.emitted, 1)
	return nil
}

func (e *Emitter) newMessage(ts time.Duration, ifname string, frame []byte) *protocol.Message {
	var msg protocol.Message
	msg.Meta.Version = protocol.Version
	msg.Meta.UUID = uuid.NewString()
	msg.Meta.Timestamp = int64(ts)
	if e.reference != nil {
		if ref := e.reference(); !ref.IsZero() {
			msg.Meta.CaptureTime = ref.Add(ts).UnixNano()
		}
	}
	msg.Interface = ifname
	msg.Length = len(frame)
	msg.Summary = Summarize(frame)
	msg.Data = frame
	return &msg
}

// Summarize 返回 gopacket 从以太网帧中解析出的协议层名称。
// 末尾的 payload 不计入。
func Summarize(frame []byte) string {
	if len(frame) == 0 {
		return ""
	}
	packet := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	names := make([]string, 0, 4)
	for _, layer := range packet.Layers() {
		if layer.LayerType() == gopacket.LayerTypePayload {
			continue
		}
		names = append(names, layer.LayerType().String())
	}
	return strings.Join(names, " ")
}

// EmitterStats 按处理结果统计帧的数量。
type EmitterStats struct {
	Received uint64
	Filtered uint64
	Limited  uint64
	Emitted  uint64
}

// Stats 返回当前计数的快照。
func (e *Emitter) Stats() EmitterStats {
	return EmitterStats{
		Received: atomic.LoadUint64(&e.received),
		Filtered: atomic.LoadUint64(&e.filtered),
		Limited:  atomic.LoadUint64(&e.limited),
		Emitted:  atomic.LoadUint64(&e.emitted),
	}
}
