package biz

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/vearne/netsched/config"
)

// InterfaceLimiter 控制记录的输出速率：一个全局令牌桶，
// 另外每个接口有自己的令牌桶，避免单个繁忙的接口占满全局配额。
// 只在 reactor 的 goroutine 中使用。
type InterfaceLimiter struct {
	global       *rate.Limiter
	interfaceQPS int
	buckets      map[string]*rate.Limiter
	now          func() time.Time
}

// NewRateLimit 按配置创建限流器，两个 QPS 都为 0 时返回 nil。
func NewRateLimit(settings *config.AppSettings) Limiter {
	if settings.RateLimitQPS <= 0 && settings.RateLimitInterfaceQPS <= 0 {
		return nil
	}
	l := &InterfaceLimiter{
		interfaceQPS: settings.RateLimitInterfaceQPS,
		buckets:      make(map[string]*rate.Limiter),
		now:          time.Now,
	}
	if settings.RateLimitQPS > 0 {
		value := settings.RateLimitQPS
		l.global = rate.NewLimiter(rate.Limit(value), value)
	}
	return l
}

func (l *InterfaceLimiter) bucket(ifname string) *rate.Limiter {
	b, ok := l.buckets[ifname]
	if !ok {
		b = rate.NewLimiter(rate.Limit(l.interfaceQPS), l.interfaceQPS)
		l.buckets[ifname] = b
	}
	return b
}

// Allow 判断 ifname 上的一条记录现在能否输出。
// 被全局令牌桶拒绝时，退还接口令牌桶中预留的令牌。
func (l *InterfaceLimiter) Allow(ifname string) bool {
	now := l.now()
	var r *rate.Reservation
	if l.interfaceQPS > 0 {
		r = l.bucket(ifname).ReserveN(now, 1)
		if !r.OK() || r.DelayFrom(now) > 0 {
			r.CancelAt(now)
			return false
		}
	}
	if l.global != nil && !l.global.AllowN(now, 1) {
		if r != nil {
			r.CancelAt(now)
		}
		return false
	}
	return true
}

// Interfaces 返回已经建立令牌桶的接口数量。
func (l *InterfaceLimiter) Interfaces() int {
	return len(l.buckets)
}
