// Package config 包含 nsched 的配置管理相关功能。
// 该包定义了应用程序的配置结构和命令行参数解析器。
package config

import (
	"fmt"
	"time"
)

// MultiStringOption 实现了可以接受多个值的字符串命令行参数。
// 它允许同一个参数名被多次指定，所有值都会被收集到一个切片中。
// 例如：-ignore-interface=eth0 -ignore-interface=eth1
type MultiStringOption struct {
	Params *[]string // 指向存储所有参数值的切片的指针
}

func (h *MultiStringOption) String() string {
	if h.Params == nil {
		return ""
	}
	return fmt.Sprint(*h.Params)
}

// Set gets called multiple times for each flag with same name
func (h *MultiStringOption) Set(value string) error {
	if h.Params == nil {
		return nil
	}

	*h.Params = append(*h.Params, value)
	return nil
}

// AppSettings 是主配置结构体，包含了 nsched 的所有配置选项。
// 字段对应于命令行参数：抓包、过滤器、限流器和输出目标。
type AppSettings struct {
	ExitAfter time.Duration `json:"exit-after"`

	// ######################## capture #######################
	SysClassNet     string   `json:"sys-class-net"`
	IgnoreInterface []string `json:"ignore-interface"`
	BPFFilter       string   `json:"bpf-filter"`
	// deliver frames sent by this host too
	CaptureOutgoing bool `json:"capture-outgoing"`

	// ######################## output ########################
	OutputStdout bool `json:"output-stdout"`
	OutputDummy  bool `json:"output-dummy"`

	// --- outputfile ---
	OutputFileDir []string `json:"output-file-directory"`
	// MaxSize is the maximum size in megabytes of the log file before it gets rotated.
	OutputFileMaxSize int `json:"output-file-max-size"`
	// MaxBackups is the maximum number of old log files to retain.
	OutputFileMaxBackups int `json:"output-file-max-backups"`
	// MaxAge is the maximum number of days to retain old log files based on the
	// timestamp encoded in their filename.
	OutputFileMaxAge int `json:"output-file-max-age"`

	OutputPcap string `json:"output-pcap"`

	// output Kafka
	OutputKafkaHost  string `json:"output-kafka-host"`
	OutputKafkaTopic string `json:"output-kafka-topic"`

	// --- filter ---
	IncludeFilterInterfaceMatch string   `json:"include-filter-interface-match"`
	ExcludeFilterInterface      []string `json:"exclude-filter-interface"`

	// --- rate limit ---
	// Query per second
	RateLimitQPS int `json:"rate-limit-qps"`
	// Query per second of a single interface
	RateLimitInterfaceQPS int `json:"rate-limit-interface-qps"`

	// --- other ---
	Codec string `json:"codec"`

	// 0 disables periodic statistics
	StatsInterval time.Duration `json:"stats-interval"`
}

// Validate checks settings that flag parsing cannot.
func (s *AppSettings) Validate() error {
	if s.ExitAfter < 0 {
		return fmt.Errorf("exit-after must not be negative: %v", s.ExitAfter)
	}
	if s.StatsInterval < 0 {
		return fmt.Errorf("stats-interval must not be negative: %v", s.StatsInterval)
	}
	if s.RateLimitQPS < 0 {
		return fmt.Errorf("rate-limit-qps must not be negative: %v", s.RateLimitQPS)
	}
	if s.RateLimitInterfaceQPS < 0 {
		return fmt.Errorf("rate-limit-interface-qps must not be negative: %v", s.RateLimitInterfaceQPS)
	}
	if (s.OutputKafkaHost == "") != (s.OutputKafkaTopic == "") {
		return fmt.Errorf("output-kafka-host and output-kafka-topic go together")
	}
	return nil
}
