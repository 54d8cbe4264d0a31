package main

import (
	"flag"
	"fmt"
	"os"
	"syscall"
	"time"

	slog "github.com/vearne/simplelog"

	"github.com/vearne/netsched/biz"
	"github.com/vearne/netsched/capture"
	"github.com/vearne/netsched/config"
	"github.com/vearne/netsched/consts"
	"github.com/vearne/netsched/protocol"
	"github.com/vearne/netsched/reactor"
)

const banner string = `
                     __             __
   ____  _____ _____/ /_  ___  ____/ /
  / __ \/ ___// ___/ __ \/ _ \/ __  / 
 / / / (__  )/ /__/ / / /  __/ /_/ /  
/_/ /_/____/ \___/_/ /_/\___/\__,_/   
`

var settings config.AppSettings
var version bool

func init() {
	flag.BoolVar(&version, "version", false,
		"print version")

	flag.DurationVar(&settings.ExitAfter, "exit-after", 0, "exit after specified duration")

	// #################### capture ######################
	flag.StringVar(&settings.SysClassNet, "sys-class-net", capture.DefaultSysClassNet,
		"directory the network interfaces are enumerated from")

	flag.Var(&config.MultiStringOption{Params: &settings.IgnoreInterface}, "ignore-interface",
		`Do not capture on the given interface (loopback is always skipped):
                nsched -ignore-interface=eth0 -ignore-interface=eth1`)

	flag.StringVar(&settings.BPFFilter, "bpf-filter", "",
		`BPF expression attached to every capture, e.g. "arp or icmp"`)

	flag.BoolVar(&settings.CaptureOutgoing, "capture-outgoing", false,
		"also deliver frames sent by this host")

	// #################### output ######################
	flag.BoolVar(&settings.OutputStdout, "output-stdout", false,
		"Just prints records to console")

	flag.BoolVar(&settings.OutputDummy, "output-dummy", false,
		"prints one line per frame to stdout")

	flag.Var(&config.MultiStringOption{Params: &settings.OutputFileDir},
		"output-file-directory",
		`Write records to file:
		        nsched -output-file-directory="/tmp/mycapture"`)

	flag.IntVar(&settings.OutputFileMaxSize, "output-file-max-size", 500,
		"MaxSize is the maximum size in megabytes of the log file before it gets rotated.")

	flag.IntVar(&settings.OutputFileMaxBackups, "output-file-max-backups", 10,
		"MaxBackups is the maximum number of old log files to retain.")

	flag.IntVar(&settings.OutputFileMaxAge, "output-file-max-age", 30,
		`MaxAge is the maximum number of days to retain old log files 
				based on the timestamp encoded in their filename`)

	flag.StringVar(&settings.OutputPcap, "output-pcap", "",
		"write delivered frames to the given pcap file")

	flag.StringVar(&settings.OutputKafkaHost, "output-kafka-host", "",
		`Write records to Kafka:
				nsched -output-kafka-host="192.168.0.1:9092,192.168.0.2:9092"`)

	flag.StringVar(&settings.OutputKafkaTopic, "output-kafka-topic", "",
		"kafka topic the records are written to")

	flag.StringVar(&settings.Codec, "codec", protocol.CodecSimpleName,
		fmt.Sprintf("record encoding, one of %v", protocol.CodecNames()))

	// #################### filter ######################
	flag.StringVar(&settings.IncludeFilterInterfaceMatch, "include-filter-interface-match", "",
		`only emit frames whose interface matches the specified regular expression`)

	flag.Var(&config.MultiStringOption{Params: &settings.ExcludeFilterInterface},
		"exclude-filter-interface", "do not emit frames of the given interface")

	flag.IntVar(&settings.RateLimitQPS, "rate-limit-qps", 0,
		"maximum records emitted per second, 0 means unlimited")
	flag.IntVar(&settings.RateLimitInterfaceQPS, "rate-limit-interface-qps", 0,
		"maximum records emitted per second for each interface, 0 means unlimited")

	flag.DurationVar(&settings.StatsInterval, "stats-interval", 0,
		"log capture statistics at this interval, 0 disables")
}

func main() {
	fmt.Print(banner)

	adjustLogLevel()

	flag.Parse()
	if version {
		fmt.Println("service: nsched")
		fmt.Println("Version", consts.Version)
		fmt.Println("BuildTime", consts.BuildTime)
		fmt.Println("GitTag", consts.GitTag)
		return
	}

	printSettings(&settings)
	if err := settings.Validate(); err != nil {
		slog.Fatal("settings error:%v", err)
	}

	filterChain, err := biz.NewFilterChain(&settings)
	if err != nil {
		slog.Fatal("create FilterChain error:%v", err)
	}
	plugins, err := biz.NewPlugins(&settings)
	if err != nil {
		slog.Fatal("create plugins error:%v", err)
	}
	slog.Info("plugins:%v", plugins)

	var r *reactor.Reactor
	emitter := biz.NewEmitter(filterChain, biz.NewRateLimit(&settings), plugins,
		func() time.Time { return r.Reference() })

	r, err = reactor.New(emitter.HandleFrame,
		reactor.WithSysClassNet(settings.SysClassNet),
		reactor.WithIgnoreInterface(settings.IgnoreInterface...),
		reactor.WithBPFFilter(settings.BPFFilter),
		reactor.WithCaptureOutgoing(settings.CaptureOutgoing),
		reactor.WithStopSignals(syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT),
	)
	if err != nil {
		plugins.Close()
		slog.Fatal("create reactor error:%v", err)
	}

	if settings.ExitAfter > 0 {
		slog.Info("Running nsched for a duration of %s", settings.ExitAfter)
		if _, err = r.ScheduleStop(settings.ExitAfter); err != nil {
			slog.Fatal("schedule stop error:%v", err)
		}
	}
	if settings.StatsInterval > 0 {
		reporter := biz.NewStatsReporter(r, settings.StatsInterval, emitter, r.Registry().Stats)
		if err = reporter.Start(); err != nil {
			slog.Fatal("schedule stats error:%v", err)
		}
	}

	exit := 0
	if err = r.Run(); err != nil {
		slog.Error("run error:%v", err)
		exit = 1
	}
	slog.Info("emitter:%+v", emitter.Stats())
	if err = r.Close(); err != nil {
		slog.Error("close reactor error:%v", err)
	}
	plugins.Close()
	os.Exit(exit)
}

func printSettings(settings *config.AppSettings) {
	slog.Info("sys-class-net, %v", settings.SysClassNet)
	slog.Info("ignore-interface, %v", settings.IgnoreInterface)
	slog.Info("bpf-filter, %v", settings.BPFFilter)
	slog.Info("capture-outgoing, %v", settings.CaptureOutgoing)

	slog.Info("output-stdout, %v", settings.OutputStdout)
	slog.Info("output-file-directory, %v", settings.OutputFileDir)
	slog.Info("output-pcap, %v", settings.OutputPcap)
	slog.Info("output-kafka-host, %v", settings.OutputKafkaHost)
	slog.Info("output-kafka-topic, %v", settings.OutputKafkaTopic)

	slog.Info("include-filter-interface-match, %v", settings.IncludeFilterInterfaceMatch)
	slog.Info("exclude-filter-interface, %v", settings.ExcludeFilterInterface)
	slog.Info("rate-limit-qps, %v", settings.RateLimitQPS)
	slog.Info("rate-limit-interface-qps, %v", settings.RateLimitInterfaceQPS)
	slog.Info("codec, %v", settings.Codec)
}

func adjustLogLevel() {
	logLevel := os.Getenv("SIMPLE_LOG_LEVEL")
	if len(logLevel) > 0 {
		return
	}
	slog.SetLevel(slog.InfoLevel)
}
