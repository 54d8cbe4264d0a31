package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vearne/netsched/protocol"
)

// IsValidDir returns nil if dirPath is an existing directory nsched can create files in.
func IsValidDir(dirPath string) error {
	info, err := os.Stat(dirPath)
	if err != nil {
		return errors.Wrap(err, "invalid directory")
	}
	if !info.IsDir() {
		return errors.Errorf("%v is not direcotry", dirPath)
	}
	f, err := os.CreateTemp(dirPath, ".nsched-*")
	if err != nil {
		return errors.Wrapf(err, "%v is not writable", dirPath)
	}
	f.Close()
	return os.Remove(f.Name())
}

// frameFileName is the file records of one interface go to.
func frameFileName(ifname, codec string) string {
	// interface names never contain a separator, but records must not escape the directory
	ifname = strings.ReplaceAll(ifname, string(os.PathSeparator), "_")
	if ifname == "" {
		ifname = "unknown"
	}
	return fmt.Sprintf("%s.%s.log", ifname, codec)
}

type FileDirOutputConfig struct {
	// MaxSize is the maximum size in megabytes of the log file before it gets rotated.
	MaxSize int `json:"maxSize"`
	// MaxBackups is the maximum number of old log files to retain.
	MaxBackups int `json:"maxBackups"`
	// MaxAge is the maximum number of days to retain old log files based on the
	// timestamp encoded in their filename.
	MaxAge int `json:"maxAge"`
}

// FileDirOutput writes encoded records into one directory, a rotating file
// per interface. Files are opened on the first record of their interface.
type FileDirOutput struct {
	codec   protocol.Codec
	dir     string
	cf      FileDirOutputConfig
	loggers map[string]*lumberjack.Logger
}

func NewFileDirOutput(codec string, path string, cf *FileDirOutputConfig) (*FileDirOutput, error) {
	if err := IsValidDir(path); err != nil {
		return nil, err
	}
	c, err := getCodec(codec)
	if err != nil {
		return nil, err
	}
	return &FileDirOutput{
		codec:   c,
		dir:     path,
		cf:      *cf,
		loggers: make(map[string]*lumberjack.Logger),
	}, nil
}

func (o *FileDirOutput) logger(ifname string) *lumberjack.Logger {
	l, ok := o.loggers[ifname]
	if !ok {
		l = &lumberjack.Logger{
			Filename:   filepath.Join(o.dir, frameFileName(ifname, o.codec.Name())),
			MaxSize:    o.cf.MaxSize, // megabytes
			MaxBackups: o.cf.MaxBackups,
			MaxAge:     o.cf.MaxAge, //days
			Compress:   true,
		}
		o.loggers[ifname] = l
	}
	return l
}

// Close closes every interface file and returns the first error.
func (o *FileDirOutput) Close() error {
	var first error
	for _, l := range o.loggers {
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (o *FileDirOutput) Write(msg *protocol.Message) error {
	data, err := o.codec.Marshal(msg)
	if err != nil {
		return err
	}
	// newline after each record
	data = append(data, '\n')
	_, err = o.logger(msg.Interface).Write(data)
	return err
}

// Files returns the paths written so far, sorted.
func (o *FileDirOutput) Files() []string {
	files := make([]string, 0, len(o.loggers))
	for _, l := range o.loggers {
		files = append(files, l.Filename)
	}
	sort.Strings(files)
	return files
}

func (o *FileDirOutput) String() string {
	return "File Directory Output: " + o.dir
}
