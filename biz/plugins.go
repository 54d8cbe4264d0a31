package biz

import (
	"fmt"
	"io"
	"reflect"

	"github.com/pkg/errors"
	slog "github.com/vearne/simplelog"

	"github.com/vearne/netsched/config"
	"github.com/vearne/netsched/plugin"
)

// OutPlugins struct for holding references to plugins
type OutPlugins struct {
	Outputs []PluginWriter
	All     []interface{}
}

// NewPlugins specify and initialize all configured output plugins.
// On failure the plugins created so far are closed.
func NewPlugins(settings *config.AppSettings) (plugins *OutPlugins, err error) {
	plugins = new(OutPlugins)
	defer func() {
		if err != nil {
			plugins.Close()
			plugins = nil
		}
	}()

	if settings.OutputStdout {
		slog.Debug("NewStdOutput")
		if err = plugins.registerPlugin(plugin.NewStdOutput, settings.Codec); err != nil {
			return plugins, err
		}
	}

	if settings.OutputDummy {
		slog.Debug("NewDummyOutput")
		if err = plugins.registerPlugin(plugin.NewDummyOutput); err != nil {
			return plugins, err
		}
	}

	for _, path := range settings.OutputFileDir {
		slog.Debug("NewFileDirOutput, path:%v", path)
		cf := &plugin.FileDirOutputConfig{
			MaxSize:    settings.OutputFileMaxSize,
			MaxBackups: settings.OutputFileMaxBackups,
			MaxAge:     settings.OutputFileMaxAge,
		}
		if err = plugins.registerPlugin(plugin.NewFileDirOutput, settings.Codec, path, cf); err != nil {
			return plugins, err
		}
	}

	if len(settings.OutputPcap) > 0 {
		slog.Debug("NewPcapOutput, path:%v", settings.OutputPcap)
		if err = plugins.registerPlugin(plugin.NewPcapOutput, settings.OutputPcap); err != nil {
			return plugins, err
		}
	}

	if len(settings.OutputKafkaHost) > 0 {
		cf := &plugin.OutputKafkaConfig{
			Host:  settings.OutputKafkaHost,
			Topic: settings.OutputKafkaTopic,
		}
		if err = plugins.registerPlugin(plugin.NewKafkaOutput, settings.Codec, cf); err != nil {
			return plugins, err
		}
	}

	return plugins, nil
}

// Automatically detects type of plugin and initialize it
func (plugins *OutPlugins) registerPlugin(constructor interface{}, options ...interface{}) error {
	vc := reflect.ValueOf(constructor)

	// Pre-processing options to make it work with reflect
	vo := []reflect.Value{}
	for _, oi := range options {
		vo = append(vo, reflect.ValueOf(oi))
	}

	// Calling our constructor with list of given options
	out := vc.Call(vo)
	if len(out) > 1 && !out[1].IsNil() {
		return errors.Wrapf(out[1].Interface().(error), "%v", vc.Type())
	}
	plugin := out[0].Interface()

	if w, ok := plugin.(PluginWriter); ok {
		plugins.Outputs = append(plugins.Outputs, w)
	}
	plugins.All = append(plugins.All, plugin)
	return nil
}

// Close closes every plugin that implements io.Closer.
func (plugins *OutPlugins) Close() {
	for _, p := range plugins.All {
		if cp, ok := p.(io.Closer); ok {
			if err := cp.Close(); err != nil {
				slog.Error("close plugin %v, error:%v", p, err)
			}
		}
	}
	plugins.All = nil // avoid Close to make changes again
	plugins.Outputs = nil
}

func (plugins *OutPlugins) String() string {
	return fmt.Sprintf("#####  len(Outputs):%d, len(All):%d   #####",
		len(plugins.Outputs), len(plugins.All))
}
