package biz

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vearne/netsched/config"
	"github.com/vearne/netsched/protocol"
)

func TestNewPlugins(t *testing.T) {
	dir := t.TempDir()
	settings := &config.AppSettings{
		Codec:         protocol.CodecSimpleName,
		OutputStdout:  true,
		OutputDummy:   true,
		OutputFileDir: []string{dir},
		OutputPcap:    filepath.Join(dir, "frames.pcap"),
	}
	plugins, err := NewPlugins(settings)
	require.Nil(t, err)
	assert.Len(t, plugins.Outputs, 4)
	assert.Len(t, plugins.All, 4)
	t.Logf("plugins:%v", plugins)

	plugins.Close()
	assert.Len(t, plugins.All, 0)
}

func TestNewPluginsError(t *testing.T) {
	dir := t.TempDir()
	cases := []*config.AppSettings{
		{Codec: "xml", OutputStdout: true},
		{Codec: protocol.CodecJsonName, OutputFileDir: []string{filepath.Join(dir, "missing")}},
		{Codec: protocol.CodecJsonName, OutputPcap: filepath.Join(dir, "missing", "frames.pcap")},
	}
	for _, settings := range cases {
		plugins, err := NewPlugins(settings)
		assert.Nil(t, plugins)
		assert.NotNil(t, err)
		t.Logf("error:%v", err)
	}
}
