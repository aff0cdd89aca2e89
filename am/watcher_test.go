package am

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWatcherReloads(t *testing.T) {
	_, project := isolate(t)
	path := filepath.Join(project, "am.toml")
	writeFile(t, path, "[server]\nport = 9000\n")

	cw, err := NewConfigWatcher(path)
	require.NoError(t, err)
	cw.debouncePeriod = 200 * time.Millisecond
	t.Cleanup(func() { _ = cw.Stop() })

	reloaded := make(chan *Config, 4)
	cw.OnReload(func(cfg *Config) error {
		reloaded <- cfg
		return nil
	})
	cw.Start()

	writeFile(t, path, "[server]\nport = 9001\n")

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 9001, cfg.Server.Port)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestSetValueMarksOwnWrite(t *testing.T) {
	_, project := isolate(t)
	path := filepath.Join(project, "am.toml")
	writeFile(t, path, "[server]\nport = 9000\n")

	cw, err := NewConfigWatcher(path)
	require.NoError(t, err)
	SetGlobalWatcher(cw)
	t.Cleanup(func() {
		SetGlobalWatcher(nil)
		_ = cw.Stop()
	})

	assert.False(t, cw.checkOwnWrite())
	require.NoError(t, SetValue(path, "server.port", "9002"))
	assert.True(t, cw.checkOwnWrite())
	assert.False(t, cw.checkOwnWrite(), "flag is cleared once seen")
}

func TestConfigWatcherStopIsIdempotent(t *testing.T) {
	_, project := isolate(t)
	path := filepath.Join(project, "am.toml")
	writeFile(t, path, "")

	cw, err := NewConfigWatcher(path)
	require.NoError(t, err)
	cw.Start()
	require.NoError(t, cw.Stop())
	assert.NoError(t, cw.Stop())
}
