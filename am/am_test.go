package am

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/hamcall/errors"
)

// isolate points HOME and the working directory at fresh temp dirs so no
// real config leaks into a test. It returns the project dir.
func isolate(t *testing.T) (home, project string) {
	t.Helper()
	Reset()
	t.Cleanup(Reset)

	home = t.TempDir()
	project = t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CLUBLOG_API_KEY", "")
	t.Setenv("HAMCALL_DATASET_API_KEY", "")
	t.Setenv("HAMCALL_DATABASE_PATH", "")
	t.Chdir(project)
	return home, project
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultDatasetPath, cfg.Dataset.Path)
	assert.Equal(t, DefaultDatasetURL, cfg.Dataset.URL)
	assert.True(t, cfg.Analysis.EnforceWhitelist)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.False(t, cfg.Database.RecordLookups)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultBatchWorkers, cfg.Batch.Workers)
	assert.Equal(t, time.Hour, cfg.Dataset.MinRefresh())
	assert.Zero(t, cfg.Dataset.RefreshInterval())
	assert.Empty(t, ConfigFiles())
	require.NoError(t, cfg.Validate())
}

func TestLoadPrecedence(t *testing.T) {
	home, project := isolate(t)

	writeFile(t, filepath.Join(home, ".hamcall", "am.toml"), `
[dataset]
path = "/srv/cty/cty.xml"

[server]
port = 9000
`)
	writeFile(t, filepath.Join(project, "am.toml"), `
[server]
port = 9100
`)

	cfg, err := Load()
	require.NoError(t, err)

	// Project overrides user for the key it sets, the rest survives
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "/srv/cty/cty.xml", cfg.Dataset.Path)

	assert.Equal(t, SourceProject, ConfigSources["server.port"].Source)
	assert.Equal(t, SourceUser, ConfigSources["dataset.path"].Source)
	assert.Len(t, ConfigFiles(), 2)
}

func TestEnvOverridesFiles(t *testing.T) {
	_, project := isolate(t)

	writeFile(t, filepath.Join(project, "am.toml"), `
[server]
port = 9100
`)
	t.Setenv("HAMCALL_SERVER_PORT", "9200")
	t.Setenv("CLUBLOG_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Dataset.APIKey)
	assert.NotContains(t, cfg.String(), "secret")

	introspection, err := GetConfigIntrospection()
	require.NoError(t, err)

	found := map[string]SettingInfo{}
	for _, s := range introspection.Settings {
		found[s.Key] = s
	}
	assert.Equal(t, SourceEnvironment, found["server.port"].Source)
	assert.Equal(t, "HAMCALL_SERVER_PORT", found["server.port"].SourcePath)
	assert.Equal(t, "CLUBLOG_API_KEY", found["dataset.api_key"].SourcePath)
	assert.Equal(t, "********", found["dataset.api_key"].Redacted())
	assert.Equal(t, SourceDefault, found["batch.workers"].Source)
}

func TestFindProjectConfigWalksUp(t *testing.T) {
	_, project := isolate(t)

	writeFile(t, filepath.Join(project, "am.toml"), "[batch]\nworkers = 2\n")
	nested := filepath.Join(project, "logs", "2024")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Chdir(nested)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Batch.Workers)
}

func TestLoadFromFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.toml")
	writeFile(t, path, "[analysis]\nenforce_whitelist = false\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.False(t, cfg.Analysis.EnforceWhitelist)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"empty dataset path", func(c *Config) { c.Dataset.Path = " " }, "dataset.path"},
		{"ftp url", func(c *Config) { c.Dataset.URL = "ftp://example.org/cty.xml" }, "dataset.url"},
		{"negative refresh", func(c *Config) { c.Dataset.RefreshIntervalHours = -1 }, "refresh_interval_hours"},
		{"zero timeout", func(c *Config) { c.Dataset.TimeoutSeconds = 0 }, "timeout_seconds"},
		{"record without db", func(c *Config) {
			c.Database.RecordLookups = true
			c.Database.Path = ""
		}, "database.path"},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"burst without rate", func(c *Config) { c.Server.RateLimitBurst = 0 }, "rate_limit_burst"},
		{"unlimited rate", func(c *Config) {
			c.Server.RateLimitPerSecond = 0
			c.Server.RateLimitBurst = 0
		}, ""},
		{"no workers", func(c *Config) { c.Batch.Workers = 0 }, "batch.workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSetValue(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "am.toml")
	writeFile(t, path, "# mine\n[dataset]\npath = \"cty.xml\"\n")

	require.NoError(t, SetValue(path, "server.port", "9300"))
	require.NoError(t, SetValue(path, "analysis.enforce_whitelist", "false"))
	require.NoError(t, SetValue(path, "server.allowed_origins", "http://a, http://b"))
	require.NoError(t, SetValue(path, "server.rate_limit_per_second", "2.5"))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9300, cfg.Server.Port)
	assert.False(t, cfg.Analysis.EnforceWhitelist)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 2.5, cfg.Server.RateLimitPerSecond)
	assert.Equal(t, "cty.xml", cfg.Dataset.Path)

	// Four writes keep three backups
	for _, suffix := range []string{".back1", ".back2", ".back3"} {
		assert.FileExists(t, path+suffix)
	}

	err = SetValue(path, "server.colour", "blue")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequestError(err))

	err = SetValue(path, "server.port", "eighty")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequestError(err))

	err = SetValue(path, "server.port", "0")
	require.Error(t, err)
	assert.True(t, errors.IsInvalidRequestError(err))

	// Rejected writes leave the file as it was
	cfg, err = LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 9300, cfg.Server.Port)
}

func TestWriteDefault(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "conf", "am.toml")

	require.NoError(t, WriteDefault(path, false))
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	err = WriteDefault(path, false)
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))

	require.NoError(t, WriteDefault(path, true))
	assert.FileExists(t, path+".back1")
}

func TestIsBackupFile(t *testing.T) {
	assert.True(t, isBackupFile("/home/op/.hamcall/am.toml.back1"))
	assert.True(t, isBackupFile("am.toml.back3"))
	assert.False(t, isBackupFile("am.toml"))
}
