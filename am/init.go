package am

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/teranos/hamcall/errors"
)

const defaultHeader = `# hamcall configuration
#
# Precedence, lowest first: /etc/hamcall/am.toml, ~/.hamcall/am.toml,
# ./am.toml (searched upward), HAMCALL_* environment variables.
# Keep the ClubLog API key out of this file: export CLUBLOG_API_KEY.

`

// DefaultConfig returns the configuration with only built-in defaults.
func DefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		// Defaults always decode; a failure here is a programming error
		panic(errors.AssertionFailedf("decode defaults: %v", err))
	}
	return cfg
}

// WriteDefault writes a commented am.toml holding every default to path.
// An existing file is left alone unless force is set.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return errors.WithHint(
			errors.Newf("%s already exists", path),
			"pass --force to overwrite it (a .back1 copy is kept)")
	}

	var buf bytes.Buffer
	buf.WriteString(defaultHeader)
	if err := toml.NewEncoder(&buf).Encode(DefaultConfig()); err != nil {
		return errors.Wrap(err, "encode default config")
	}

	if err := os.MkdirAll(filepath.Dir(path), DefaultDirPermissions); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	if err := createBackup(path); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}
	if err := os.WriteFile(path, buf.Bytes(), DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
