package am

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/teranos/hamcall/errors"
	"github.com/teranos/hamcall/logger"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil // No file to backup
	}

	// Rotate backups: .back3 -> delete, .back2 -> .back3, .back1 -> .back2, current -> .back1
	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		// Don't fail the save over a stale backup
		logger.Warnw("Failed to delete old config backup", "path", back3, logger.FieldError, err)
	}

	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}

	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// loadOrInitialize reads configPath as a generic TOML document, or
// returns an empty one if the file does not exist yet.
func loadOrInitialize(configPath string) (map[string]interface{}, error) {
	if err := os.MkdirAll(filepath.Dir(configPath), DefaultDirPermissions); err != nil {
		return nil, errors.Wrap(err, "failed to create config directory")
	}

	config := make(map[string]interface{})
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", configPath)
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", configPath)
	}
	return config, nil
}

// save writes config to configPath after rotating backups
func save(config map[string]interface{}, configPath string) error {
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	// Mark this as our own write to prevent reload loops
	if w := GetGlobalWatcher(); w != nil {
		w.MarkOwnWrite()
	}

	if err := os.WriteFile(configPath, data, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", configPath)
	}
	return nil
}

// SetValue sets a dotted key such as server.port in the TOML file at
// configPath, keeping every other key. Only keys hamcall knows are
// accepted, and raw is converted to the type of the key's default.
func SetValue(configPath, key, raw string) error {
	key = strings.ToLower(strings.TrimSpace(key))

	defaults := viper.New()
	SetDefaults(defaults)
	if !defaults.IsSet(key) && key != "dataset.api_key" {
		return errors.NewInvalidRequestError("unknown config key %s", key)
	}

	value, err := coerce(defaults.Get(key), raw)
	if err != nil {
		return errors.Wrapf(err, "config key %s", key)
	}

	config, err := loadOrInitialize(configPath)
	if err != nil {
		return err
	}

	parts := strings.Split(key, ".")
	section := config
	for _, part := range parts[:len(parts)-1] {
		next, ok := section[part].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			section[part] = next
		}
		section = next
	}
	section[parts[len(parts)-1]] = value

	// Reject a write that would leave the file unloadable
	probe := viper.New()
	SetDefaults(probe)
	if err := probe.MergeConfigMap(config); err != nil {
		return errors.Wrap(err, "merge")
	}
	cfg, err := LoadWithViper(probe)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Mark(err, errors.ErrInvalidRequest)
	}

	return save(config, configPath)
}

// coerce converts raw to the type of like.
func coerce(like interface{}, raw string) (interface{}, error) {
	switch like.(type) {
	case bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.NewInvalidRequestError("expected true or false, got %q", raw)
		}
		return b, nil
	case int:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.NewInvalidRequestError("expected an integer, got %q", raw)
		}
		return n, nil
	case float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.NewInvalidRequestError("expected a number, got %q", raw)
		}
		return f, nil
	case []string:
		var out []string
		for _, item := range strings.Split(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out, nil
	default:
		return raw, nil
	}
}
