package am

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/teranos/hamcall/errors"
)

// EnvPrefix namespaces every environment override, e.g. HAMCALL_SERVER_PORT.
const EnvPrefix = "HAMCALL"

var (
	mu            sync.Mutex
	globalConfig  *Config
	viperInstance *viper.Viper
	mergedFiles   []string

	// ConfigSources records which file supplied each key, filled while
	// merging. Env overrides are detected at introspection time.
	ConfigSources = map[string]SourceInfo{}
)

// Load reads the hamcall configuration using Viper
func Load() (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	if globalConfig != nil {
		return globalConfig, nil
	}

	config, err := LoadWithViper(initViper())
	if err != nil {
		return nil, err
	}
	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	mu.Lock()
	defer mu.Unlock()
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	// Set defaults but don't bind environment variables for this specific load
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	config, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "config file %s", configPath)
	}
	return config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	globalConfig = nil
	viperInstance = nil
	mergedFiles = nil
	ConfigSources = map[string]SourceInfo{}
}

// ConfigFiles lists the files merged into the active configuration,
// lowest precedence first.
func ConfigFiles() []string {
	mu.Lock()
	defer mu.Unlock()
	initViper()
	return append([]string(nil), mergedFiles...)
}

// initViper initializes Viper with configuration sources and defaults.
// Callers hold mu.
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	// A .env next to the working directory fills in variables the shell
	// did not set. Real environment variables win.
	_ = godotenv.Load()

	v := viper.New()

	// Set up environment variable binding
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific sensitive configuration values to environment variables
	BindSensitiveEnvVars(v)

	// Set defaults first
	SetDefaults(v)

	// Manually merge configs in precedence order: system -> user -> project -> env vars
	mergedFiles = mergeConfigFiles(v, candidatePaths())

	viperInstance = v
	return v
}

// UserConfigDir is ~/.hamcall
func UserConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".hamcall"
	}
	return filepath.Join(homeDir, ".hamcall")
}

// configPath is one candidate file and the source kind it represents.
type configPath struct {
	path   string
	source ConfigSource
}

// candidatePaths returns every config location, lowest precedence first.
func candidatePaths() []configPath {
	paths := []configPath{
		// System config (lowest precedence)
		{"/etc/hamcall/am.toml", SourceSystem},
		{filepath.Join(UserConfigDir(), "am.toml"), SourceUser},
	}
	// Project config is the highest file precedence, below env vars
	if project := findProjectConfig(); project != "" {
		paths = append(paths, configPath{project, SourceProject})
	}
	return paths
}

// findProjectConfig searches for am.toml by walking up the directory tree.
// Returns the path to the first config file found, or empty string if none found
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		amPath := filepath.Join(dir, "am.toml")
		if _, err := os.Stat(amPath); err == nil {
			return amPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root, stop searching
			break
		}
		dir = parent
	}

	return ""
}

// mergeConfigFiles merges the files that exist into v in order, later
// files overriding earlier ones, and returns the ones it read.
func mergeConfigFiles(v *viper.Viper, configPaths []configPath) []string {
	var used []string
	for _, cp := range configPaths {
		if _, err := os.Stat(cp.path); err != nil {
			continue
		}

		tempViper := viper.New()
		tempViper.SetConfigFile(cp.path)
		tempViper.SetConfigType("toml")
		if err := tempViper.ReadInConfig(); err != nil {
			continue
		}

		// MergeConfigMap keeps the values in viper's config layer, so
		// env vars still override them
		if err := v.MergeConfigMap(tempViper.AllSettings()); err != nil {
			continue
		}
		for _, key := range tempViper.AllKeys() {
			ConfigSources[key] = SourceInfo{Source: cp.source, Path: cp.path}
		}
		used = append(used, cp.path)
	}
	return used
}

// Get returns a configuration value using dot notation
func Get(key string) interface{} {
	return GetViper().Get(key)
}

// GetString returns a configuration value as string using dot notation
func GetString(key string) string {
	return GetViper().GetString(key)
}

// GetBool returns a configuration value as bool using dot notation
func GetBool(key string) bool {
	return GetViper().GetBool(key)
}

// GetInt returns a configuration value as int using dot notation
func GetInt(key string) int {
	return GetViper().GetInt(key)
}

// GetFloat64 returns a configuration value as float64 using dot notation
func GetFloat64(key string) float64 {
	return GetViper().GetFloat64(key)
}

// GetDatabasePath returns the configured database path
func GetDatabasePath() (string, error) {
	config, err := Load()
	if err != nil {
		return "", err
	}
	return config.Database.Path, nil
}
