package am

import (
	"os"
	"sort"
	"strings"
)

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/hamcall/am.toml
	SourceUser        ConfigSource = "user"        // ~/.hamcall/am.toml
	SourceProject     ConfigSource = "project"     // project am.toml
	SourceEnvironment ConfigSource = "environment" // HAMCALL_* env vars
)

// SettingInfo contains metadata about a configuration setting
type SettingInfo struct {
	Key        string       `json:"key"`
	Value      interface{}  `json:"value"`
	Source     ConfigSource `json:"source"`
	SourcePath string       `json:"source_path,omitempty"` // File path or env var name
}

// ConfigIntrospection provides metadata about the active configuration
type ConfigIntrospection struct {
	ConfigFiles []string      `json:"config_files"` // Merged files, lowest precedence first
	Settings    []SettingInfo `json:"settings"`     // All settings with sources
}

// SourceInfo tracks where a configuration value originated
type SourceInfo struct {
	Source ConfigSource
	Path   string // File path or environment variable name
}

// GetConfigIntrospection returns detailed information about active configuration
// using the sources tracked during actual configuration loading
func GetConfigIntrospection() (*ConfigIntrospection, error) {
	files := ConfigFiles()

	mu.Lock()
	settings := viperInstance.AllSettings()
	sources := make(map[string]SourceInfo, len(ConfigSources))
	for k, v := range ConfigSources {
		sources[k] = v
	}
	mu.Unlock()

	introspection := &ConfigIntrospection{
		ConfigFiles: files,
		Settings:    make([]SettingInfo, 0),
	}
	flattenSettingsWithSources(settings, "", introspection, sources)
	return introspection, nil
}

// flattenSettingsWithSources flattens settings and assigns sources from sourceMap
func flattenSettingsWithSources(settings map[string]interface{}, prefix string, introspection *ConfigIntrospection, sourceMap map[string]SourceInfo) {
	// Sort keys for deterministic iteration
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := settings[key]
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nestedMap, ok := value.(map[string]interface{}); ok {
			flattenSettingsWithSources(nestedMap, fullKey, introspection, sourceMap)
			continue
		}

		sourceInfo := SourceInfo{Source: SourceDefault, Path: "built-in default"}
		if si, ok := sourceMap[fullKey]; ok {
			sourceInfo = si
		}
		if envKey, ok := envOverride(fullKey); ok {
			sourceInfo = SourceInfo{Source: SourceEnvironment, Path: envKey}
		}

		introspection.Settings = append(introspection.Settings, SettingInfo{
			Key:        fullKey,
			Value:      value,
			Source:     sourceInfo.Source,
			SourcePath: sourceInfo.Path,
		})
	}
}

// envOverride reports the environment variable overriding key, if any.
func envOverride(key string) (string, bool) {
	candidates := []string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}
	if key == "dataset.api_key" {
		candidates = append(candidates, "CLUBLOG_API_KEY")
	}
	for _, envKey := range candidates {
		if os.Getenv(envKey) != "" {
			return envKey, true
		}
	}
	return "", false
}

// Redacted returns value, masking secrets for display.
func (s SettingInfo) Redacted() interface{} {
	if strings.HasSuffix(s.Key, "api_key") {
		if str, ok := s.Value.(string); ok && str != "" {
			return "********"
		}
	}
	return s.Value
}

// GetConfigSummary returns a human-readable config summary
func GetConfigSummary() map[string]interface{} {
	sources := map[string]int{}
	summary := map[string]interface{}{
		"config_files": ConfigFiles(),
		"sources":      sources,
	}

	introspection, err := GetConfigIntrospection()
	if err != nil {
		return summary
	}
	for _, setting := range introspection.Settings {
		sources[string(setting.Source)]++
	}
	return summary
}
