package commands

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/hamcall/am"
	"github.com/teranos/hamcall/errors"
	"github.com/teranos/hamcall/sym"
)

// AmCmd represents the am (configuration) command
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Manage hamcall configuration",
	Long: sym.AM + ` am — Manage hamcall configuration ("I am")

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (HAMCALL_* prefix, CLUBLOG_API_KEY, .env)
3. Project config (./am.toml, searched upwards)
4. User config (~/.hamcall/am.toml)
5. System config (/etc/hamcall/am.toml)
6. Default values

Examples:
  hamcall am show                    # Show current configuration
  hamcall am show --format json      # Show configuration in JSON format
  hamcall am get dataset.path        # Get specific config value
  hamcall am set server.port 9000    # Write a value to ./am.toml
  hamcall am init                    # Write ~/.hamcall/am.toml with defaults
  hamcall am validate                # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  "Display the current configuration merged from all sources. The API key is masked.",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., dataset.path, batch.workers)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a configuration value",
	Long: `Write one value to a config file, keeping every other key and a
rotating .back1..3 copy. Lists are comma separated.`,
	Args: cobra.ExactArgs(2),
	RunE: runAmSet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show where configuration is loaded from",
	Long: `Show the configuration cascade and where each active setting
comes from.`,
	RunE: runAmWhere,
}

var amInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file holding every default",
	RunE:  runAmInit,
}

var (
	configFormat string
	amSetFile    string
	amInitFile   string
	amForce      bool
)

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", "toml", "Output format: toml, json, yaml")
	amSetCmd.Flags().StringVar(&amSetFile, "file", "am.toml", "Config file to write")
	amInitCmd.Flags().StringVar(&amInitFile, "file", "", "Config file to write (default ~/.hamcall/am.toml)")
	amInitCmd.Flags().BoolVar(&amForce, "force", false, "Overwrite an existing file")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amSetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
	AmCmd.AddCommand(amInitCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	loaded, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	cfg := *loaded
	if cfg.Dataset.APIKey != "" {
		cfg.Dataset.APIKey = "********"
	}

	switch configFormat {
	case "json":
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to JSON")
		}
		fmt.Println(string(data))

	case "yaml":
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to YAML")
		}
		fmt.Printf("# hamcall configuration\n%s", string(data))

	case "toml":
		data, err := toml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal config to TOML")
		}
		fmt.Printf("# hamcall configuration\n%s", string(data))

	default:
		return errors.NewInvalidRequestError("unsupported format: %s (supported: toml, json, yaml)", configFormat)
	}

	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	v := am.GetViper()
	if !v.IsSet(key) {
		return errors.NewNotFoundError("configuration key %q not found", key)
	}
	fmt.Println(am.Get(key))
	return nil
}

func runAmSet(cmd *cobra.Command, args []string) error {
	if err := am.SetValue(amSetFile, args[0], args[1]); err != nil {
		return err
	}
	pterm.Success.Printfln("%s = %s written to %s", args[0], args[1], amSetFile)
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	fmt.Println("✓ Configuration is valid")
	return nil
}

func runAmInit(cmd *cobra.Command, args []string) error {
	path := amInitFile
	if path == "" {
		path = filepath.Join(am.UserConfigDir(), "am.toml")
	}
	if err := am.WriteDefault(path, amForce); err != nil {
		return err
	}
	pterm.Success.Printfln("Wrote %s", path)
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	intro, err := am.GetConfigIntrospection()
	if err != nil {
		return errors.Wrap(err, "failed to get config introspection")
	}

	fmt.Println("Configuration cascade (later overrides earlier):")
	fmt.Println("  1. [DEFAULT]  Built-in defaults")
	fmt.Println("  2. [SYSTEM]   /etc/hamcall/am.toml")
	fmt.Println("  3. [USER]     ~/.hamcall/am.toml")
	fmt.Println("  4. [PROJECT]  ./am.toml (searches up directories)")
	fmt.Println("  5. [ENV]      HAMCALL_* environment variables, CLUBLOG_API_KEY")
	fmt.Println()

	if len(intro.ConfigFiles) == 0 {
		fmt.Println("No config files found, using defaults and environment")
	} else {
		fmt.Println("Files merged:")
		for _, f := range intro.ConfigFiles {
			fmt.Printf("  %s\n", f)
		}
	}
	fmt.Println()

	type fileGroup struct {
		source   am.ConfigSource
		path     string
		settings []am.SettingInfo
	}
	settingsByPath := make(map[string]*fileGroup)
	for _, setting := range intro.Settings {
		key := setting.SourcePath
		if setting.Source == am.SourceDefault || setting.Source == am.SourceEnvironment {
			key = string(setting.Source)
		}
		if group, exists := settingsByPath[key]; exists {
			group.settings = append(group.settings, setting)
			continue
		}
		path := setting.SourcePath
		if setting.Source == am.SourceDefault || setting.Source == am.SourceEnvironment {
			path = ""
		}
		settingsByPath[key] = &fileGroup{
			source:   setting.Source,
			path:     path,
			settings: []am.SettingInfo{setting},
		}
	}

	sourceOrder := []am.ConfigSource{
		am.SourceDefault,
		am.SourceSystem,
		am.SourceUser,
		am.SourceProject,
		am.SourceEnvironment,
	}

	fmt.Println("Active configuration:")
	for _, source := range sourceOrder {
		var groups []*fileGroup
		for _, group := range settingsByPath {
			if group.source == source {
				groups = append(groups, group)
			}
		}
		sort.Slice(groups, func(i, j int) bool { return groups[i].path < groups[j].path })

		for _, group := range groups {
			switch {
			case group.path != "":
				fmt.Printf("\n%s: %d settings from %s\n", source, len(group.settings), group.path)
			case source == am.SourceEnvironment:
				fmt.Printf("\n%s: %d settings from environment variables\n", source, len(group.settings))
			default:
				fmt.Printf("\n%s: %d settings\n", source, len(group.settings))
			}

			for _, setting := range group.settings {
				valueStr := fmt.Sprintf("%v", setting.Redacted())
				if len(valueStr) > 50 {
					valueStr = valueStr[:47] + "..."
				}
				if source == am.SourceEnvironment {
					fmt.Printf("  %s = %s (%s)\n", setting.Key, valueStr, setting.SourcePath)
				} else {
					fmt.Printf("  %s = %s\n", setting.Key, valueStr)
				}
			}
		}
	}

	return nil
}
