package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/hamcall/display"
	"github.com/teranos/hamcall/sym"
	"github.com/teranos/hamcall/version"
)

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: sym.Version + " Show hamcall version information",
	Long:  `Display version, build time, commit hash, and platform information for the hamcall binary.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.Get()
		if display.ShouldOutputJSON(cmd) {
			return display.OutputJSON(info)
		}
		fmt.Println(info.String())
		fmt.Printf("Platform: %s\n", info.Platform)
		fmt.Printf("Go: %s\n", info.GoVersion)
		return nil
	},
}
