package display

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/hamcall/errors"
)

// ShouldOutputJSON determines if a command should output JSON based on the
// --json flags and HAMCALL_OUTPUT
func ShouldOutputJSON(cmd *cobra.Command) bool {
	// Handle nil command gracefully (e.g., when called without command context)
	if cmd == nil {
		return jsonFromEnv()
	}

	// Check if --json flag was explicitly set on the command itself
	if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		return jsonFlag
	}

	// Check global --json flag
	if globalFlag, _ := cmd.Root().PersistentFlags().GetBool("json"); globalFlag {
		return true
	}

	return jsonFromEnv()
}

// jsonFromEnv lets scripts ask for JSON once instead of on every call.
func jsonFromEnv() bool {
	return strings.EqualFold(os.Getenv("HAMCALL_OUTPUT"), "json")
}

// OutputJSON marshals and prints JSON using display.MarshalJSON
func OutputJSON(v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	fmt.Println(string(data))
	return nil
}
