package display

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func newCommands() (*cobra.Command, *cobra.Command) {
	root := &cobra.Command{Use: "hamcall"}
	root.PersistentFlags().Bool("json", false, "")
	child := &cobra.Command{Use: "lookup", Run: func(*cobra.Command, []string) {}}
	root.AddCommand(child)
	return root, child
}

func TestShouldOutputJSON(t *testing.T) {
	t.Setenv("HAMCALL_OUTPUT", "")

	root, child := newCommands()
	assert.False(t, ShouldOutputJSON(child))

	root.SetArgs([]string{"lookup", "--json"})
	_ = root.Execute()
	assert.True(t, ShouldOutputJSON(child))

	t.Setenv("HAMCALL_OUTPUT", "JSON")
	assert.True(t, ShouldOutputJSON(nil))
	_, child = newCommands()
	assert.True(t, ShouldOutputJSON(child))
}

func TestMarshalJSON(t *testing.T) {
	t.Setenv("HAMCALL_JSON_COMPACT", "")
	data, err := MarshalJSON(map[string]int{"adif": 230})
	assert.NoError(t, err)
	assert.Equal(t, "{\n  \"adif\": 230\n}", string(data))

	t.Setenv("HAMCALL_JSON_COMPACT", "1")
	data, err = MarshalJSON(map[string]int{"adif": 230})
	assert.NoError(t, err)
	assert.Equal(t, `{"adif":230}`, string(data))
}
