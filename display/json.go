package display

import (
	"encoding/json"
	"os"
)

// MarshalJSON marshals JSON with pretty formatting for terminals, compact
// when HAMCALL_JSON_COMPACT is set for line-oriented consumers
func MarshalJSON(v interface{}) ([]byte, error) {
	if os.Getenv("HAMCALL_JSON_COMPACT") != "" {
		return json.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}
