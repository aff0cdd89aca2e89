// Package sym defines the glyphs hamcall prints in CLI output and attaches
// to log entries. They are stable across the CLI, the HTTP service and logs.
package sym

// Command glyphs, one per top-level command.
const (
	Lookup  = "⌖" // lookup: resolve a callsign to its entity
	Prefix  = "⊢" // prefix: raw prefix records
	Batch   = "⋯" // batch: CSV verification
	Fetch   = "⇣" // fetch: download the dataset
	Serve   = "⌁" // serve: HTTP and websocket service
	AM      = "≡" // am: configuration
	DB      = "⊔" // db: storage layer
	Version = "ℹ" // version
)

// Dataset glyphs mark reload lifecycle events.
const (
	Reload   = "⟳" // dataset swapped in
	Stale    = "⌛" // dataset kept because the replacement failed
	Rejected = "⊘" // callsign could not be resolved
)

// entry binds a glyph to its command and a one-line description.
type entry struct {
	glyph       string
	command     string
	description string
}

var registry = []entry{
	{Lookup, "lookup", "Resolve callsigns to DXCC entities"},
	{Prefix, "prefix", "Show active prefix records"},
	{Batch, "batch", "Verify a CSV log against expected entities"},
	{Fetch, "fetch", "Download the reference dataset"},
	{Serve, "serve", "Run the lookup service"},
	{AM, "am", "Configuration"},
	{DB, "db", "Lookup history and dataset loads"},
	{Version, "version", "Build information"},
}

// SymbolToCommand maps glyph strings to their command names.
var SymbolToCommand = map[string]string{}

// CommandToSymbol maps command names to their glyph strings.
var CommandToSymbol = map[string]string{}

// CommandDescriptions holds the short help line shown next to each glyph.
var CommandDescriptions = map[string]string{}

func init() {
	for _, e := range registry {
		SymbolToCommand[e.glyph] = e.command
		CommandToSymbol[e.command] = e.glyph
		CommandDescriptions[e.command] = e.description
	}
}

// ForCommand returns the glyph for a command, or the empty string.
func ForCommand(cmd string) string {
	return CommandToSymbol[cmd]
}
