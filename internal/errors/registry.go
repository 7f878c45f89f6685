package errors

// Template defines a registered error type.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// Configuration (E100-E199)

	"E100": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No editstream.json was found at the given path.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "editstream.json could not be read or is not valid JSON.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid environment override",
		Detail:   "An EDITSTREAM_* variable could not be parsed into its setting.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},

	// Stream files (E200-E299)

	"E200": {
		Category: CategoryStream,
		Message:  "Stream file could not be decoded",
		Detail:   "The file is neither a valid binary stream nor valid CBOR for the selected codec.",
	},
	"E201": {
		Category: CategoryStream,
		Message:  "Stream rejected",
		Detail:   "The stream breaks stack balance or references an id that no earlier stream introduced.",
	},
	"E202": {
		Category: CategoryStream,
		Message:  "Stream failed to apply",
		Detail:   "The interpreter stopped at the failing edit. Earlier edits stay applied.",
	},

	// Transport (E300-E399)

	"E300": {
		Category: CategoryTransport,
		Message:  "Connection failed",
		Detail:   "The model server could not be reached or refused the WebSocket upgrade.",
	},
	"E301": {
		Category: CategoryTransport,
		Message:  "Server failed",
		Detail:   "The HTTP listener stopped with an error.",
	},
	"E302": {
		Category: CategoryTransport,
		Message:  "Journal sink unavailable",
		Detail:   "The S3 journal sink could not be configured.",
	},

	// Command usage (E900-E999)

	"E900": {
		Category: CategoryCLI,
		Message:  "Invalid argument",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
