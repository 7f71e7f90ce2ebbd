package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Configuration (P100-P199)
	"P101": {
		Category:   CategoryConfig,
		Message:    "Cannot read configuration file",
		Suggestion: "Check the path given with --config",
	},
	"P102": {
		Category:   CategoryConfig,
		Message:    "Configuration file is not valid JSON",
		Suggestion: "Check that pathwatch.json is valid JSON",
	},
	"P103": {
		Category:   CategoryConfig,
		Message:    "Invalid environment override",
		Suggestion: "Check the PATHWATCH_* variables in your environment",
	},
	"P104": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},

	// Documents (P200-P299)
	"P201": {
		Category:   CategoryDocument,
		Message:    "Cannot read document",
		Suggestion: "Pass a JSON file with --doc",
	},
	"P202": {
		Category:   CategoryDocument,
		Message:    "Document must be a JSON object or array",
		Suggestion: "Wrap scalar documents in an object, e.g. {\"value\": 1}",
	},

	// Scripts (P300-P399)
	"P301": {
		Category: CategoryScript,
		Message:  "Cannot read script",
	},
	"P302": {
		Category:   CategoryScript,
		Message:    "Script is not valid YAML",
		Suggestion: "A script is a YAML list of steps, each with an op and a path",
	},
	"P303": {
		Category:   CategoryScript,
		Message:    "Unknown script operation",
		Suggestion: "Use one of: get, set, delete, monitor, unmonitor",
	},
	"P304": {
		Category: CategoryScript,
		Message:  "Script step failed",
	},
	"P305": {
		Category:   CategoryScript,
		Message:    "Unknown monitor session",
		Suggestion: "Give the monitor step a name and refer to it from unmonitor",
	},

	// Feed (P400-P499)
	"P401": {
		Category:   CategoryFeed,
		Message:    "Cannot start change feed",
		Suggestion: "Check that the address is free, or set PATHWATCH_ADDR",
	},
}

// Lookup returns the template for a code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
