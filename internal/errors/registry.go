package errors

import "sort"

// Template defines a registered error code.
type Template struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

var registry = map[string]Template{
	// Structural (C001-C019)

	"C001": {
		Category:   CategoryStructural,
		Message:    "Unknown component",
		Detail:     "A template invoked a component name that is not registered. Structural errors abort the whole run.",
		Suggestion: "Register the component or fix the name in the invoking template.",
	},
	"C002": {
		Category: CategoryStructural,
		Message:  "Unknown template",
		Detail:   "The component has no template to render.",
	},
	"C003": {
		Category: CategoryStructural,
		Message:  "Template evaluation failed",
		Detail:   "A template or one of its attribute expressions returned an error while rendering.",
	},
	"C004": {
		Category: CategoryStructural,
		Message:  "Template syntax error",
		Detail:   "The template source could not be compiled.",
	},

	// Notification (C020-C039)

	"C020": {
		Category: CategoryNotification,
		Message:  "Lifecycle hook failed",
		Detail:   "A lifecycle hook returned an error. The remaining notifications of the node and its in-flight ancestors were abandoned.",
	},
	"C021": {
		Category: CategoryNotification,
		Message:  "Lifecycle hook panicked",
		Detail:   "A lifecycle hook panicked. The panic was recovered and the run aborted like a failing hook.",
	},
	"C022": {
		Category:   CategoryNotification,
		Message:    "State modified after render",
		Detail:     "A component changed its own rendering state inside didInsertElement or didRender. A second render pass replaced the first paint.",
		Suggestion: "Move the change to willRender, or compute the value before the first render.",
	},

	// Scheduling (C040-C059)

	"C040": {
		Category:   CategoryScheduling,
		Message:    "Rerender outside the notifying subtree",
		Detail:     "A hook asked another part of the tree to rerender. Hooks may only rerender their own node or its descendants.",
		Suggestion: "Change the other node's state with Set instead; the scheduler picks it up in the same run.",
	},
	"C041": {
		Category: CategoryScheduling,
		Message:  "Re-entrant render limit exceeded",
		Detail:   "A node kept scheduling itself from its own terminal hooks.",
	},
	"C042": {
		Category: CategoryScheduling,
		Message:  "Node destroyed",
		Detail:   "The node was already torn down.",
	},
	"C043": {
		Category: CategoryScheduling,
		Message:  "Not a root",
		Detail:   "Only mounted roots can be unmounted.",
	},
	"C044": {
		Category: CategoryScheduling,
		Message:  "Operation not allowed during a render pass",
		Detail:   "Roots cannot be mounted or unmounted from inside a lifecycle hook.",
	},
	"C045": {
		Category: CategoryScheduling,
		Message:  "Run canceled",
		Detail:   "The context was canceled or its deadline passed before the run completed.",
	},

	// Scenario (C060-C079)

	"C060": {
		Category: CategoryScenario,
		Message:  "Invalid scenario file",
		Detail:   "The scenario document could not be decoded or failed validation.",
	},
	"C061": {
		Category: CategoryScenario,
		Message:  "Scenario expectations failed",
		Detail:   "The recorded notifications, text or warnings differ from what the scenario expects.",
	},
	"C062": {
		Category:   CategoryScenario,
		Message:    "No scenarios found",
		Detail:     "The scenario directory contains no .yaml or .yml files.",
		Suggestion: "Pass a scenario file or set scenarioDir in cascade.json.",
	},

	// Config (C080-C099)

	"C080": {
		Category: CategoryConfig,
		Message:  "Invalid cascade.json",
		Detail:   "The configuration file is malformed.",
	},
	"C081": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or inconsistent.",
	},

	// Trace (C100-C119)

	"C100": {
		Category:   CategoryTrace,
		Message:    "Trace not found",
		Suggestion: "List the stored traces with `cascade traces list`.",
	},
	"C101": {
		Category: CategoryTrace,
		Message:  "Trace store unavailable",
		Detail:   "Reading or writing the trace store failed.",
	},

	// CLI (C120-C139)

	"C120": {
		Category: CategoryCLI,
		Message:  "Command failed",
	},
}

// Codes returns all registered codes in order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template for a code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a code to the registry.
func Register(code string, t Template) {
	registry[code] = t
}
