package errors

// Error codes.
const (
	CodeTargetMissing    = "SB001"
	CodeUnknownCommand   = "SB002"
	CodeHandlerRuntime   = "SB003"
	CodeMalformedArg     = "SB004"
	CodeInvalidTarget    = "SB005"
	CodeScopeCycle       = "SB006"
	CodeNotReactive      = "SB007"
	CodeActionMissing    = "SB008"
	CodeConfigInvalid    = "SB101"
	CodeConfigRead       = "SB102"
	CodeDataFile         = "SB201"
	CodeAssignmentSyntax = "SB202"
)

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	CodeTargetMissing: {
		Category:   CategorySetup,
		Message:    "Binding target missing",
		Suggestion: "Check that the selector matches an element in the document before calling Bind.",
	},
	CodeUnknownCommand: {
		Category:   CategoryBinding,
		Message:    "Unknown binding command",
		Suggestion: "Register the binder with RegisterBinder or fix the command name.",
	},
	CodeHandlerRuntime: {
		Category: CategoryRuntime,
		Message:  "Binding handler failed",
	},
	CodeMalformedArg: {
		Category:   CategoryBinding,
		Message:    "Malformed binding argument",
		Suggestion: "Commands such as attr and class take name:path.",
	},
	CodeInvalidTarget: {
		Category:   CategorySetup,
		Message:    "Invalid binding target",
		Suggestion: "Pass a selector string or an element node.",
	},
	CodeScopeCycle: {
		Category: CategoryBinding,
		Message:  "Scope is already bound by an enclosing view",
	},
	CodeNotReactive: {
		Category:   CategoryBinding,
		Message:    "Assigned record is not reactive",
		Suggestion: "Wrap the record with scope.Upgrade before assigning it.",
	},
	CodeActionMissing: {
		Category: CategoryBinding,
		Message:  "Action not found",
	},
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},
	CodeConfigRead: {
		Category: CategoryConfig,
		Message:  "Cannot read configuration file",
	},
	CodeDataFile: {
		Category:   CategoryCLI,
		Message:    "Cannot load data file",
		Suggestion: "Data files must hold a JSON or YAML object.",
	},
	CodeAssignmentSyntax: {
		Category:   CategoryCLI,
		Message:    "Invalid assignment",
		Suggestion: "Use --set key=value, e.g. --set user.name=ada.",
	},
}

// Codes returns all registered error codes.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// Lookup returns the template for an error code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
