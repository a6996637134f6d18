// Package validation checks payloads against model schemas.
package validation

// Issue codes produced by the validator itself. Type-check failures carry the
// code reported by the type expression.
const (
	CodeRequired        = "required"
	CodeValidatorFailed = "validator_failed"
	CodeInvalid         = "invalid"
	CodeWarning         = "warning"
)

// Issue is one error or warning.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Accumulator is the surface custom checks use to report problems.
type Accumulator interface {
	AddError(path, message, code string)
	AddWarning(path, message, code string)
}

// Result is the outcome of one Validate call.
type Result struct {
	IsValid       bool           `json:"is_valid"`
	Errors        []Issue        `json:"errors"`
	Warnings      []Issue        `json:"warnings"`
	ValidatedData map[string]any `json:"validated_data"`
	OriginalData  map[string]any `json:"-"`
}

func newResult(payload map[string]any) *Result {
	return &Result{
		IsValid:      true,
		Errors:       []Issue{},
		Warnings:     []Issue{},
		OriginalData: payload,
	}
}

// AddError records an error and marks the result invalid.
func (r *Result) AddError(path, message, code string) {
	if code == "" {
		code = CodeInvalid
	}
	r.Errors = append(r.Errors, Issue{Path: path, Message: message, Code: code})
	r.IsValid = false
}

// AddWarning records a warning. Warnings never affect validity.
func (r *Result) AddWarning(path, message, code string) {
	if code == "" {
		code = CodeWarning
	}
	r.Warnings = append(r.Warnings, Issue{Path: path, Message: message, Code: code})
}

// ErrorMessages returns the error messages in order.
func (r *Result) ErrorMessages() []string {
	out := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = e.Message
	}
	return out
}
