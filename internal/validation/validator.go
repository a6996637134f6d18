package validation

import (
	"errors"
	"fmt"
	"maps"

	"github.com/rs/zerolog"

	"github.com/tordrt/schemaguard/internal/model"
	"github.com/tordrt/schemaguard/internal/typeexpr"
)

var errNotRegistered = errors.New("no check registered")

// Validator validates payloads against schemas. It holds no per-call state
// and is safe for concurrent use.
type Validator struct {
	checks *Registry
	logger zerolog.Logger
}

// New creates a validator resolving custom checks from checks, which may be nil.
func New(checks *Registry, logger zerolog.Logger) *Validator {
	return &Validator{checks: checks, logger: logger}
}

// Validate checks payload against s. In partial mode absent required fields
// are not reported; present fields are still type checked.
func (v *Validator) Validate(payload map[string]any, s *model.Schema, partial bool) *Result {
	if s == nil {
		panic("validation: nil schema")
	}
	result := newResult(payload)

	for _, f := range s.Fields {
		value, present := payload[f.Name]
		if !present {
			if f.Required && !partial && !f.HasDefault {
				result.AddError(f.Name, "Missing required field: "+f.Name, CodeRequired)
			}
			continue
		}
		if r := typeexpr.Check(value, f.Expression()); !r.OK {
			result.AddError(f.Name, fmt.Sprintf("Invalid type for %s: %s", f.Name, r.Message), r.Code)
		}
	}

	if result.IsValid {
		for _, f := range s.Fields {
			if _, present := payload[f.Name]; !present {
				continue
			}
			for _, ref := range f.Validators {
				v.run(ref, payload, result)
			}
		}
		for _, ref := range s.Validators {
			v.run(ref, payload, result)
		}
	}

	if result.IsValid {
		result.ValidatedData = maps.Clone(payload)
		if result.ValidatedData == nil {
			result.ValidatedData = map[string]any{}
		}
	}

	v.logger.Debug().
		Str("model", s.ModelName).
		Bool("partial", partial).
		Bool("valid", result.IsValid).
		Int("errors", len(result.Errors)).
		Msg("validated payload")
	return result
}

// run executes one custom check. Errors and panics become a single
// validator failure on result.
func (v *Validator) run(ref model.ValidatorRef, payload map[string]any, result *Result) {
	err := v.invoke(ref, payload, result)
	if err == nil {
		return
	}
	result.AddError("", fmt.Sprintf("Validator %s failed: %s", ref.Name, err.Error()), CodeValidatorFailed)
	v.logger.Warn().Err(err).Str("validator", ref.Name).Msg("custom validator failed")
}

func (v *Validator) invoke(ref model.ValidatorRef, payload map[string]any, acc Accumulator) (err error) {
	fn, ok := v.checks.Lookup(ref.CheckName())
	if !ok {
		return fmt.Errorf("%w: %s", errNotRegistered, ref.CheckName())
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return fn(payload, ref.Fields, acc)
}
