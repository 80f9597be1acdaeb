package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedBody is returned when the body is not a single JSON object.
var ErrMalformedBody = errors.New("request body must be a JSON object")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	return v
}

// FieldError describes one field that violates its constraint.
type FieldError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Param      string `json:"param,omitempty"`
	Message    string `json:"message"`
}

// ValidationError lists every field that failed.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

// Error joins the field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks every field against its declared constraint and reports
// all violations at once.
func (in *HeartInput) Validate() error {
	return collect(validate.Struct(in), nil)
}

// Parse decodes and validates a request body. Unknown keys and values of the
// wrong JSON type are reported as field errors next to range violations, all
// of them at once. Integer fields accept whole numbers written as floats.
func Parse(body []byte) (*HeartInput, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	var in HeartInput
	var decodeErrs []FieldError
	v := reflect.ValueOf(&in).Elem()
	for i := 0; i < inputType.NumField(); i++ {
		name := jsonName(inputType.Field(i))
		value, ok := raw[name]
		if !ok {
			continue
		}
		delete(raw, name)
		if fe := decodeField(name, value, v.Field(i)); fe != nil {
			decodeErrs = append(decodeErrs, *fe)
		}
	}
	unknown := make([]string, 0, len(raw))
	for name := range raw {
		unknown = append(unknown, name)
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		decodeErrs = append(decodeErrs, FieldError{
			Field:      name,
			Constraint: "unknown",
			Message:    "field not permitted",
		})
	}

	if err := collect(validate.Struct(&in), decodeErrs); err != nil {
		return nil, err
	}
	return &in, nil
}

// decodeField sets one pointer field from its raw JSON value. On failure the
// field is left nil and the error is returned.
func decodeField(name string, value json.RawMessage, field reflect.Value) *FieldError {
	typeError := func(expected string) *FieldError {
		field.SetZero()
		return &FieldError{Field: name, Constraint: "type", Message: "must be " + expected}
	}

	var number *float64
	if err := json.Unmarshal(value, &number); err != nil {
		if field.Type().Elem().Kind() == reflect.Int {
			return typeError("an integer")
		}
		return typeError("a number")
	}
	if number == nil {
		field.SetZero()
		return nil
	}

	switch field.Type().Elem().Kind() {
	case reflect.Int:
		if *number != math.Trunc(*number) || math.Abs(*number) > maxExactInt {
			return typeError("an integer")
		}
		n := int(*number)
		field.Set(reflect.ValueOf(&n))
	case reflect.Float64:
		field.Set(reflect.ValueOf(number))
	}
	return nil
}

// maxExactInt is the largest magnitude float64 holds without losing integers.
const maxExactInt = 1 << 53

func collect(err error, decodeErrs []FieldError) error {
	fields := append([]FieldError(nil), decodeErrs...)
	reported := make(map[string]bool, len(decodeErrs))
	for _, fe := range decodeErrs {
		reported[fe.Field] = true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if reported[fe.Field()] {
				continue
			}
			fields = append(fields, FieldError{
				Field:      fe.Field(),
				Constraint: fe.Tag(),
				Param:      fe.Param(),
				Message:    message(fe),
			})
		}
	} else if err != nil {
		return err
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	default:
		return "failed " + fe.Tag() + " constraint"
	}
}
