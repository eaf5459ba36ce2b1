package httpx

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a JSON field path to a short message.
type FieldErrors map[string]string

type validationError struct{ Fields FieldErrors }

func (e *validationError) Error() string { return "validation failed" }

func (e *validationError) Unwrap() error { return errBadRequest }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// checkStruct runs the validate tags on v. Field keys use the json names,
// nested fields are joined with dots (customer.phone).
func checkStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return badRequest("%v", err)
	}
	out := FieldErrors{}
	for _, fe := range ve {
		ns := fe.Namespace()
		if _, rest, ok := strings.Cut(ns, "."); ok {
			ns = rest
		}
		out[ns] = messageForTag(fe.Tag(), fe.Param())
	}
	return &validationError{Fields: out}
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + param
	case "gt":
		return "must be greater than " + param
	case "gte":
		return "must be at least " + param
	case "max":
		return "must be at most " + param + " characters"
	case "datetime":
		return "must match " + param
	default:
		return "is invalid"
	}
}
