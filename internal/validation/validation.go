// Package validation checks request payloads declared with `validate` struct
// tags and reports failures per JSON field.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/curaious/projectchron/internal/perrors"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	return v
}

// Struct validates s. It returns nil or a perrors.Err with code validation_error
// whose Issues are keyed by the dotted JSON path of each offending field.
func Struct(msg string, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return perrors.NewErrInvalidRequest(msg, err)
	}

	issues := perrors.Issues{}
	for _, fe := range verrs {
		field := fieldPath(fe.Namespace())
		issues[field] = append(issues[field], describe(fe))
	}

	return perrors.NewErrValidation(msg, issues)
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("At least %s items are required.", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters.", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s.", fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("At most %s items are allowed.", fe.Param())
		}
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at most %s characters.", fe.Param())
		}
		return fmt.Sprintf("Must be at most %s.", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", fe.Param())
	case "uuid":
		return "Must be a valid UUID."
	case "username":
		return "Use lowercase letters, numbers, underscores or hyphens."
	case "required_without":
		return "Provide a project or update reference."
	default:
		return fmt.Sprintf("Failed the %q check.", fe.Tag())
	}
}
