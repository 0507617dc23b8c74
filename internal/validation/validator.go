// Package validation validates service inputs using the validator/v10 library.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/askhub/askhub-server/internal/errors"
	"github.com/askhub/askhub-server/internal/normalize"
)

// Validator wraps go-playground/validator with domain error conversion.
type Validator struct {
	v *validator.Validate
}

// New creates a validator with askhub's custom tags registered:
//
//	tag       a value that normalizes to a non-empty tag name
//	username  3 to 30 characters of a-z, 0-9 and underscore
//	notblank  non-empty after trimming whitespace
func New() *Validator {
	v := validator.New()

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("tag", func(fl validator.FieldLevel) bool {
		return normalize.Tag(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		_, ok := normalize.Username(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns a VALIDATION_ERROR whose details
// map each failing field to a readable message.
func (v *Validator) Validate(s any) error {
	if err := v.v.Struct(s); err != nil {
		return v.formatError(err)
	}
	return nil
}

// Var validates a single value against a tag expression.
func (v *Validator) Var(field string, value any, tag string) error {
	if err := v.v.Var(value, tag); err != nil {
		var validationErrs validator.ValidationErrors
		if !errors.As(err, &validationErrs) {
			return err
		}
		return apperrors.ValidationWithDetails("validation failed", map[string]string{
			field: v.friendlyMessage(validationErrs[0]),
		})
	}
	return nil
}

func (v *Validator) formatError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fieldErrors := make(map[string]string, len(validationErrs))
	fields := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		name := fieldPath(e)
		fieldErrors[name] = v.friendlyMessage(e)
		fields = append(fields, name)
	}

	return apperrors.ValidationWithDetails("validation failed: "+strings.Join(fields, ", "), fieldErrors)
}

// fieldPath drops the top-level struct name, keeping "tags[2]" style paths.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return e.Field()
}

//nolint:gocyclo // one case per supported tag
func (v *Validator) friendlyMessage(e validator.FieldError) string {
	kind := e.Kind()
	unit := "characters"
	if kind == reflect.Slice || kind == reflect.Array || kind == reflect.Map {
		unit = "items"
	}

	switch e.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "email":
		return "must be a valid email address"
	case "tag":
		return "must contain letters or digits"
	case "username":
		return "must be 3-30 characters of a-z, 0-9 or _"
	case "min":
		return fmt.Sprintf("must be at least %s %s", e.Param(), unit)
	case "max":
		return fmt.Sprintf("must not exceed %s %s", e.Param(), unit)
	case "len":
		return fmt.Sprintf("must be exactly %s %s", e.Param(), unit)
	case "url", "http_url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	case "lte":
		return "must be less than or equal to " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lt":
		return "must be less than " + e.Param()
	default:
		return "is invalid"
	}
}
