// Chest - Relay Event Ingestion and Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chest

package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	hexIDPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// ValidationError is one failed field rule.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the struct field name that failed validation.
func (e *ValidationError) Field() string { return e.field }

// Tag returns the validation tag that failed.
func (e *ValidationError) Tag() string { return e.tag }

// Param returns the tag parameter, e.g. "100" for "max=100".
func (e *ValidationError) Param() string { return e.param }

// Value returns the offending value.
func (e *ValidationError) Value() interface{} { return e.value }

func (e *ValidationError) Error() string { return e.message }

// StructValidationError collects every failed rule of one struct.
type StructValidationError struct {
	errors []ValidationError
}

// Errors returns the individual failures.
func (ve *StructValidationError) Errors() []ValidationError {
	return ve.errors
}

func (ve *StructValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(ve.errors))
	for _, err := range ve.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// GetValidator returns the shared validator with Chest's custom rules
// registered:
//
//	relayurl  ws:// or wss:// URL with a host
//	hexid     64 lowercase hex characters (event ids and author keys)
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("relayurl", func(fl validator.FieldLevel) bool {
			return IsRelayURL(fl.Field().String())
		})
		_ = validate.RegisterValidation("hexid", func(fl validator.FieldLevel) bool {
			return IsHexID(fl.Field().String())
		})
	})
	return validate
}

// IsRelayURL reports whether s is an absolute ws or wss URL.
func IsRelayURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "ws" || u.Scheme == "wss") && u.Host != ""
}

// IsHexID reports whether s looks like an event id or public key.
func IsHexID(s string) bool {
	return hexIDPattern.MatchString(s)
}

// ValidateStruct validates s. It returns nil or a *StructValidationError.
func ValidateStruct(s interface{}) error {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &StructValidationError{errors: []ValidationError{{
			field:   "unknown",
			tag:     "unknown",
			message: err.Error(),
		}}}
	}

	out := make([]ValidationError, len(fieldErrs))
	for i, fe := range fieldErrs {
		out[i] = ValidationError{
			field:   fe.Namespace(),
			tag:     fe.Tag(),
			param:   fe.Param(),
			value:   fe.Value(),
			message: translateError(fe),
		}
	}
	return &StructValidationError{errors: out}
}

var errorMessageTemplates = map[string]string{
	"required": "%s is required",
	"relayurl": "%s must be a ws:// or wss:// URL",
	"hexid":    "%s must be 64 lowercase hex characters",
	"hostname": "%s must be a valid hostname",
	"url":      "%s must be a valid URL",
}

var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
	"lt":    "%s must be less than %s",
}

func translateError(fe validator.FieldError) string {
	field := fe.Namespace()
	if template, ok := errorMessageTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(template, field)
	}
	if template, ok := errorMessageWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(template, field, fe.Param())
	}

	isCollection := fe.Kind().String() == "slice" || fe.Kind().String() == "map"
	switch fe.Tag() {
	case "min":
		if isCollection {
			return fmt.Sprintf("%s must contain at least %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
