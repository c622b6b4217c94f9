package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"career-quest/gamification"
)

var validate *validator.Validate

func init() {
	v, err := newValidator()
	if err != nil {
		panic(err)
	}
	validate = v
}

func newValidator() (*validator.Validate, error) {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("timezone", validateTimezone); err != nil {
		return nil, fmt.Errorf("register timezone validation: %w", err)
	}
	return v, nil
}

func GetValidator() *validator.Validate {
	return validate
}

func validateTimezone(fl validator.FieldLevel) bool {
	return gamification.ValidTimezone(fl.Field().String())
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func FormatValidationErrors(err error) []ValidationError {
	var out []ValidationError

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return out
	}
	for _, fieldError := range validationErrors {
		var message string

		switch fieldError.Tag() {
		case "required":
			message = fieldError.Field() + " is required"
		case "email":
			message = "Invalid email format"
		case "min":
			message = fieldError.Field() + " must be at least " + fieldError.Param()
		case "max":
			message = fieldError.Field() + " must be at most " + fieldError.Param()
		case "url":
			message = fieldError.Field() + " must be a valid URL"
		case "oneof":
			message = fieldError.Field() + " must be one of: " + fieldError.Param()
		case "timezone":
			message = fieldError.Field() + " must be an IANA timezone such as Europe/Berlin"
		default:
			message = fieldError.Field() + " is invalid"
		}

		out = append(out, ValidationError{
			Field:   fieldError.Field(),
			Message: message,
		})
	}
	return out
}
