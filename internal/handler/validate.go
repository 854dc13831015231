package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo.Validator. Field names in
// messages are the JSON names.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	return cv.v.Struct(i)
}

// normalizer is implemented by request bodies that trim their fields. It runs
// before validation so that "required" rejects whitespace-only strings.
type normalizer interface {
	normalize()
}

// bindAndValidate decodes the request body into dst, normalizes it and
// validates it. On failure it returns the message to send with a 400.
func bindAndValidate(c echo.Context, dst any) (string, bool) {
	// Bind errors carry echo's internal wording, so they are collapsed
	// into a single message the front-end can show as is.
	if err := c.Bind(dst); err != nil {
		return "invalid body", false
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := c.Validate(dst); err != nil {
		return validationMessage(err), false
	}
	return "", true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid body"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s must be between 0 and 500", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
