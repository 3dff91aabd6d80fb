package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	shortCodeRe = regexp.MustCompile(`^[A-Za-z0-9_-]{5,20}$`)
	specialRe   = regexp.MustCompile(`[!@#$%^&*]`)
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return strings.ToLower(fld.Name)
		}
		return name
	})

	_ = v.RegisterValidation("shortcode", func(fl validator.FieldLevel) bool {
		return shortCodeRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})

	return &Validator{validate: v}
}

// Struct returns nil or an error listing every failed field.
func (v *Validator) Struct(i any) error {
	if err := v.validate.Struct(i); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}
	return nil
}

func (v *Validator) Var(field any, tag string) error {
	return v.validate.Var(field, tag)
}

func ShortCode(s string) bool { return shortCodeRe.MatchString(s) }

// StrongPassword requires 8+ characters with upper, lower, digit and one of !@#$%^&*.
func StrongPassword(s string) bool {
	if len(s) < 8 {
		return false
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return upper && lower && digit && specialRe.MatchString(s)
}

func formatValidationErrors(errs validator.ValidationErrors) error {
	messages := make([]string, 0, len(errs))
	for _, err := range errs {
		field := err.Field()

		var message string
		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "min":
			message = fmt.Sprintf("%s must be at least %s characters", field, err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s characters", field, err.Param())
		case "url", "http_url":
			message = fmt.Sprintf("%s must be a valid http(s) URL", field)
		case "shortcode":
			message = fmt.Sprintf("%s must be 5-20 characters of letters, digits, '_' or '-'", field)
		case "password":
			message = fmt.Sprintf("%s must be at least 8 characters with upper and lower case letters, a digit and one of !@#$%%^&*", field)
		default:
			message = fmt.Sprintf("%s failed validation for %s", field, err.Tag())
		}
		messages = append(messages, message)
	}
	return errors.New(strings.Join(messages, "; "))
}
