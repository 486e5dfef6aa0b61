package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator reports fields by their json name.
func NewValidator() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func (cv *CustomValidator) FormatValidationErrors(err error) map[string]string {
	errs := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			field := e.Field()
			switch e.Tag() {
			case "required":
				errs[field] = field + " is required"
			case "email":
				errs[field] = field + " must be a valid email address"
			case "uuid":
				errs[field] = field + " must be a valid UUID"
			case "min":
				if e.Kind() == reflect.String {
					errs[field] = field + " must be at least " + e.Param() + " characters"
				} else {
					errs[field] = field + " must be at least " + e.Param()
				}
			case "max":
				if e.Kind() == reflect.String {
					errs[field] = field + " must be at most " + e.Param() + " characters"
				} else {
					errs[field] = field + " must be at most " + e.Param()
				}
			case "gtefield":
				errs[field] = field + " must be greater than or equal to " + fieldName(e)
			case "oneof":
				errs[field] = field + " must be one of: " + e.Param()
			case "gte":
				errs[field] = field + " must be greater than or equal to " + e.Param()
			case "lte":
				errs[field] = field + " must be less than or equal to " + e.Param()
			default:
				errs[field] = field + " is invalid"
			}
		}
	}

	return errs
}

// fieldName snake-cases a gtefield parameter, which names the Go field.
func fieldName(e validator.FieldError) string {
	param := e.Param()
	var name string
	for _, r := range param {
		if r >= 'A' && r <= 'Z' {
			if name != "" {
				name += "_"
			}
			name += string(r + ('a' - 'A'))
			continue
		}
		name += string(r)
	}
	return name
}
