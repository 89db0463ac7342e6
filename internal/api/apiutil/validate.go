package apiutil

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	_ "time/tzdata" // timezone tag must not depend on the host zoneinfo

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)
		_ = validate.RegisterValidation("date", func(fl validator.FieldLevel) bool {
			_, err := ParseDate(fl.Field().String(), fl.FieldName())
			return err == nil
		})
	})
	return validate
}

// Validate checks struct tags on a request payload and reports the first
// failure as a FieldError keyed by the JSON field name.
func Validate(payload any) error {
	err := validatorInstance().Struct(payload)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	first := verrs[0]
	return FieldError{Field: first.Field(), Reason: reasonFor(first)}
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "date":
		return "must be a date in YYYY-MM-DD format"
	case "latitude", "longitude", "timezone":
		return "must be a valid " + fe.Tag()
	}
	return "is invalid"
}
