package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// ValidationErrors wraps the validator's ValidationErrors
type ValidationErrors []playgroundvalidator.FieldError

// CustomValidator wraps go-playground/validator
type CustomValidator struct {
	validator *playgroundvalidator.Validate
}

// NewValidator creates a new validator instance. Field names in errors are
// the json names of the request body.
func NewValidator() echo.Validator {
	v := playgroundvalidator.New(playgroundvalidator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		var validationErrors playgroundvalidator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return ValidationErrors(validationErrors)
		}
		return err
	}
	return nil
}

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var fields []string
	for _, err := range ve {
		fields = append(fields, err.Field())
	}
	return fmt.Sprintf("validation failed on fields: %s", strings.Join(fields, ", "))
}

// Fields renders one readable message per failed field, keyed by the json
// field name.
func (ve ValidationErrors) Fields() map[string]string {
	errMap := make(map[string]string, len(ve))
	for _, err := range ve {
		errMap[err.Field()] = fieldMessage(err)
	}
	return errMap
}

// Message summarises the errors in one sentence: the first failure, and how
// many more there are.
func (ve ValidationErrors) Message() string {
	if len(ve) == 0 {
		return "The given data was invalid."
	}
	msg := fieldMessage(ve[0])
	switch n := len(ve) - 1; n {
	case 0:
		return msg
	case 1:
		return fmt.Sprintf("%s (and 1 more error)", msg)
	default:
		return fmt.Sprintf("%s (and %d more errors)", msg, n)
	}
}

func fieldMessage(err playgroundvalidator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", field)
	case "min":
		if err.Kind() == reflect.Slice {
			return fmt.Sprintf("The %s field must have at least %s items.", field, param)
		}
		return fmt.Sprintf("The %s field must be at least %s characters.", field, param)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", field, param)
	case "uuid":
		return fmt.Sprintf("The %s field must be a valid UUID.", field)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", field)
	default:
		return fmt.Sprintf("The %s field failed validation: %s.", field, err.Tag())
	}
}
