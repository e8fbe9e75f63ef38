package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goevery/rendezvous/internal/ierr"
)

// invalidArgument turns a validator failure into the error reported to clients.
func invalidArgument(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return ierr.New(ierr.ErrorCodeInvalidArgument, err)
	}

	fields := make([]string, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		fields = append(fields, fmt.Sprintf("%s failed on %s", fieldError.Field(), fieldError.Tag()))
	}

	return ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("invalid request: "+strings.Join(fields, ", ")))
}

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// report json names
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	return validate
}
