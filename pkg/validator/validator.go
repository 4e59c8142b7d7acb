package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
}

type wrapper struct {
	validate *validator.Validate
}

// New builds a validator that reads the same "binding" tags gin uses, so
// services can check requests that did not arrive over HTTP.
func New() Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	return &wrapper{validate: v}
}

// Validate checks struct tags and returns the first violation with the
// offending field named, so callers can surface why input was refused.
func (w *wrapper) Validate(obj interface{}) error {
	err := w.validate.Struct(obj)
	if err == nil {
		return nil
	}

	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		first := errs[0]
		return fmt.Errorf("field %s failed validation rule %q", first.Field(), first.Tag())
	}
	return err
}
