// Package validation normalizes and validates request structs.
//
// String fields are first cleaned according to their `conform` tags, then
// checked against their `validate` tags. Failures wrap model.ErrInvalidInput.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/leebenson/conform"

	"litrevu/internal/model"
)

var (
	once     sync.Once
	validate *validator.Validate

	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
			return usernamePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// FieldError describes the first field that failed validation.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (e *FieldError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: failed %s=%s", e.Field, e.Tag, e.Param)
	}
	return fmt.Sprintf("%s: failed %s", e.Field, e.Tag)
}

func (e *FieldError) Unwrap() error { return model.ErrInvalidInput }

// Struct cleans and validates v, which must be a pointer to a struct.
func Struct(v interface{}) error {
	if err := conform.Strings(v); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}

	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()}
	}
	return fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
}
