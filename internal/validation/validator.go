// Package validation wraps a shared go-playground validator and turns its
// failures into ErrValidation-kind errors.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/neexbeast/tripfinder/internal/destination"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// FieldError is one failed rule.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param,omitempty"`
}

func (e FieldError) String() string {
	if e.Param != "" {
		return fmt.Sprintf("%s failed %s=%s", e.Field, e.Tag, e.Param)
	}
	return fmt.Sprintf("%s failed %s", e.Field, e.Tag)
}

// Error collects every failed rule of one validation call.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap makes every Error an ErrValidation.
func (e *Error) Unwrap() error {
	return destination.ErrValidation
}

// Struct validates s against its `validate` tags.
func Struct(s any) error {
	return translate(instance().Struct(s))
}

// Var validates a single value against tag, reporting it under name.
func Var(name string, v any, tag string) error {
	err := translate(instance().Var(v, tag))
	var ve *Error
	if errors.As(err, &ve) {
		for i := range ve.Fields {
			ve.Fields[i].Field = name
		}
	}
	return err
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", destination.ErrValidation, err)
	}
	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: fe.Namespace(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}
