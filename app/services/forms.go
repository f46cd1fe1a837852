package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if name := field.Tag.Get("form"); name != "" {
			return name
		}
		return strings.ToLower(field.Name)
	})
	return v
}

// anonymousCommentForm is filled in by visitors.
type anonymousCommentForm struct {
	Author string `form:"author" validate:"required,max=30"`
	Email  string `form:"email" validate:"required,email,max=254"`
	Site   string `form:"site" validate:"omitempty,url,max=255"`
	Body   string `form:"body" validate:"required"`
}

// adminCommentForm only takes a body; the rest comes from the session.
type adminCommentForm struct {
	Body string `form:"body" validate:"required"`
}

type loginForm struct {
	Username string `form:"username" validate:"required,max=20"`
	Password string `form:"password" validate:"required,max=128"`
}

// validateForm runs the struct rules and turns failures into a
// *ValidationError keyed by form field name.
func validateForm(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	verr := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		if _, seen := verr.Fields[fe.Field()]; seen {
			continue
		}
		verr.Fields[fe.Field()] = fieldMessage(fe)
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Invalid email address."
	case "url":
		return "Invalid URL."
	case "max":
		return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
	default:
		return "Invalid value."
	}
}
