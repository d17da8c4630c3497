package core

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Form field names.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldPasswordConfirm = "passwordConfirm"
)

const passwordRules = "required,min=2,max=25"

// Field is one input of a form with its validator rules.
type Field struct {
	Name  string
	Label string
	Rules string
}

// Form is an ordered list of fields. Order decides which field gets focus.
type Form struct {
	Fields []Field
}

var (
	SignInForm = Form{Fields: []Field{
		{Name: FieldUsername, Label: "Username", Rules: "required,email"},
		{Name: FieldPassword, Label: "Password", Rules: passwordRules},
	}}

	SignUpForm = Form{Fields: []Field{
		{Name: FieldUsername, Label: "Username", Rules: "required"},
		{Name: FieldEmail, Label: "Email", Rules: "required,email"},
		{Name: FieldPassword, Label: "Password", Rules: passwordRules},
		{Name: FieldPasswordConfirm, Label: "Password confirm", Rules: passwordRules},
	}}

	ForgotPasswordForm = Form{Fields: []Field{
		{Name: FieldEmail, Label: "Email", Rules: "required,email"},
	}}

	ResetPasswordForm = Form{Fields: []Field{
		{Name: FieldPassword, Label: "Password", Rules: passwordRules},
		{Name: FieldPasswordConfirm, Label: "Password confirm", Rules: passwordRules},
	}}
)

var validate = validator.New()

// Names returns the field names in declared order.
func (f Form) Names() []string {
	names := make([]string, 0, len(f.Fields))
	for _, field := range f.Fields {
		names = append(names, field.Name)
	}
	return names
}

// Validate checks values against every field. It returns nil or a *ValidationError
// listing the failures in declared field order, one per field.
func (f Form) Validate(values map[string]string) error {
	var failures []FieldError
	for _, field := range f.Fields {
		err := validate.Var(values[field.Name], field.Rules)
		if err == nil {
			continue
		}

		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return fmt.Errorf("validate %s: %w", field.Name, err)
		}
		failures = append(failures, FieldError{
			Field:   field.Name,
			Rule:    verrs[0].Tag(),
			Message: fieldMessage(field.Label, verrs[0]),
		})
	}

	if len(failures) > 0 {
		return &ValidationError{Fields: failures}
	}
	return nil
}

func fieldMessage(label string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return label + " required"
	case "email":
		return label + " is not valid"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	default:
		return label + " is not valid"
	}
}
