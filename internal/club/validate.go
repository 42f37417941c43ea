package club

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"codingclub/internal/auth"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return auth.Role(fl.Field().String()).Valid()
	})
	return v
}

// memberFields is the validated shape of a member after merging input.
type memberFields struct {
	Email       string    `json:"email" validate:"required,max=254,email"`
	AccountType auth.Role `json:"account_type" validate:"required,role"`
	FirstName   string    `json:"first_name" validate:"max=30"`
	LastName    string    `json:"last_name" validate:"max=30"`
}

type meetingFields struct {
	Title    string    `json:"title" validate:"required,max=100"`
	Date     time.Time `json:"date" validate:"required"`
	Location string    `json:"location" validate:"required,max=100"`
}

// check validates s and converts failures into a field-keyed ValidationError.
func check(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.add(fe.Field(), message(fe))
	}
	return ve
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "email":
		return "Enter a valid email address."
	case "role":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(fe.Value()))
	}
	return "Invalid value."
}

// validEmail reports whether s looks like an email address.
func validEmail(s string) bool {
	return validate.Var(s, "required,max=254,email") == nil
}

// normalizeEmail lower-cases the domain part, leaving the local part as typed.
func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	i := strings.LastIndex(email, "@")
	if i < 0 {
		return email
	}
	return email[:i] + "@" + strings.ToLower(email[i+1:])
}
