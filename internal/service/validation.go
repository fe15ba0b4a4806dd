package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"Newsletterwebserver/internal/domain"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name := f.Tag.Get("form"); name != "" {
				return name
			}
			return strings.ToLower(f.Name)
		})
	})
	return validate
}

// validateStruct turns validator failures into a *domain.ValidationError
// keyed by field name with French messages for the UI.
func validateStruct(v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return domain.NewValidationError(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "champ obligatoire"
	case "max":
		return fmt.Sprintf("%s caractères maximum", fe.Param())
	case "min":
		return fmt.Sprintf("%s caractères minimum", fe.Param())
	case "url":
		return "URL invalide"
	case "email":
		return "adresse email invalide"
	default:
		return "valeur invalide"
	}
}

// NormalizeEmail strips surrounding whitespace and lower-cases.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail accepts an address that contains "@" and "." and parses as an
// email address.
func ValidEmail(email string) bool {
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return false
	}
	return validatorInstance().Var(email, "required,email,max=254") == nil
}
