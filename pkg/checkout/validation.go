package checkout

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/chris/credit-reconciliation/pkg/models"
	"github.com/go-playground/validator/v10"
)

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

func newValidator(catalog models.Catalog) *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("plan", func(fl validator.FieldLevel) bool {
		_, ok := catalog.Lookup(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("userid", func(fl validator.FieldLevel) bool {
		return userIDPattern.MatchString(fl.Field().String())
	})
	return v
}

// validateRequest returns a *ValidationError for the first failing field.
func (s *Service) validateRequest(req Request) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	fe := fieldErrs[0]
	switch fe.Field() {
	case "Plan":
		msg := "plan is required"
		if fe.Tag() != "required" {
			msg = fmt.Sprintf("invalid plan, must be one of: %s", strings.Join(s.catalog.Names(), ", "))
		}
		return &ValidationError{Field: "plan", Message: msg, err: ErrInvalidPlan}
	case "UserID":
		if fe.Tag() == "required" {
			return &ValidationError{Field: "userId", Message: "userId is required", err: ErrMissingUserID}
		}
		return &ValidationError{Field: "userId", Message: "invalid userId format", err: ErrInvalidUserID}
	case "Email":
		return &ValidationError{Field: "email", Message: "invalid email address", err: ErrInvalidEmail}
	default:
		return &ValidationError{Field: fe.Field(), Message: fe.Error()}
	}
}
