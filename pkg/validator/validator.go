// Package validator wires go-playground/validator into echo's request
// binding path and registers the dispatch-specific rules the request
// DTOs rely on.
package validator

import (
	"github.com/go-playground/validator/v10"

	"github.com/dispatchcrew/airdispatch/internal/domain/entities"
)

// RequestValidator implements echo.Validator over go-playground/validator
type RequestValidator struct {
	v *validator.Validate
}

// New builds the validator with the domain rules registered
func New() *RequestValidator {
	v := validator.New()
	_ = v.RegisterValidation("priority", validPriority)
	return &RequestValidator{v: v}
}

// Validate checks a bound request struct against its validate tags
func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.v.Struct(i)
}

// validPriority accepts a dispatch priority level. An empty value
// passes so the rule can sit on optional filter fields.
func validPriority(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	return entities.Priority(s).IsValid()
}
