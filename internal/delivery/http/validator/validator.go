// Package validator adapts go-playground validation to echo.
package validator

import (
	"net/http"

	validation "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator implements echo.Validator over struct tags.
type Validator struct {
	validate *validation.Validate
}

// New is the constructor for Validator.
func New() *Validator {
	return &Validator{
		validate: validation.New(validation.WithRequiredStructEnabled()),
	}
}

// Validate checks the bound request struct against its validation tags.
func (v *Validator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return nil
}
