package extract

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/TobiSchelling/catalysts/internal/directory"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("ticker", func(fl validator.FieldLevel) bool {
		return directory.ValidTicker(fl.Field().String())
	}); err != nil {
		panic(fmt.Sprintf("registering ticker validation: %v", err))
	}
	return v
}

// Validate checks that an event is fit for persistence.
func Validate(e Event) error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("invalid event %s: %w", e.Key(), err)
	}
	return nil
}
