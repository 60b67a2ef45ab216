package validator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/Alwanly/service-fleet-monitor/pkg/apperror"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct runs the struct tags and wraps failures as apperror.ErrValidation.
func ValidateStruct(s any) error {
	if err := getValidator().Struct(s); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrValidation, err)
	}
	return nil
}

// TranslateError flattens validation failures into field -> message.
func TranslateError(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out
	}
	for _, e := range verrs {
		out[e.Field()] = e.Error()
	}
	return out
}
