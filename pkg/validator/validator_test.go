package validator

import (
	"errors"
	"testing"

	"github.com/Alwanly/service-fleet-monitor/pkg/apperror"
)

type sample struct {
	Name  string `validate:"required"`
	Count int    `validate:"gte=1"`
}

func TestValidateStruct(t *testing.T) {
	if err := ValidateStruct(sample{Name: "node-1", Count: 1}); err != nil {
		t.Fatalf("expected valid struct, got %v", err)
	}

	err := ValidateStruct(sample{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestTranslateError(t *testing.T) {
	err := getValidator().Struct(sample{})
	fields := TranslateError(err)
	if _, ok := fields["Name"]; !ok {
		t.Fatalf("expected Name in %v", fields)
	}
	if len(TranslateError(errors.New("other"))) != 0 {
		t.Fatal("expected empty map for non-validation error")
	}
}
