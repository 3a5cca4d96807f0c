package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "placeclaim/pkg/domain-errors"
)

type sample struct {
	Email string `json:"business_email" validate:"required,email"`
	Phone string `json:"phone_number" validate:"required,phone"`
	Role  string `json:"role" validate:"oneof=owner manager"`
	Note  string `json:"description" validate:"notblank,max=10"`
}

func TestStruct(t *testing.T) {
	t.Run("valid struct passes", func(t *testing.T) {
		err := Struct(sample{Email: "a@b.co", Phone: "+14155550100", Role: "owner", Note: "ok"})
		assert.NoError(t, err)
	})

	t.Run("reports json field names", func(t *testing.T) {
		err := Struct(sample{Email: "nope", Phone: "555-0100", Role: "boss", Note: "   "})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Contains(t, err.Error(), "business_email must be a valid email address")
		assert.Contains(t, err.Error(), "phone_number must be an E.164 phone number")
		assert.Contains(t, err.Error(), "role must be one of [owner manager]")
		assert.Contains(t, err.Error(), "description is required")
	})
}
