package validator

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutForm struct {
	Name          string `json:"name" validate:"required,max=120"`
	Email         string `json:"email" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=cod whatsapp"`
	Quantity      int    `json:"quantity" validate:"gte=0,lte=99"`
}

func TestValidate_Valid(t *testing.T) {
	err := Validate(checkoutForm{Name: "Ada", Email: "ada@example.com", PaymentMethod: "cod"})
	assert.NoError(t, err)
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := Validate(checkoutForm{PaymentMethod: "card", Quantity: 120})
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))

	fields := valErr.Fields()
	assert.Equal(t, "is required", fields["name"])
	assert.Equal(t, "is required", fields["email"])
	assert.Equal(t, "must be one of: cod whatsapp", fields["payment_method"])
	assert.Equal(t, "must be less than or equal to 99", fields["quantity"])
	assert.Contains(t, valErr.Error(), "field 'name' is required")
}

func TestDecodeAndValidate(t *testing.T) {
	body := `{"name":"Ada","email":"ada@example.com","payment_method":"whatsapp"}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))

	var form checkoutForm
	require.NoError(t, DecodeAndValidate(req, &form))
	assert.Equal(t, "whatsapp", form.PaymentMethod)
}

func TestDecodeAndValidate_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":`))

	var form checkoutForm
	err := DecodeAndValidate(req, &form)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")

	var valErr *ValidationError
	assert.False(t, errors.As(err, &valErr))
}
