package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineInput struct {
	MerchandiseID string `validate:"required"`
	Quantity      int    `validate:"required,gte=1"`
}

func TestValidate_Passes(t *testing.T) {
	assert.NoError(t, Validate(lineInput{MerchandiseID: "gid://merch/1", Quantity: 2}))
}

func TestValidate_RequiredField(t *testing.T) {
	err := Validate(lineInput{Quantity: 1})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "is required", valErr.Fields()["MerchandiseID"])
}

func TestValidate_RangeViolation(t *testing.T) {
	err := Validate(lineInput{MerchandiseID: "gid://merch/1", Quantity: -3})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Contains(t, valErr.Fields()["Quantity"], ">= 1")
}

func TestValidate_MultipleFailures(t *testing.T) {
	err := Validate(lineInput{})
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Len(t, valErr.Fields(), 2)
	assert.Contains(t, valErr.Error(), "MerchandiseID")
	assert.Contains(t, valErr.Error(), "Quantity")
}
