package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/storefront/internal/domain"
)

func TestStruct_Valid(t *testing.T) {
	in := domain.ReviewInput{Author: "Ana", Rating: 5, Text: "Fits well", UserID: "u-1"}
	assert.NoError(t, Struct(in))
}

func TestStruct_ReturnsValidationError(t *testing.T) {
	in := domain.ReviewInput{Author: "Ana", Rating: 7, Text: "Fits well", UserID: "u-1"}

	err := Struct(in)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "rating", verr.Field)
	assert.Equal(t, "must be at most 5", verr.Reason)
}

func TestStruct_MissingField(t *testing.T) {
	err := Struct(domain.ReviewInput{Rating: 3, Text: "ok", UserID: "u-1"})

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "author", verr.Field)
	assert.Equal(t, "is required", verr.Reason)
}

func TestStruct_UsesJSONFieldNames(t *testing.T) {
	err := Struct(domain.ReviewInput{Author: "Ana", Rating: 3, Text: "ok"})

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "user_id", verr.Field)
}
