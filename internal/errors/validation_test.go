package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrors_Error(t *testing.T) {
	var errs ValidationErrors
	assert.Equal(t, "validation failed", errs.Error())

	errs = append(errs, *NewValidationError("task1Text", "must be a string", 12))
	assert.Equal(t, "validation failed: task1Text must be a string", errs.Error())

	errs = append(errs, *NewValidationErrorWithRule("band", "must be a band", "band", 9.5))
	assert.Equal(t, "validation failed: 2 field errors", errs.Error())
	assert.Equal(t, "band", errs[1].Rule)

	single := NewValidationError("answers", "must be an object", nil)
	assert.Equal(t, "validation error on field 'answers': must be an object", single.Error())
}

func TestToValidationErrors(t *testing.T) {
	type gradeRequest struct {
		Module string `validate:"required,oneof=writing speaking"`
		Count  int    `validate:"min=0,max=40"`
	}

	err := validator.New().Struct(gradeRequest{Module: "reading", Count: 41})
	require.Error(t, err)

	errs := ToValidationErrors(fmt.Errorf("wrapped: %w", err))
	require.Len(t, errs, 2)

	assert.Equal(t, "Module", errs[0].Field)
	assert.Equal(t, "oneof", errs[0].Rule)
	assert.Equal(t, "must be one of: writing speaking", errs[0].Message)
	assert.Equal(t, "reading", errs[0].Value)

	assert.Equal(t, "Count", errs[1].Field)
	assert.Equal(t, "must be at most 40", errs[1].Message)

	assert.Nil(t, ToValidationErrors(errors.New("not a validator error")))
}
