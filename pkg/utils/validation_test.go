package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type enhanceBody struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description" validate:"required,max=20"`
	Apps        string `json:"apps"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(enhanceBody{Title: "t", Description: "d"}))

	err := ValidateStruct(enhanceBody{Description: "this description is far too long"})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "title is required")
		assert.Contains(t, err.Error(), "description must be at most 20 characters")
	}
}
