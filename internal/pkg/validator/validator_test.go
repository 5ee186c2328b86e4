package validator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"\t\n", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsEmpty(c.input), "IsEmpty(%q)", c.input)
	}
}

func TestIsValidUUID(t *testing.T) {
	generated, err := uuid.NewV7()
	assert.NoError(t, err)

	valid := []string{
		"0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b", // valid UUIDv7
		"0188D0F2-7B8C-7B4A-8A2B-6B8B8B8B8B8B", // valid UUIDv7 (uppercase)
		generated.String(),
	}
	invalid := []string{
		"123e4567-e89b-12d3-a456-426614174000",
		"0188d0f27b8c7b4a8a2b6b8b8b8b8b8b",
		"urn:uuid:0188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"g188d0f2-7b8c-7b4a-8a2b-6b8b8b8b8b8b",
		"",
	}
	for _, id := range valid {
		assert.True(t, IsValidUUID(id), "IsValidUUID(%q)", id)
	}
	for _, id := range invalid {
		assert.False(t, IsValidUUID(id), "IsValidUUID(%q)", id)
	}
}

func TestIsNonNegative(t *testing.T) {
	zero, pos, neg := 0.0, 12.5, -1.0
	assert.True(t, IsNonNegative(nil))
	assert.True(t, IsNonNegative(&zero))
	assert.True(t, IsNonNegative(&pos))
	assert.False(t, IsNonNegative(&neg))
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "device", Message: "required"},
		{Field: "punch_in_time", Message: "invalid"},
	}
	assert.Equal(t, "device: required; punch_in_time: invalid", errs.Error())
}

func TestValidationErrors_ToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "device", Message: "required"},
		{Field: "punch_in_time", Message: "invalid"},
	}
	assert.Equal(t, map[string]string{
		"device":        "required",
		"punch_in_time": "invalid",
	}, errs.ToMap())
}
