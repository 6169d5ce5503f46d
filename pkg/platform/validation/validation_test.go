package validation

import (
	"testing"

	dErrors "clubreg/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	PersonID string `json:"personId" validate:"required_without=GroupID,excluded_with=GroupID,omitempty,uuid"`
	GroupID  string `json:"groupId" validate:"omitempty,uuid"`
	Expires  string `json:"expiresOn" validate:"required,datetime=2006-01-02"`
}

func TestStruct(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		err := Struct(sample{PersonID: "0b7e6c1a-5a55-4a8e-9d0e-8f3e2f1c6a11", Expires: "2026-05-01"})
		assert.NoError(t, err)
	})

	t.Run("reports json field name", func(t *testing.T) {
		err := Struct(sample{PersonID: "not-a-uuid", Expires: "2026-05-01"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Contains(t, err.Error(), "personId must be a UUID")
	})

	t.Run("bad date", func(t *testing.T) {
		err := Struct(sample{PersonID: "0b7e6c1a-5a55-4a8e-9d0e-8f3e2f1c6a11", Expires: "05/01/2026"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expiresOn must be a date")
	})

	t.Run("neither person nor group", func(t *testing.T) {
		err := Struct(sample{Expires: "2026-05-01"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "personId is required when GroupID is absent")
	})
}
