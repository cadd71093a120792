package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, r := range Roles {
		got, err := ParseRole(string(r))
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	for _, raw := range []string{"", "admin", "ROOT", "regular"} {
		_, err := ParseRole(raw)
		assert.Error(t, err, raw)
	}
}

func TestUser_ResetState(t *testing.T) {
	code := "hash"
	assert.Equal(t, ResetStateNone, (&User{}).ResetState())
	assert.Equal(t, ResetStateIssued, (&User{PasswordResetCode: &code}).ResetState())
	assert.Equal(t, ResetStateVerified, (&User{PasswordResetCode: &code, PasswordResetVerified: true}).ResetState())
}
