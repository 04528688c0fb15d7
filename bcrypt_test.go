package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-stateless-auth"
)

func TestHashPassword(t *testing.T) {
	hasher := auth.NewBcryptHasher(4)

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.HashPassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, hash)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)
		})
	}
}

func TestComparePasswordAndHash(t *testing.T) {
	hasher := auth.NewBcryptHasher(4)
	hash, err := hasher.HashPassword("correct horse")
	require.NoError(t, err)

	assert.NoError(t, hasher.ComparePasswordAndHash("correct horse", hash))

	err = hasher.ComparePasswordAndHash("wrong horse", hash)
	assert.True(t, auth.IsInvalidCredentialsError(err))

	err = hasher.ComparePasswordAndHash("correct horse", "not-a-hash")
	assert.True(t, auth.IsInvalidCredentialsError(err))
}

func TestNewBcryptHasherClampsCost(t *testing.T) {
	hasher := auth.NewBcryptHasher(1000)
	hash, err := hasher.HashPassword("pw")
	require.NoError(t, err)
	assert.Contains(t, hash, "$10$")
}
