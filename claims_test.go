package auth

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimsMapRoundTrip(t *testing.T) {
	c := Claims{
		Audience:        AudienceVerify,
		Subject:         "subject",
		IssuedAtMillis:  10,
		ExpiresAtMillis: 20,
		Extra:           map[string]any{ClaimEmail: "a@example.com"},
	}

	out, err := claimsFromMap(c.toMap())
	require.NoError(t, err)
	assert.Equal(t, c, out)
}

func TestClaimsFromMapNumbers(t *testing.T) {
	raw := map[string]any{
		claimAudience: "auth",
		claimSubject:  "subject",
		claimIssuedAt: json.Number("1700000000000"),
		claimExpires:  float64(1700000000500),
	}

	c, err := claimsFromMap(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), c.IssuedAtMillis)
	assert.Equal(t, int64(1700000000500), c.ExpiresAtMillis)
	assert.Nil(t, c.Extra)
}

func TestClaimsFromMapMissing(t *testing.T) {
	base := func() map[string]any {
		return map[string]any{
			claimAudience: "auth",
			claimSubject:  "subject",
			claimIssuedAt: int64(1),
			claimExpires:  int64(2),
		}
	}

	for _, key := range []string{claimAudience, claimSubject, claimIssuedAt, claimExpires} {
		raw := base()
		delete(raw, key)
		_, err := claimsFromMap(raw)
		assert.Error(t, err, key)
	}

	raw := base()
	raw[claimIssuedAt] = true
	_, err := claimsFromMap(raw)
	assert.Error(t, err)
}

func TestClaimsFromMapSkipsForeignReservedKeys(t *testing.T) {
	raw := map[string]any{
		claimAudience: "auth",
		claimSubject:  "subject",
		claimIssuedAt: int64(1),
		claimExpires:  int64(2),
		"exp":         int64(99),
		"custom":      "value",
	}

	c, err := claimsFromMap(raw)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"custom": "value"}, c.Extra)
	assert.Equal(t, "value", c.String("custom"))
	assert.Empty(t, c.String("missing"))
}

func TestGuardExtraClaims(t *testing.T) {
	assert.NoError(t, guardExtraClaims(nil))
	assert.NoError(t, guardExtraClaims(map[string]any{ClaimEmail: "x"}))

	err := guardExtraClaims(map[string]any{claimSubject: "x", "nbf": 1, "ok": true})
	require.Error(t, err)

	var rich = asRich(t, err)
	assert.Equal(t, TextCodeImmutableClaim, rich.TextCode)
	assert.Equal(t, []string{"nbf", claimSubject}, rich.Metadata["claims"])
}
