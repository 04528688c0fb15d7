package auth

import (
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
)

const (
	claimAudience = "aud"
	claimSubject  = "sub"
	claimIssuedAt = "iat_ms"
	claimExpires  = "exp_ms"

	// ClaimEmail carries the account email a verify-email code was minted for.
	ClaimEmail = "email"
	// ClaimNewEmail carries the requested address of a change-email code.
	ClaimNewEmail = "newEmail"
)

// Claims is the decoded content of a token. Extra holds purpose specific facts;
// numeric extras come back as json.Number after a round trip.
type Claims struct {
	Audience        Audience
	Subject         string
	IssuedAtMillis  int64
	ExpiresAtMillis int64
	Extra           map[string]any
}

// String returns the extra claim under key when it is a string.
func (c Claims) String(key string) string {
	if c.Extra == nil {
		return ""
	}
	s, _ := c.Extra[key].(string)
	return s
}

func (c Claims) toMap() map[string]any {
	out := make(map[string]any, len(c.Extra)+4)
	maps.Copy(out, c.Extra)
	out[claimAudience] = string(c.Audience)
	out[claimSubject] = c.Subject
	out[claimIssuedAt] = c.IssuedAtMillis
	out[claimExpires] = c.ExpiresAtMillis
	return out
}

func claimsFromMap(raw map[string]any) (Claims, error) {
	var c Claims

	aud, ok := raw[claimAudience].(string)
	if !ok || aud == "" {
		return c, fmt.Errorf("missing %s claim", claimAudience)
	}

	sub, ok := raw[claimSubject].(string)
	if !ok || sub == "" {
		return c, fmt.Errorf("missing %s claim", claimSubject)
	}

	iat, err := int64Claim(raw, claimIssuedAt)
	if err != nil {
		return c, err
	}

	exp, err := int64Claim(raw, claimExpires)
	if err != nil {
		return c, err
	}

	c.Audience = Audience(aud)
	c.Subject = sub
	c.IssuedAtMillis = iat
	c.ExpiresAtMillis = exp

	for k, v := range raw {
		if _, reserved := reservedClaims[k]; reserved {
			continue
		}
		if c.Extra == nil {
			c.Extra = make(map[string]any)
		}
		c.Extra[k] = v
	}

	return c, nil
}

func int64Claim(raw map[string]any, key string) (int64, error) {
	switch v := raw[key].(type) {
	case json.Number:
		return v.Int64()
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, fmt.Errorf("missing %s claim", key)
	default:
		return 0, fmt.Errorf("claim %s has type %T", key, v)
	}
}
