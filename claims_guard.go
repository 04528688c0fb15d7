package auth

import (
	"sort"
)

// reservedClaims may only be set by the token service itself.
var reservedClaims = map[string]struct{}{
	claimAudience: {},
	claimSubject:  {},
	claimIssuedAt: {},
	claimExpires:  {},
	"iat":         {},
	"exp":         {},
	"nbf":         {},
}

func guardExtraClaims(extra map[string]any) error {
	var offending []string
	for key := range extra {
		if _, reserved := reservedClaims[key]; reserved {
			offending = append(offending, key)
		}
	}

	if len(offending) == 0 {
		return nil
	}

	sort.Strings(offending)
	return immutableClaimViolation(offending...)
}

func immutableClaimViolation(claims ...string) error {
	return ErrImmutableClaim.Clone().WithMetadata(map[string]any{
		"claims": claims,
	})
}
