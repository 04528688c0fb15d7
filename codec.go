package auth

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"strings"

	"github.com/go-jose/go-jose/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

// MinSecretLength is the minimum secret size in bytes. Direct A128CBC-HS256
// encryption needs a 256 bit key and HS256 should not be keyed with less.
const MinSecretLength = 32

// Mode selects how a claim set is protected on the wire.
type Mode int

const (
	// SignOnly produces a compact JWS: claims are readable but tamper proof.
	SignOnly Mode = iota + 1
	// SignAndEncrypt produces a compact JWE: claims are opaque to the client.
	SignAndEncrypt
)

func (m Mode) String() string {
	switch m {
	case SignOnly:
		return "sign-only"
	case SignAndEncrypt:
		return "sign-and-encrypt"
	default:
		return "unknown"
	}
}

const (
	jwsParts = 3
	jweParts = 5
)

// Codec turns claim sets into compact tokens and back using one symmetric secret.
// A Codec holds no mutable state and is safe for concurrent use.
type Codec struct {
	signKey []byte
	encKey  []byte
}

// NewCodec derives the signing and encryption keys from secret.
func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrConfiguration.Clone().WithMetadata(map[string]any{
			"reason":     "secret too short",
			"min_length": MinSecretLength,
			"length":     len(secret),
		})
	}

	signKey, err := deriveKey(secret, "stateless-auth sign")
	if err != nil {
		return nil, withCause(ErrConfiguration, err)
	}

	encKey, err := deriveKey(secret, "stateless-auth encrypt")
	if err != nil {
		return nil, withCause(ErrConfiguration, err)
	}

	return &Codec{signKey: signKey, encKey: encKey}, nil
}

func deriveKey(secret []byte, info string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, secret, nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Encode protects claims with the given mode.
func (c *Codec) Encode(mode Mode, claims map[string]any) (string, error) {
	switch mode {
	case SignOnly:
		return c.Sign(claims)
	case SignAndEncrypt:
		return c.Seal(claims)
	default:
		return "", ErrConfiguration.Clone().WithMetadata(map[string]any{
			"reason": "unknown codec mode",
		})
	}
}

// Decode detects the mode from the token shape and returns its claims.
func (c *Codec) Decode(token string) (Mode, map[string]any, error) {
	switch strings.Count(token, ".") + 1 {
	case jwsParts:
		claims, err := c.Verify(token)
		return SignOnly, claims, err
	case jweParts:
		claims, err := c.Open(token)
		return SignAndEncrypt, claims, err
	default:
		return 0, nil, integrityFailure(nil)
	}
}

// Sign produces an HS256 compact JWS over claims.
func (c *Codec) Sign(claims map[string]any) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(claims))
	signed, err := token.SignedString(c.signKey)
	if err != nil {
		return "", withCause(ErrConfiguration, err)
	}
	return signed, nil
}

// Verify checks the MAC of a compact JWS and returns its claims.
func (c *Codec) Verify(token string) (map[string]any, error) {
	if !canonicalSegments(token, jwsParts) {
		return nil, integrityFailure(nil)
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return c.signKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithJSONNumber(),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, integrityFailure(err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, integrityFailure(nil)
	}

	return map[string]any(claims), nil
}

// Seal encrypts claims into a compact JWE using direct A128CBC-HS256.
func (c *Codec) Seal(claims map[string]any) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "claims are not serializable").
			WithTextCode(TextCodeInvalidRequest)
	}

	encrypter, err := jose.NewEncrypter(
		jose.A128CBC_HS256,
		jose.Recipient{Algorithm: jose.DIRECT, Key: c.encKey},
		(&jose.EncrypterOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", withCause(ErrConfiguration, err)
	}

	obj, err := encrypter.Encrypt(payload)
	if err != nil {
		return "", withCause(ErrConfiguration, err)
	}

	return obj.CompactSerialize()
}

// Open decrypts a compact JWE and returns its claims.
func (c *Codec) Open(token string) (map[string]any, error) {
	if !canonicalSegments(token, jweParts) {
		return nil, integrityFailure(nil)
	}

	obj, err := jose.ParseEncryptedCompact(
		token,
		[]jose.KeyAlgorithm{jose.DIRECT},
		[]jose.ContentEncryption{jose.A128CBC_HS256},
	)
	if err != nil {
		return nil, integrityFailure(err)
	}

	payload, err := obj.Decrypt(c.encKey)
	if err != nil {
		return nil, integrityFailure(err)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var claims map[string]any
	if err := dec.Decode(&claims); err != nil {
		return nil, integrityFailure(err)
	}
	if claims == nil {
		return nil, integrityFailure(nil)
	}

	return claims, nil
}

// canonicalSegments rejects tokens whose segments are not canonical base64url,
// so two encodings of the same bytes cannot both verify.
func canonicalSegments(token string, want int) bool {
	parts := strings.Split(token, ".")
	if len(parts) != want {
		return false
	}
	for _, part := range parts {
		if _, err := base64.RawURLEncoding.Strict().DecodeString(part); err != nil {
			return false
		}
	}
	return true
}

func integrityFailure(cause error) error {
	if cause == nil {
		return ErrIntegrity.Clone()
	}
	return withCause(ErrIntegrity, cause)
}
