// Package token implements issuance and verification of the compact signed
// access tokens used by the storefront. Tokens are HS256 JWTs: three
// dot-separated base64url segments where the signature is HMAC-SHA256 over
// `header.payload`. Tokens are pure bearer capabilities — there is no
// server-side session or revocation state, so every function here is a pure
// function of its inputs and the wall clock. The signing secret is always an
// explicit parameter; this package keeps no key state of its own.
package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures. Verify returns exactly one of these sentinels (or a
// wrapped storage-free error from the underlying parser mapped onto one of
// them); callers decide the HTTP status. All of them are soft failures —
// nothing here is ever fatal to the process.
var (
	// ErrMalformed means the token does not have the three-segment
	// header.payload.signature shape, or a segment is not decodable.
	ErrMalformed = errors.New("token: malformed")
	// ErrBadSignature means the recomputed HMAC does not match the third
	// segment. A tampered header or payload also surfaces as this failure
	// because the signature covers both.
	ErrBadSignature = errors.New("token: bad signature")
	// ErrInvalidPayload means the payload segment decoded but is not a JSON
	// object, or a registered claim carries an unusable value (e.g. a
	// non-numeric exp).
	ErrInvalidPayload = errors.New("token: invalid payload")
	// ErrExpired means the token carries an exp claim in the past.
	ErrExpired = errors.New("token: expired")
)

// Claims is the decoded key/value payload carried by a token. Issuance
// writes id, name, email and role alongside the iat/exp pair; numeric values
// decode back as float64 per encoding/json.
type Claims = jwt.MapClaims

// Issue builds and signs an HS256 token carrying the given claims. The iat
// and exp claims are overwritten: iat is the current unix time and exp is
// iat + ttlSeconds. The input map is not mutated. Two calls with identical
// claims and secret at the same instant produce byte-identical tokens, since
// JSON object keys serialize in sorted order.
func Issue(claims Claims, secret []byte, ttlSeconds int) (string, error) {
	now := time.Now().UTC()
	all := make(Claims, len(claims)+2)
	for k, v := range claims {
		all[k] = v
	}
	all["iat"] = now.Unix()
	all["exp"] = now.Add(time.Duration(ttlSeconds) * time.Second).Unix()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, all)
	return t.SignedString(secret)
}

// Verify checks a compact token against the secret and returns its claims.
// The failure taxonomy is explicit so callers can distinguish a structurally
// broken token (ErrMalformed), a wrong or tampered signature
// (ErrBadSignature), a non-object payload (ErrInvalidPayload) and a valid
// but expired token (ErrExpired). Signature comparison inside the HMAC
// verifier is constant-time. On success the claims are returned unchanged.
func Verify(raw string, secret []byte) (Claims, error) {
	if strings.Count(raw, ".") != 2 {
		return nil, ErrMalformed
	}
	tok, err := jwt.Parse(raw,
		func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			// The parser reports every decode problem as "malformed"; keep
			// the payload-specific failure distinct when the segment holds
			// valid JSON that simply is not an object.
			if payloadIsNonObjectJSON(raw) {
				return nil, ErrInvalidPayload
			}
			return nil, ErrMalformed
		case errors.Is(err, jwt.ErrTokenInvalidClaims):
			// The signature checked out but a claim is unusable, e.g. exp
			// carrying a non-numeric value. The expiry case was already
			// handled above.
			return nil, ErrInvalidPayload
		default:
			return nil, ErrBadSignature
		}
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidPayload
	}
	return claims, nil
}

// ExtractBearer pulls the token out of an Authorization header value. The
// scheme match is case-insensitive and tolerant of extra whitespace between
// scheme and token. The second return is false when the header is absent or
// does not carry a bearer credential.
func ExtractBearer(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", false
	}
	scheme, rest, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok := strings.TrimSpace(rest)
	if tok == "" {
		return "", false
	}
	return tok, true
}

// payloadIsNonObjectJSON reports whether the middle segment of a
// three-segment token decodes to JSON that is not an object.
func payloadIsNonObjectJSON(raw string) bool {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return false
	}
	dec, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}
	if !json.Valid(dec) {
		return false
	}
	trimmed := strings.TrimLeft(string(dec), " \t\r\n")
	return trimmed == "" || trimmed[0] != '{'
}

// UserID extracts the numeric id claim. JSON numbers decode as float64, so
// both freshly issued and round-tripped claims are handled.
func UserID(c Claims) (uint64, bool) {
	switch v := c["id"].(type) {
	case float64:
		return uint64(v), true
	case int64:
		return uint64(v), true
	case uint64:
		return v, true
	case int:
		return uint64(v), true
	}
	return 0, false
}

// Role extracts the role claim, or "" when absent.
func Role(c Claims) string {
	if r, ok := c["role"].(string); ok {
		return r
	}
	return ""
}
