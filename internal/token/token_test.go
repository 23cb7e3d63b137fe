package token

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-signing-secret")

// TestIssueVerifyRoundTrip checks that claims survive an issue/verify cycle
// unchanged (numbers come back as float64 per encoding/json) and that iat/exp
// are stamped by issuance.
func TestIssueVerifyRoundTrip(t *testing.T) {
	in := Claims{
		"id":    1,
		"name":  "Ada",
		"email": "ada@example.com",
		"role":  "admin",
	}
	before := time.Now().UTC().Unix()
	tok, err := Issue(in, testSecret, 3600)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	after := time.Now().UTC().Unix()

	out, err := Verify(tok, testSecret)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got, _ := UserID(out); got != 1 {
		t.Errorf("id claim = %v, want 1", out["id"])
	}
	if out["name"] != "Ada" || out["email"] != "ada@example.com" || Role(out) != "admin" {
		t.Errorf("claims changed across round trip: %+v", out)
	}
	iat, ok := out["iat"].(float64)
	if !ok || int64(iat) < before || int64(iat) > after {
		t.Errorf("iat = %v, want within [%d, %d]", out["iat"], before, after)
	}
	exp, ok := out["exp"].(float64)
	if !ok || int64(exp) != int64(iat)+3600 {
		t.Errorf("exp = %v, want iat+3600", out["exp"])
	}
	// Issuance must not mutate the caller's map.
	if _, found := in["iat"]; found {
		t.Error("Issue mutated the input claims map")
	}
}

// TestVerifyWrongSecret covers the concrete scenario from the auth contract:
// a token signed with one secret must fail signature verification under any
// other secret.
func TestVerifyWrongSecret(t *testing.T) {
	tok, err := Issue(Claims{"id": 1, "role": "admin"}, []byte("secret"), 3600)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := Verify(tok, []byte("wrong-secret"))
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("verify with wrong secret: err = %v, want ErrBadSignature", err)
	}
	if claims != nil {
		t.Fatal("verify returned claims alongside an error")
	}
}

// TestVerifyTampered flips one character in the middle of each segment and
// checks that verification never silently succeeds. Middle positions are used
// so the flip is guaranteed to change decoded bytes (the final character of a
// raw base64url segment carries unused bits).
func TestVerifyTampered(t *testing.T) {
	tok, err := Issue(Claims{"id": 42, "role": "customer"}, testSecret, 3600)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("token has %d segments, want 3", len(parts))
	}
	for seg := 0; seg < 3; seg++ {
		mutated := make([]string, 3)
		copy(mutated, parts)
		mid := len(parts[seg]) / 2
		b := []byte(parts[seg])
		if b[mid] == 'x' {
			b[mid] = 'y'
		} else {
			b[mid] = 'x'
		}
		mutated[seg] = string(b)
		if mutated[seg] == parts[seg] {
			t.Fatalf("segment %d: mutation produced identical segment", seg)
		}
		claims, err := Verify(strings.Join(mutated, "."), testSecret)
		if err == nil {
			t.Errorf("segment %d: tampered token verified successfully", seg)
		}
		if claims != nil {
			t.Errorf("segment %d: tampered token returned claims", seg)
		}
	}

	// A tampered signature in particular must read as a signature failure.
	sig := []byte(parts[2])
	if sig[10] == 'A' {
		sig[10] = 'B'
	} else {
		sig[10] = 'A'
	}
	_, err = Verify(parts[0]+"."+parts[1]+"."+string(sig), testSecret)
	if !errors.Is(err, ErrBadSignature) {
		t.Errorf("tampered signature: err = %v, want ErrBadSignature", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"onlyonesegment",
		"two.segments",
		"a.b.c.d",
	} {
		if _, err := Verify(raw, testSecret); !errors.Is(err, ErrMalformed) {
			t.Errorf("Verify(%q): err = %v, want ErrMalformed", raw, err)
		}
	}
}

// TestVerifyNonObjectPayload builds a structurally valid token whose payload
// segment is a JSON array rather than an object.
func TestVerifyNonObjectPayload(t *testing.T) {
	tok, err := Issue(Claims{"id": 1}, testSecret, 3600)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	parts := strings.Split(tok, ".")
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(`[1,2,3]`))
	if _, err := Verify(strings.Join(parts, "."), testSecret); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("array payload: err = %v, want ErrInvalidPayload", err)
	}
}

// TestVerifyNonNumericExp signs a token whose exp claim is a string. The
// signature is valid, so the failure must be reported as an unusable
// payload, not as a signature problem.
func TestVerifyNonNumericExp(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		jwt.MapClaims{"id": 1, "exp": "soon"}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := Verify(raw, testSecret)
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("non-numeric exp: err = %v, want ErrInvalidPayload", err)
	}
	if claims != nil {
		t.Fatal("verify returned claims alongside an error")
	}
}

func TestVerifyExpired(t *testing.T) {
	tok, err := Issue(Claims{"id": 7, "role": "customer"}, testSecret, -1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Verify(tok, testSecret); !errors.Is(err, ErrExpired) {
		t.Errorf("expired token: err = %v, want ErrExpired", err)
	}
}

func TestExtractBearer(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc.def.ghi", "abc.def.ghi", true},
		{"BEARER   abc.def.ghi  ", "abc.def.ghi", true},
		{"  Bearer tok", "tok", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer   ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"abc.def.ghi", "", false},
	}
	for _, tc := range cases {
		got, ok := ExtractBearer(tc.header)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ExtractBearer(%q) = (%q, %v), want (%q, %v)", tc.header, got, ok, tc.want, tc.ok)
		}
	}
}
