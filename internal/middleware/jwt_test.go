package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-storefront/internal/token"
)

var testSecret = []byte("middleware-test-secret")

// do runs a request through the given middleware chain with a trivial
// terminal handler and returns the recorder.
func do(t *testing.T, authHeader string, mws ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestJWTAuthMissingToken(t *testing.T) {
	rec := do(t, "", JWTAuth(testSecret))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthInvalidToken(t *testing.T) {
	for _, header := range []string{
		"Bearer not-a-token",
		"Bearer a.b.c",
		"Basic dXNlcjpwYXNz",
	} {
		rec := do(t, header, JWTAuth(testSecret))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestJWTAuthWrongSecret(t *testing.T) {
	raw, err := token.Issue(token.Claims{"id": float64(7), "role": "customer"}, []byte("other-secret"), 3600)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	rec := do(t, "Bearer "+raw, JWTAuth(testSecret))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthValidTokenPopulatesContext(t *testing.T) {
	raw, err := token.Issue(token.Claims{"id": float64(42), "role": "customer"}, testSecret, 3600)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	e := echo.New()
	var gotUserID interface{}
	var gotRole interface{}
	h := JWTAuth(testSecret)(func(c echo.Context) error {
		gotUserID = c.Get(ContextKeyUserID)
		gotRole = c.Get(ContextKeyRole)
		return c.NoContent(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	id, ok := gotUserID.(uint64)
	if !ok || id != 42 {
		t.Errorf("user_id in context = %v, want uint64(42)", gotUserID)
	}
	if role, ok := gotRole.(string); !ok || role != "customer" {
		t.Errorf("role in context = %v, want %q", gotRole, "customer")
	}
}

func TestRequireRole(t *testing.T) {
	issue := func(role string) string {
		raw, err := token.Issue(token.Claims{"id": float64(1), "role": role}, testSecret, 3600)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		return raw
	}

	tests := []struct {
		name     string
		role     string
		allowed  []string
		wantCode int
	}{
		{"admin allowed", "admin", []string{"admin"}, http.StatusOK},
		{"customer rejected on admin route", "customer", []string{"admin"}, http.StatusForbidden},
		{"one of several roles", "customer", []string{"admin", "customer"}, http.StatusOK},
		{"unknown role rejected", "superuser", []string{"admin"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, "Bearer "+issue(tt.role), JWTAuth(testSecret), RequireRole(tt.allowed...))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestRequireRoleWithoutJWTAuth(t *testing.T) {
	// No JWTAuth ran, so no role is in the context; the check must fail
	// closed.
	rec := do(t, "", RequireRole("admin"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}
