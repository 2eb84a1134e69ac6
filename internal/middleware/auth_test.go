package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"telescreen-backend/internal/models"
)

func TestGenerateAndParseToken(t *testing.T) {
	j := NewJWTAuth("test-secret")
	accountID := uuid.New()

	token, err := j.GenerateAccessToken(accountID, models.RoleEmployee, "PC-07")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	identity, err := j.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if identity.ID != accountID {
		t.Errorf("identity.ID = %s, want %s", identity.ID, accountID)
	}
	if identity.Kind != models.IdentityEmployee {
		t.Errorf("identity.Kind = %s, want EMPLOYEE", identity.Kind)
	}
}

func TestParseToken_AdminRole(t *testing.T) {
	j := NewJWTAuth("test-secret")

	token, _ := j.GenerateAccessToken(uuid.New(), models.RoleAdmin, "")
	identity, err := j.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if identity.Kind != models.IdentityAdmin {
		t.Errorf("identity.Kind = %s, want ADMIN", identity.Kind)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _ := NewJWTAuth("secret-a").GenerateAccessToken(uuid.New(), models.RoleEmployee, "")

	if _, err := NewJWTAuth("secret-b").ParseToken(token); err == nil {
		t.Fatal("a token signed with a different secret must not parse")
	}
}

func TestMiddleware_InjectsIdentity(t *testing.T) {
	j := NewJWTAuth("test-secret")
	accountID := uuid.New()
	token, _ := j.GenerateAccessToken(accountID, models.RoleEmployee, "PC-07")

	var gotID uuid.UUID
	var gotRole string
	handler := j.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetAccountID(r.Context())
		gotRole = GetRole(r.Context())
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotID != accountID || gotRole != models.RoleEmployee {
		t.Errorf("context carried %s/%s, want %s/%s", gotID, gotRole, accountID, models.RoleEmployee)
	}
}

func TestMiddleware_RejectsMissingAndMalformedHeaders(t *testing.T) {
	j := NewJWTAuth("test-secret")
	handler := j.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a valid token")
	}))

	for _, header := range []string{"", "Basic abc", "Bearer not-a-token"} {
		req := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestRequireAdmin(t *testing.T) {
	called := false
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	// Employee context is rejected.
	j := NewJWTAuth("test-secret")
	token, _ := j.GenerateAccessToken(uuid.New(), models.RoleEmployee, "")
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	j.Middleware(handler).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden || called {
		t.Errorf("employee: status = %d, handler called = %v; want 403, false", rec.Code, called)
	}

	// Admin context passes.
	token, _ = j.GenerateAccessToken(uuid.New(), models.RoleAdmin, "")
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	j.Middleware(handler).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !called {
		t.Errorf("admin: status = %d, handler called = %v; want 200, true", rec.Code, called)
	}
}
