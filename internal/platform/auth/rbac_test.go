package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func serveWithRole(t *testing.T, p *Principal, roles ...Role) error {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if p != nil {
		req = req.WithContext(WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	return RequireRole(roles...)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})(c)
}

func TestRequireRole_Allowed(t *testing.T) {
	p := &Principal{UserID: uuid.New(), Role: RoleStaff}
	if err := serveWithRole(t, p, RoleAdmin, RoleStaff); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	p := &Principal{UserID: uuid.New(), Role: RolePatient}
	err := serveWithRole(t, p, RoleAdmin, RoleStaff)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
	if httpErr.Message != "required role: admin or staff" {
		t.Errorf("unexpected message %v", httpErr.Message)
	}
}

func TestRequireRole_AdminIsNotImplicit(t *testing.T) {
	p := &Principal{UserID: uuid.New(), Role: RoleAdmin}
	err := serveWithRole(t, p, RoleDoctor)
	if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestRequireRole_Unauthenticated(t *testing.T) {
	err := serveWithRole(t, nil, RoleAdmin)
	if httpErr, ok := err.(*echo.HTTPError); !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}
