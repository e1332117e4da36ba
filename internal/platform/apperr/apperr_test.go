package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestKind_Status(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindValidation, http.StatusUnprocessableEntity},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindConflict, http.StatusConflict},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := tt.kind.Status(); got != tt.want {
			t.Errorf("%s.Status() = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestError_IsMatchesSentinelThroughWrapping(t *testing.T) {
	err := fmt.Errorf("book: %w", ErrFullyBooked.With("max_patients", 3))
	if !errors.Is(err, ErrFullyBooked) {
		t.Fatal("expected errors.Is to match ErrFullyBooked")
	}
	if errors.Is(err, ErrOutsideSchedule) {
		t.Error("did not expect match against ErrOutsideSchedule")
	}
}

func TestError_WithDoesNotMutateSentinel(t *testing.T) {
	_ = ErrFullyBooked.With("max_patients", 5)
	if len(ErrFullyBooked.Details) != 0 {
		t.Errorf("sentinel details mutated: %v", ErrFullyBooked.Details)
	}
}

func TestKindOf_Unstructured(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Errorf("expected KindInternal, got %s", got)
	}
}

func serveError(t *testing.T, err error) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(zerolog.New(os.Stderr))(err, c)

	var env Envelope
	if jerr := json.Unmarshal(rec.Body.Bytes(), &env); jerr != nil {
		t.Fatalf("decode envelope: %v", jerr)
	}
	return rec, env
}

func TestHTTPErrorHandler_ConflictWithDetails(t *testing.T) {
	rec, env := serveError(t, ErrFullyBooked.With("max_patients", 2))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if env.OK {
		t.Error("expected ok=false")
	}
	if env.Error.Code != CodeFullyBooked {
		t.Errorf("expected code %s, got %s", CodeFullyBooked, env.Error.Code)
	}
	if v, ok := env.Error.Details["max_patients"].(float64); !ok || v != 2 {
		t.Errorf("expected max_patients=2 detail, got %v", env.Error.Details)
	}
}

func TestHTTPErrorHandler_InternalIsGeneric(t *testing.T) {
	rec, env := serveError(t, errors.New("pq: relation does not exist"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if env.Error.Message != "internal server error" {
		t.Errorf("internal detail leaked: %q", env.Error.Message)
	}
}

func TestHTTPErrorHandler_EchoHTTPError(t *testing.T) {
	rec, env := serveError(t, echo.NewHTTPError(http.StatusForbidden, "required role: admin"))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if env.Error.Code != CodeForbidden || env.Error.Message != "required role: admin" {
		t.Errorf("unexpected body: %+v", env.Error)
	}
}

func TestHTTPErrorHandler_StatusCodes(t *testing.T) {
	tests := []struct {
		status int
		code   string
	}{
		{http.StatusRequestEntityTooLarge, "payload_too_large"},
		{http.StatusTooManyRequests, "rate_limited"},
		{http.StatusGatewayTimeout, "timeout"},
		{http.StatusMethodNotAllowed, CodeNotFound},
	}
	for _, tt := range tests {
		rec, env := serveError(t, echo.NewHTTPError(tt.status, "x"))
		if rec.Code != tt.status || env.Error.Code != tt.code {
			t.Errorf("status %d: got %d/%s, want %s", tt.status, rec.Code, env.Error.Code, tt.code)
		}
	}
}
