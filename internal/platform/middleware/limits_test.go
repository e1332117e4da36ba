package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func readAll(c echo.Context) error {
	if _, err := io.ReadAll(c.Request().Body); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func expectHTTPStatus(t *testing.T, err error, status int) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != status {
		t.Fatalf("expected HTTP %d, got %v", status, err)
	}
}

func TestBodyLimit(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		hideLength bool
		wantStatus int
	}{
		{"within limit", strings.Repeat("a", 16), false, http.StatusNoContent},
		{"content length over limit", strings.Repeat("a", 17), false, http.StatusRequestEntityTooLarge},
		{"streamed over limit", strings.Repeat("a", 40), true, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.hideLength {
				req.ContentLength = -1
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := BodyLimit("16")(readAll)(c)
			if tt.wantStatus == http.StatusNoContent {
				if err != nil || rec.Code != http.StatusNoContent {
					t.Fatalf("expected 204, got %d, %v", rec.Code, err)
				}
				return
			}
			expectHTTPStatus(t, err, tt.wantStatus)
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := map[string]int64{
		"":      1 << 20,
		"100":   100,
		"512K":  512 << 10,
		"512kb": 512 << 10,
		"2M":    2 << 20,
		"1G":    1 << 30,
		"junk":  1 << 20,
		"-5":    1 << 20,
	}
	for in, want := range tests {
		if got := ParseSize(in); got != want {
			t.Errorf("ParseSize(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestRequestTimeout_MapsDeadlineTo504(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	slow := func(c echo.Context) error {
		<-c.Request().Context().Done()
		return c.Request().Context().Err()
	}
	expectHTTPStatus(t, RequestTimeout(10*time.Millisecond)(slow)(c), http.StatusGatewayTimeout)
}

func TestRequestTimeout_PassesThrough(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	var deadlineSet bool
	fast := func(c echo.Context) error {
		_, deadlineSet = c.Request().Context().Deadline()
		return c.NoContent(http.StatusOK)
	}
	if err := RequestTimeout(time.Second)(fast)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deadlineSet {
		t.Error("expected a deadline on the request context")
	}

	boom := errors.New("boom")
	failing := func(echo.Context) error { return boom }
	if err := RequestTimeout(time.Second)(failing)(c); !errors.Is(err, boom) {
		t.Errorf("expected original error, got %v", err)
	}
}
