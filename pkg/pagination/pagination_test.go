package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(target string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor("/")

	if p.Page != 1 {
		t.Errorf("expected default page 1, got %d", p.Page)
	}
	if p.PageSize != DefaultPageSize {
		t.Errorf("expected default page size %d, got %d", DefaultPageSize, p.PageSize)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := paramsFor("/?page=3&page_size=50")

	if p.Page != 3 {
		t.Errorf("expected page 3, got %d", p.Page)
	}
	if p.PageSize != 50 {
		t.Errorf("expected page size 50, got %d", p.PageSize)
	}
	if p.Offset() != 100 {
		t.Errorf("expected offset 100, got %d", p.Offset())
	}
}

func TestFromContext_MaxPageSize(t *testing.T) {
	p := paramsFor("/?page_size=500")

	if p.PageSize != MaxPageSize {
		t.Errorf("expected page size capped at %d, got %d", MaxPageSize, p.PageSize)
	}
}

func TestFromContext_InvalidPage(t *testing.T) {
	for _, target := range []string{"/?page=0", "/?page=-4", "/?page=abc"} {
		p := paramsFor(target)
		if p.Page != 1 {
			t.Errorf("%s: expected page clamped to 1, got %d", target, p.Page)
		}
	}
}

func TestFromContext_HugePage(t *testing.T) {
	for _, target := range []string{
		"/?page=9223372036854775807&page_size=100",
		"/?page=4611686018427387904&page_size=100",
		"/?page=1000001",
	} {
		p := paramsFor(target)
		if p.Page != MaxPage {
			t.Errorf("%s: expected page capped at %d, got %d", target, MaxPage, p.Page)
		}
		if p.Offset() < 0 {
			t.Errorf("%s: offset overflowed to %d", target, p.Offset())
		}
	}

	p := paramsFor("/?page=99999999999999999999999")
	if p.Page != 1 {
		t.Errorf("unparsable page should fall back to 1, got %d", p.Page)
	}
}

func TestParams_Meta(t *testing.T) {
	p := Params{Page: 2, PageSize: 10}
	m := p.Meta(35)
	if m.Page != 2 || m.PageSize != 10 || m.Total != 35 {
		t.Errorf("unexpected meta: %+v", m)
	}
	if p.Offset() != 10 || p.Limit() != 10 {
		t.Errorf("unexpected window: offset %d limit %d", p.Offset(), p.Limit())
	}
}
