package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestFromContext(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", DefaultLimit, 0},
		{"?limit=10&offset=30", 10, 30},
		{"?limit=500", MaxLimit, 0},
		{"?limit=-3&offset=-1", DefaultLimit, 0},
		{"?limit=abc", DefaultLimit, 0},
	}

	e := echo.New()
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
		c := e.NewContext(req, httptest.NewRecorder())

		p := FromContext(c)
		if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
			t.Errorf("%q: got limit=%d offset=%d, want %d/%d", tt.query, p.Limit, p.Offset, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	if r := NewResponse(nil, 50, 20, 0); !r.HasMore {
		t.Error("expected has_more for first page of 50")
	}
	if r := NewResponse(nil, 50, 20, 40); r.HasMore {
		t.Error("expected no more after last page")
	}
}

func TestParams_Page(t *testing.T) {
	p := Params{Limit: 20, Offset: 0}
	r := p.Page("/api/v1/companies", []string{"a"}, 45)
	if r.Next != "/api/v1/companies?limit=20&offset=20" {
		t.Errorf("unexpected next link %q", r.Next)
	}

	last := Params{Limit: 20, Offset: 40}.Page("/api/v1/companies", nil, 45)
	if last.Next != "" {
		t.Errorf("expected no next link on last page, got %q", last.Next)
	}
}

func TestParams_SQL(t *testing.T) {
	if got := (Params{Limit: 10, Offset: 20}).SQL(); got != "LIMIT 10 OFFSET 20" {
		t.Errorf("unexpected SQL %q", got)
	}
}
