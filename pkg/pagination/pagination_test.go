package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return Parse(c)
}

func TestParseDefaults(t *testing.T) {
	p := paramsFor(t, "")
	if p.Page != DefaultPage || p.Limit != DefaultLimit || p.Offset != 0 {
		t.Fatalf("defaults = %+v, want page %d limit %d offset 0", p, DefaultPage, DefaultLimit)
	}
}

func TestParseClampsLimit(t *testing.T) {
	p := paramsFor(t, "page=3&limit=500")
	if p.Limit != MaxLimit {
		t.Fatalf("limit = %d, want clamped to %d", p.Limit, MaxLimit)
	}
	if p.Offset != (3-1)*MaxLimit {
		t.Fatalf("offset = %d, want %d", p.Offset, (3-1)*MaxLimit)
	}
}

func TestParseRejectsNonsense(t *testing.T) {
	p := paramsFor(t, "page=-2&limit=0")
	if p.Page != DefaultPage || p.Limit != DefaultLimit {
		t.Fatalf("params = %+v, want defaults for invalid input", p)
	}
}
