package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func contextWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/notes"+query, nil)
	return c
}

func TestParsePageParams(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantNil    bool
		wantPage   int
		wantSize   int
		wantOffset int
	}{
		{name: "absent", query: "", wantNil: true},
		{name: "explicit", query: "?page=3&page_size=20", wantPage: 3, wantSize: 20, wantOffset: 40},
		{name: "size capped", query: "?page=1&page_size=500", wantPage: 1, wantSize: MaxPageSize},
		{name: "garbage falls back", query: "?page=x&page_size=-1", wantPage: DefaultPage, wantSize: DefaultPageSize},
		{name: "only size", query: "?page_size=5", wantPage: DefaultPage, wantSize: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParsePageParams(contextWithQuery(tt.query))
			if tt.wantNil {
				if p != nil {
					t.Fatalf("expected nil params, got %+v", p)
				}
				if p.GetLimit() != 0 || p.GetOffset() != 0 {
					t.Error("nil params must mean no limit")
				}
				return
			}
			if p.Page != tt.wantPage || p.PageSize != tt.wantSize {
				t.Errorf("got page=%d size=%d, want page=%d size=%d", p.Page, p.PageSize, tt.wantPage, tt.wantSize)
			}
			if p.GetOffset() != tt.wantOffset {
				t.Errorf("offset = %d, want %d", p.GetOffset(), tt.wantOffset)
			}
		})
	}
}

func TestNewPageInfo(t *testing.T) {
	info := NewPageInfo(2, 10, 25)
	if info.TotalPages != 3 || !info.HasNext || !info.HasPrev {
		t.Errorf("unexpected page info %+v", info)
	}
}
