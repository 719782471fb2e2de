package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	p := Default()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest_Defaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	p := FromRequest(req)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, 0, p.Offset)
}

func TestFromRequest_CustomValues(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/sessions?page=3&per_page=50", nil)
	p := FromRequest(req)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 50, p.PerPage)
	assert.Equal(t, 100, p.Offset)
}

func TestFromRequest_InvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"negative page", "?page=-1"},
		{"zero page", "?page=0"},
		{"non-numeric page", "?page=abc"},
		{"per_page above cap", "?per_page=500"},
		{"zero per_page", "?per_page=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/sessions"+tt.query, nil)
			p := FromRequest(req)
			assert.Equal(t, 1, p.Page)
			assert.Equal(t, 20, p.PerPage)
		})
	}
}

func TestNewResult_Metadata(t *testing.T) {
	r := NewResult([]string{"a", "b"}, 5, Params{Page: 1, PerPage: 2})

	assert.Equal(t, 5, r.TotalCount)
	assert.Equal(t, 3, r.TotalPages)
	assert.True(t, r.HasNext)
}

func TestNewResult_LastPage(t *testing.T) {
	r := NewResult([]string{"e"}, 5, Params{Page: 3, PerPage: 2})
	assert.False(t, r.HasNext)
}

func TestNewResult_NilDataBecomesEmptySlice(t *testing.T) {
	r := NewResult[string](nil, 0, Default())
	assert.NotNil(t, r.Data)
	assert.Empty(t, r.Data)
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{1, 2}, Slice(items, Params{Page: 1, PerPage: 2, Offset: 0}))
	assert.Equal(t, []int{3, 4}, Slice(items, Params{Page: 2, PerPage: 2, Offset: 2}))
	assert.Equal(t, []int{5}, Slice(items, Params{Page: 3, PerPage: 2, Offset: 4}))
	assert.Empty(t, Slice(items, Params{Page: 4, PerPage: 2, Offset: 6}))
}
