package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name             string
		page, pageSize   int
		wantPage         int
		wantSize, offset int
	}{
		{name: "in range", page: 2, pageSize: 5, wantPage: 2, wantSize: 5, offset: 5},
		{name: "zero page", page: 0, pageSize: 20, wantPage: 1, wantSize: 20, offset: 0},
		{name: "negative page", page: -4, pageSize: 10, wantPage: 1, wantSize: 10, offset: 0},
		{name: "oversized page size", page: 1, pageSize: 1000, wantPage: 1, wantSize: 10, offset: 0},
		{name: "zero page size", page: 3, pageSize: 0, wantPage: 3, wantSize: 10, offset: 20},
		{name: "max page size", page: 2, pageSize: 100, wantPage: 2, wantSize: 100, offset: 100},
		{name: "one over max", page: 1, pageSize: 101, wantPage: 1, wantSize: 10, offset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Normalize(tt.page, tt.pageSize)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantSize, p.PageSize)
			assert.Equal(t, tt.offset, p.Offset)
		})
	}
}

func TestNormalizeTop(t *testing.T) {
	assert.Equal(t, 10, NormalizeTop(0))
	assert.Equal(t, 10, NormalizeTop(51))
	assert.Equal(t, 10, NormalizeTop(-1))
	assert.Equal(t, 1, NormalizeTop(1))
	assert.Equal(t, 50, NormalizeTop(50))
}

func TestNewResult(t *testing.T) {
	r := NewResult([]string{"a", "b"}, 25, Normalize(2, 10))
	assert.Equal(t, 3, r.TotalPages)
	assert.True(t, r.HasNext)

	empty := NewResult[string](nil, 0, Normalize(1, 10))
	assert.NotNil(t, empty.Items)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
}
