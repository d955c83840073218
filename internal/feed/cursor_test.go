package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursor(t *testing.T) {
	c := NewCursor(SortRecent, 0)
	assert.Equal(t, PageSize, c.Visible, "visible is clamped to one page")

	c = c.More().More()
	assert.Equal(t, 3*PageSize, c.Visible)

	same := c.WithSort(SortRecent)
	assert.Equal(t, c, same, "re-selecting the current sort keeps the position")

	switched := c.WithSort(SortRating)
	assert.Equal(t, Cursor{Sort: SortRating, Visible: PageSize}, switched)
}

func TestCursor_Apply(t *testing.T) {
	threads := make([]Thread, 5)
	for i := range threads {
		threads[i] = Thread{Record: Record{ID: string(rune('a' + i))}}
	}

	tests := []struct {
		name     string
		visible  int
		wantLen  int
		wantMore bool
	}{
		{"first page", 3, 3, true},
		{"exact", 5, 5, false},
		{"beyond", 9, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, more := NewCursor(SortRecent, tt.visible).Apply(threads)
			assert.Len(t, got, tt.wantLen)
			assert.Equal(t, tt.wantMore, more)
		})
	}
}
