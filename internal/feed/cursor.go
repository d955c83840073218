package feed

// PageSize is how many top-level threads each "load more" step reveals.
const PageSize = 3

// Cursor is the caller's pagination state over a sorted thread list.
type Cursor struct {
	Sort    SortOption
	Visible int
}

// NewCursor returns a cursor showing the first page for sort.
func NewCursor(sort SortOption, visible int) Cursor {
	if visible < PageSize {
		visible = PageSize
	}
	return Cursor{Sort: sort, Visible: visible}
}

// WithSort switches the ordering. Positions change meaning under a new
// ordering, so a different sort resets Visible to the first page.
func (c Cursor) WithSort(sort SortOption) Cursor {
	if sort == c.Sort {
		return c
	}
	return Cursor{Sort: sort, Visible: PageSize}
}

// More reveals one more page.
func (c Cursor) More() Cursor {
	c.Visible += PageSize
	return c
}

// Apply returns the visible prefix of threads and whether more remain.
func (c Cursor) Apply(threads []Thread) ([]Thread, bool) {
	if c.Visible >= len(threads) {
		return threads, false
	}
	return threads[:c.Visible], true
}
