package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

func ids(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestRepliesOf(t *testing.T) {
	view := NewView([]Record{
		{ID: "1", CreatedAt: at(3)},
		{ID: "2", CreatedAt: at(2), ParentID: "1"},
		{ID: "3", CreatedAt: at(1)},
	})

	assert.Equal(t, []string{"2"}, ids(view.RepliesOf("1")))
	assert.Empty(t, view.RepliesOf("3"))
	assert.Empty(t, view.RepliesOf(""), "top-level records are not replies to the empty id")

	for _, sort := range []SortOption{SortRecent, SortRating, SortReplies} {
		assert.NotContains(t, ids(view.TopLevel(sort)), "2", "sort %s", sort)
	}
}

func TestRepliesOf_KeepsCanonicalOrder(t *testing.T) {
	view := NewView([]Record{
		{ID: "r3", CreatedAt: at(9), ParentID: "p"},
		{ID: "p", CreatedAt: at(1)},
		{ID: "r1", CreatedAt: at(2), ParentID: "p"},
		{ID: "r2", CreatedAt: at(5), ParentID: "p"},
	})

	assert.Equal(t, []string{"r3", "r1", "r2"}, ids(view.RepliesOf("p")))
}

func TestTopLevel(t *testing.T) {
	// Canonical order is recency order, newest first.
	records := []Record{
		{ID: "a", CreatedAt: at(10), Likes: 3},
		{ID: "b", CreatedAt: at(9), Likes: 1},
		{ID: "c", CreatedAt: at(8), Likes: 2},
		{ID: "d", CreatedAt: at(7), Likes: 1},
		{ID: "a1", CreatedAt: at(6), ParentID: "d", Likes: 50},
		{ID: "a2", CreatedAt: at(5), ParentID: "d"},
		{ID: "a3", CreatedAt: at(4), ParentID: "b"},
	}

	tests := []struct {
		name string
		sort SortOption
		want []string
	}{
		{"recent", SortRecent, []string{"a", "b", "c", "d"}},
		{"rating descending, ties stable", SortRating, []string{"a", "c", "b", "d"}},
		{"replies descending, ties stable", SortReplies, []string{"d", "b", "a", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(NewView(records).TopLevel(tt.sort)))
		})
	}
}

func TestTopLevel_RecentSortsUnorderedInput(t *testing.T) {
	view := NewView([]Record{
		{ID: "old", CreatedAt: at(1)},
		{ID: "new", CreatedAt: at(3)},
		{ID: "mid", CreatedAt: at(2)},
	})

	assert.Equal(t, []string{"new", "mid", "old"}, ids(view.TopLevel(SortRecent)))
}

func TestTopLevel_RatingExample(t *testing.T) {
	view := NewView([]Record{
		{ID: "x", CreatedAt: at(3), Likes: 3},
		{ID: "y", CreatedAt: at(2), Likes: 1},
		{ID: "z", CreatedAt: at(1), Likes: 2},
	})

	top := view.TopLevel(SortRating)
	likes := make([]int, len(top))
	for i, r := range top {
		likes[i] = r.Likes
	}
	assert.Equal(t, []int{3, 2, 1}, likes)
}

func TestTopLevel_DoesNotMutateCanonicalSet(t *testing.T) {
	records := []Record{
		{ID: "a", CreatedAt: at(1), Likes: 0},
		{ID: "b", CreatedAt: at(2), Likes: 5},
	}
	view := NewView(records)

	_ = view.TopLevel(SortRating)
	_ = view.TopLevel(SortRecent)

	assert.Equal(t, []string{"a", "b"}, ids(view.Records()))

	records[0].Likes = 99
	assert.Equal(t, 0, view.Records()[0].Likes, "view must own its copy")
}

func TestThreads(t *testing.T) {
	view := NewView([]Record{
		{ID: "1", CreatedAt: at(3)},
		{ID: "2", CreatedAt: at(2), ParentID: "1"},
		{ID: "3", CreatedAt: at(1)},
	})

	threads := view.Threads(SortRecent)
	if assert.Len(t, threads, 2) {
		assert.Equal(t, "1", threads[0].ID)
		assert.Equal(t, []string{"2"}, ids(threads[0].Replies))
		assert.Equal(t, "3", threads[1].ID)
		assert.Empty(t, threads[1].Replies)
	}
}

func TestParseSort(t *testing.T) {
	tests := map[string]SortOption{
		"recent":  SortRecent,
		"rating":  SortRating,
		"replies": SortReplies,
		"":        SortRecent,
		"bogus":   SortRecent,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseSort(in), "ParseSort(%q)", in)
	}
}
