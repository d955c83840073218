// Package feed turns flat message records into a sorted two-level thread view
// and manages locally tracked likes with optimistic updates.
package feed

import (
	"slices"
	"time"
)

// Record is a single board entry. A record with a ParentID is a reply and is
// never listed at the top level.
type Record struct {
	ID        string
	CreatedAt time.Time
	Body      string
	Author    string
	ParentID  string
	Likes     int
}

// IsReply reports whether the record answers another record.
func (r Record) IsReply() bool {
	return r.ParentID != ""
}

// SortOption selects the ordering of top-level records.
type SortOption string

const (
	SortRecent  SortOption = "recent"
	SortRating  SortOption = "rating"
	SortReplies SortOption = "replies"
)

// ParseSort maps a query value to a SortOption, defaulting to SortRecent.
func ParseSort(s string) SortOption {
	switch SortOption(s) {
	case SortRating:
		return SortRating
	case SortReplies:
		return SortReplies
	default:
		return SortRecent
	}
}

// Thread is a top-level record with its replies.
type Thread struct {
	Record
	Replies []Record
}

// View projects a canonical, order-irrelevant record set. Every projection is
// recomputed from the canonical set and never mutates it.
type View struct {
	records []Record
}

// NewView creates a view over a copy of records.
func NewView(records []Record) *View {
	return &View{records: slices.Clone(records)}
}

// Records returns a copy of the canonical record set.
func (v *View) Records() []Record {
	return slices.Clone(v.records)
}

// Len returns the number of records, replies included.
func (v *View) Len() int {
	return len(v.records)
}

// RepliesOf returns the replies to parentID in canonical order.
func (v *View) RepliesOf(parentID string) []Record {
	var replies []Record
	for _, r := range v.records {
		if r.ParentID == parentID && r.IsReply() {
			replies = append(replies, r)
		}
	}
	return replies
}

// TopLevel returns the records without a parent ordered by sort. Rating and
// reply ordering are stable, so ties keep their canonical relative order.
func (v *View) TopLevel(sort SortOption) []Record {
	var top []Record
	for _, r := range v.records {
		if !r.IsReply() {
			top = append(top, r)
		}
	}

	switch sort {
	case SortRating:
		slices.SortStableFunc(top, func(a, b Record) int {
			return b.Likes - a.Likes
		})
	case SortReplies:
		counts := make(map[string]int, len(top))
		for _, r := range top {
			counts[r.ID] = len(v.RepliesOf(r.ID))
		}
		slices.SortStableFunc(top, func(a, b Record) int {
			return counts[b.ID] - counts[a.ID]
		})
	default:
		slices.SortStableFunc(top, func(a, b Record) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}
	return top
}

// Threads returns the sorted top-level records, each with its replies.
func (v *View) Threads(sort SortOption) []Thread {
	top := v.TopLevel(sort)
	threads := make([]Thread, len(top))
	for i, r := range top {
		threads[i] = Thread{Record: r, Replies: v.RepliesOf(r.ID)}
	}
	return threads
}

// find returns the index of id in the canonical set or -1.
func (v *View) find(id string) int {
	return slices.IndexFunc(v.records, func(r Record) bool { return r.ID == id })
}
