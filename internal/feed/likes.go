package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrRecordNotFound is returned when a like targets an unknown record.
	ErrRecordNotFound = errors.New("record not found")

	// ErrUpdateConflict is returned when the shared counter update is rejected.
	// The local count and membership have been rolled back when it is returned.
	ErrUpdateConflict = errors.New("like update rejected")
)

// KV is the local durable key/value storage holding the liked-id set.
type KV interface {
	Get(key string) (string, bool, error)
	// Update replaces the value under key with fn's result as one atomic
	// read-modify-write. found is false when the key is absent.
	Update(key string, fn func(value string, found bool) (string, error)) error
}

// CounterUpdater writes a record's shared like counter to the external store.
type CounterUpdater interface {
	SetLikes(ctx context.Context, id string, count int) error
}

// LikeResult is the state of a record after a successful toggle.
type LikeResult struct {
	ID    string
	Liked bool
	Likes int
}

// ViewModel combines a View with the locally tracked like membership.
// Membership is advisory: it only stops this client from double-toggling,
// it does not prevent other clients from changing the shared counter.
type ViewModel struct {
	*View

	kv      KV
	key     string
	counter CounterUpdater
	liked   map[string]struct{}
}

// NewViewModel creates a view model and rehydrates the liked set stored under key.
func NewViewModel(records []Record, kv KV, key string, counter CounterUpdater) (*ViewModel, error) {
	vm := &ViewModel{
		View:    NewView(records),
		kv:      kv,
		key:     key,
		counter: counter,
	}

	raw, ok, err := kv.Get(key)
	if err != nil {
		return nil, fmt.Errorf("loading liked set: %w", err)
	}
	if vm.liked, err = decodeLiked(raw, ok); err != nil {
		return nil, err
	}

	return vm, nil
}

// Liked reports whether this client has liked id.
func (vm *ViewModel) Liked(id string) bool {
	_, ok := vm.liked[id]
	return ok
}

// LikedIDs returns the liked set in sorted order.
func (vm *ViewModel) LikedIDs() []string {
	return sortedIDs(vm.liked)
}

// ToggleLike flips this client's like on id. The new count and membership are
// applied and persisted locally before the shared counter is written; if that
// write fails both are restored and an error wrapping ErrUpdateConflict is returned.
//
// Two toggles on the same record racing their network writes are not
// serialized; the last write to reach the store wins.
func (vm *ViewModel) ToggleLike(ctx context.Context, id string) (LikeResult, error) {
	idx := vm.find(id)
	if idx < 0 {
		return LikeResult{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	prevCount := vm.records[idx].Likes
	wasLiked := vm.Liked(id)

	newCount := prevCount + 1
	if wasLiked {
		newCount = max(prevCount-1, 0)
	}

	vm.apply(idx, id, newCount, !wasLiked)
	if err := vm.persist(id, !wasLiked); err != nil {
		vm.apply(idx, id, prevCount, wasLiked)
		return LikeResult{}, fmt.Errorf("saving liked set: %w", err)
	}

	if err := vm.counter.SetLikes(ctx, id, newCount); err != nil {
		vm.apply(idx, id, prevCount, wasLiked)
		if perr := vm.persist(id, wasLiked); perr != nil {
			return LikeResult{}, errors.Join(fmt.Errorf("%w: %w", ErrUpdateConflict, err), fmt.Errorf("restoring liked set: %w", perr))
		}
		return LikeResult{}, fmt.Errorf("%w: %w", ErrUpdateConflict, err)
	}

	return LikeResult{ID: id, Liked: !wasLiked, Likes: newCount}, nil
}

// apply sets the in-memory count and membership for the record at idx.
func (vm *ViewModel) apply(idx int, id string, count int, liked bool) {
	vm.records[idx].Likes = count
	if liked {
		vm.liked[id] = struct{}{}
	} else {
		delete(vm.liked, id)
	}
}

// persist adds or removes id in the stored set. Only this one id changes, so
// toggles from other view models over the same key are kept. The in-memory set
// then adopts what was written.
func (vm *ViewModel) persist(id string, liked bool) error {
	var written map[string]struct{}
	err := vm.kv.Update(vm.key, func(raw string, found bool) (string, error) {
		set, err := decodeLiked(raw, found)
		if err != nil {
			return "", err
		}
		if liked {
			set[id] = struct{}{}
		} else {
			delete(set, id)
		}
		data, err := json.Marshal(sortedIDs(set))
		if err != nil {
			return "", err
		}
		written = set
		return string(data), nil
	})
	if err != nil {
		return err
	}
	vm.liked = written
	return nil
}

// decodeLiked parses a stored JSON array of ids. An absent or empty value is
// the empty set.
func decodeLiked(raw string, found bool) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	if !found || raw == "" {
		return set, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("parsing liked set: %w", err)
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func sortedIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
