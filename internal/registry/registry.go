// Package registry holds the ordered in-memory view of assets that the UI
// renders. Newest assets come first. The registry is the writer of record for
// status transitions.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/maauso/mediagen/internal/asset"
)

var (
	// ErrNotFound is returned when an asset id is not in the registry.
	ErrNotFound = errors.New("registry: asset not found")
	// ErrDuplicateID is returned when prepending an id that already exists.
	ErrDuplicateID = errors.New("registry: duplicate asset id")
	// ErrTerminal is returned when mutating an asset that already reached a terminal status.
	ErrTerminal = errors.New("registry: asset is terminal")
)

// ChangeKind describes a registry mutation.
type ChangeKind string

const (
	// ChangeUpserted is emitted when an asset is added or updated.
	ChangeUpserted ChangeKind = "upserted"
	// ChangeRemoved is emitted when an asset is removed.
	ChangeRemoved ChangeKind = "removed"
)

// Change is one registry mutation delivered to subscribers.
type Change struct {
	Kind  ChangeKind  `json:"kind"`
	Asset asset.Asset `json:"asset"`
}

// Registry is a thread-safe ordered collection of assets.
type Registry struct {
	mu     sync.RWMutex
	order  []string
	assets map[string]asset.Asset

	subMu  sync.Mutex
	subs   map[int]chan Change
	nextID int
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		assets: make(map[string]asset.Asset),
		subs:   make(map[int]chan Change),
	}
}

// Sort orders assets by CreatedAt descending, breaking ties by id ascending.
func Sort(assets []asset.Asset) {
	sort.SliceStable(assets, func(i, j int) bool {
		if !assets[i].CreatedAt.Equal(assets[j].CreatedAt) {
			return assets[i].CreatedAt.After(assets[j].CreatedAt)
		}
		return assets[i].ID < assets[j].ID
	})
}

// Load merges assets into the registry and re-sorts the whole view newest
// first. Records already present win over loaded ones, as do earlier
// duplicates in assets.
func (r *Registry) Load(assets []asset.Asset) {
	var added []asset.Asset

	r.mu.Lock()
	for _, a := range assets {
		if _, ok := r.assets[a.ID]; ok {
			continue
		}
		r.assets[a.ID] = a
		added = append(added, a)
	}

	all := make([]asset.Asset, 0, len(r.assets))
	for _, a := range r.assets {
		all = append(all, a)
	}
	Sort(all)
	r.order = r.order[:0]
	for _, a := range all {
		r.order = append(r.order, a.ID)
	}
	r.mu.Unlock()

	for _, a := range added {
		r.publish(Change{Kind: ChangeUpserted, Asset: a})
	}
}

// Prepend inserts a at the front.
func (r *Registry) Prepend(a asset.Asset) error {
	r.mu.Lock()
	if _, ok := r.assets[a.ID]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateID, a.ID)
	}
	r.order = append([]string{a.ID}, r.order...)
	r.assets[a.ID] = a
	r.mu.Unlock()

	r.publish(Change{Kind: ChangeUpserted, Asset: a})
	return nil
}

// Update applies fn to a copy of the asset and stores the result when fn
// returns nil. Terminal assets are never mutated.
func (r *Registry) Update(id string, fn func(*asset.Asset) error) (asset.Asset, error) {
	r.mu.Lock()
	a, ok := r.assets[id]
	if !ok {
		r.mu.Unlock()
		return asset.Asset{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if a.IsTerminal() {
		r.mu.Unlock()
		return a, fmt.Errorf("%w: %s is %s", ErrTerminal, id, a.Status)
	}
	if err := fn(&a); err != nil {
		r.mu.Unlock()
		return asset.Asset{}, err
	}
	a.ID = id
	r.assets[id] = a
	r.mu.Unlock()

	r.publish(Change{Kind: ChangeUpserted, Asset: a})
	return a, nil
}

// Remove deletes the asset. Removing an unknown id is a no-op that returns false.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	a, ok := r.assets[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.assets, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.publish(Change{Kind: ChangeRemoved, Asset: a})
	return true
}

// Get returns a copy of the asset.
func (r *Registry) Get(id string) (asset.Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[id]
	return a, ok
}

// List returns assets in display order, filtered by media type unless mediaType is empty.
func (r *Registry) List(mediaType asset.MediaType) []asset.Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]asset.Asset, 0, len(r.order))
	for _, id := range r.order {
		a := r.assets[id]
		if mediaType != "" && a.MediaType != mediaType {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Len returns the number of assets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Subscribe returns a channel of changes and a cancel func that closes it.
// Delivery is best effort: a subscriber whose buffer is full misses changes
// rather than blocking writers.
func (r *Registry) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Change, buffer)

	r.subMu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = ch
	r.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.subMu.Lock()
			delete(r.subs, id)
			r.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (r *Registry) publish(c Change) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- c:
		default:
		}
	}
}
