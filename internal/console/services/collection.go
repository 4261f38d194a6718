package services

import (
	"github.com/dmitrijs2005/matchdesk/internal/console/models"
)

// collection is one cached resource. source is what readers see and always
// wraps either remote, the last snapshot the API returned, or fallback, the
// bundled copy. overlay holds records created on this client that the API
// has never seen.
type collection[T models.Record[T]] struct {
	source   models.DataSource[T]
	remote   []T
	fallback []T
	overlay  []T

	ordinals map[string]int
	next     int
	gen      uint64
}

func newCollection[T models.Record[T]](fallback []T) *collection[T] {
	c := &collection[T]{ordinals: make(map[string]int)}
	c.fallback = c.assign(fallback)
	c.source = models.Fallback(c.fallback)
	return c
}

// assign stamps each record with its ordinal. Ordinals are handed out once
// per key and never reused.
func (c *collection[T]) assign(items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		id, ok := c.ordinals[item.Key()]
		if !ok {
			c.next++
			id = c.next
			c.ordinals[item.Key()] = id
		}
		out[i] = item.WithLocalID(id)
	}
	return out
}

// setRemote installs a fresh API snapshot unless a newer refresh already
// wrote this resource.
func (c *collection[T]) setRemote(items []T, gen uint64) bool {
	if gen <= c.gen {
		return false
	}
	c.gen = gen
	c.remote = c.assign(items)
	c.source = models.Remote(c.remote)
	return true
}

func (c *collection[T]) useFallback() {
	c.source = models.Fallback(c.fallback)
}

// reset drops the remote snapshot and the overlay. Refreshes started at or
// before generation floor can no longer write this collection.
func (c *collection[T]) reset(floor uint64) {
	c.remote = nil
	c.overlay = nil
	if floor > c.gen {
		c.gen = floor
	}
	c.useFallback()
}

// sourceFor returns the current source, or the other variant when kind
// names it.
func (c *collection[T]) sourceFor(kind models.SourceKind) models.DataSource[T] {
	switch {
	case kind == c.source.Kind():
		return c.source
	case kind == models.SourceRemote:
		return models.Remote(c.remote)
	default:
		return models.Fallback(c.fallback)
	}
}

// view returns the records of src visible to owner plus the owner's local
// overlay. Remote snapshots are already scoped to the signed-in user by the
// API.
func (c *collection[T]) view(owner string, src models.DataSource[T]) []T {
	items := src.Items()
	out := items[:0]
	for _, item := range items {
		if src.IsRemote() || item.Owner() == owner {
			out = append(out, item)
		}
	}
	for _, item := range c.overlay {
		if item.Owner() == owner {
			out = append(out, item)
		}
	}
	return out
}

func (c *collection[T]) find(owner string, src models.DataSource[T], ordinal int) (T, bool) {
	for _, item := range c.view(owner, src) {
		if c.ordinals[item.Key()] == ordinal {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (c *collection[T]) add(item T) T {
	item = c.assign([]T{item})[0]
	overlay := make([]T, 0, len(c.overlay)+1)
	overlay = append(overlay, c.overlay...)
	c.overlay = append(overlay, item)
	return item
}

// overlayIndex locates a local-only record by ordinal. A known ordinal
// outside the overlay belongs to a mirrored record.
func (c *collection[T]) overlayIndex(ordinal int) (int, error) {
	for i, item := range c.overlay {
		if c.ordinals[item.Key()] == ordinal {
			return i, nil
		}
	}
	for _, id := range c.ordinals {
		if id == ordinal {
			return -1, ErrRemoteOrigin
		}
	}
	return -1, ErrNotFound
}

func (c *collection[T]) update(ordinal int, fn func(T) T) (T, error) {
	var zero T
	i, err := c.overlayIndex(ordinal)
	if err != nil {
		return zero, err
	}
	key := c.overlay[i].Key()
	updated := fn(c.overlay[i])
	if updated.Key() != key {
		return zero, ErrRemoteOrigin
	}
	overlay := make([]T, len(c.overlay))
	copy(overlay, c.overlay)
	overlay[i] = updated.WithLocalID(ordinal)
	c.overlay = overlay
	return overlay[i], nil
}

func (c *collection[T]) remove(ordinal int) error {
	i, err := c.overlayIndex(ordinal)
	if err != nil {
		return err
	}
	overlay := make([]T, 0, len(c.overlay)-1)
	overlay = append(overlay, c.overlay[:i]...)
	c.overlay = append(overlay, c.overlay[i+1:]...)
	return nil
}

// replace rewrites matching records in every copy the collection holds.
// Each touched slice is replaced, never edited in place.
func (c *collection[T]) replace(fn func(T) (T, bool)) int {
	n := 0
	rewrite := func(items []T) []T {
		var out []T
		for i, item := range items {
			updated, ok := fn(item)
			if !ok {
				continue
			}
			if out == nil {
				out = make([]T, len(items))
				copy(out, items)
			}
			out[i] = updated
			n++
		}
		if out == nil {
			return items
		}
		return out
	}

	c.remote = rewrite(c.remote)
	c.fallback = rewrite(c.fallback)
	c.overlay = rewrite(c.overlay)
	if c.source.IsRemote() {
		c.source = models.Remote(c.remote)
	} else {
		c.source = models.Fallback(c.fallback)
	}
	return n
}
