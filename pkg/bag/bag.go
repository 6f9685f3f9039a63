// Package bag provides an insertion-ordered, string-keyed container.
package bag

import (
	"iter"
	"sort"
)

// Entry is a single key/value pair held by a Bag.
type Entry[V any] struct {
	Key   string
	Value V
}

// Bag is an ordered map. Iteration follows insertion order; overwriting a key
// keeps its original position.
type Bag[V any] struct {
	keys   []string
	values map[string]V
}

// New creates a Bag seeded with the given entries.
func New[V any](entries ...Entry[V]) *Bag[V] {
	b := &Bag[V]{values: make(map[string]V, len(entries))}
	return b.SetAll(entries...)
}

// FromMap builds a Bag from a plain map. Keys are sorted so the resulting order is stable.
func FromMap[V any](m map[string]V) *Bag[V] {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := &Bag[V]{keys: keys, values: make(map[string]V, len(m))}
	for _, k := range keys {
		b.values[k] = m[k]
	}
	return b
}

// Set stores value under key.
func (b *Bag[V]) Set(key string, value V) *Bag[V] {
	if b.values == nil {
		b.values = make(map[string]V)
	}
	if _, ok := b.values[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.values[key] = value
	return b
}

// SetAll merges entries into the bag.
func (b *Bag[V]) SetAll(entries ...Entry[V]) *Bag[V] {
	for _, e := range entries {
		b.Set(e.Key, e.Value)
	}
	return b
}

// Unset removes key. Removing a missing key is a no-op.
func (b *Bag[V]) Unset(key string) *Bag[V] {
	if _, ok := b.values[key]; !ok {
		return b
	}
	delete(b.values, key)
	for i, k := range b.keys {
		if k == key {
			b.keys = append(b.keys[:i:i], b.keys[i+1:]...)
			break
		}
	}
	return b
}

// UnsetAll removes every listed key.
func (b *Bag[V]) UnsetAll(keys ...string) *Bag[V] {
	for _, k := range keys {
		b.Unset(k)
	}
	return b
}

// Fill replaces the whole content of the bag with entries.
func (b *Bag[V]) Fill(entries ...Entry[V]) *Bag[V] {
	b.keys = nil
	b.values = make(map[string]V, len(entries))
	return b.SetAll(entries...)
}

// Get returns the value stored under key, or def when key is absent.
func (b *Bag[V]) Get(key string, def V) V {
	if v, ok := b.Lookup(key); ok {
		return v
	}
	return def
}

// Lookup returns the value stored under key and whether it was present.
func (b *Bag[V]) Lookup(key string) (V, bool) {
	if b == nil {
		var zero V
		return zero, false
	}
	v, ok := b.values[key]
	return v, ok
}

// Has reports whether key is present.
func (b *Bag[V]) Has(key string) bool {
	_, ok := b.Lookup(key)
	return ok
}

// Count returns the number of distinct keys.
func (b *Bag[V]) Count() int {
	if b == nil {
		return 0
	}
	return len(b.keys)
}

// Keys returns the keys in insertion order.
func (b *Bag[V]) Keys() []string {
	if b == nil {
		return nil
	}
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

// All returns a snapshot of the content as a plain map.
func (b *Bag[V]) All() map[string]V {
	if b == nil {
		return map[string]V{}
	}
	out := make(map[string]V, len(b.values))
	for k, v := range b.values {
		out[k] = v
	}
	return out
}

// Entries returns an ordered snapshot of the content.
func (b *Bag[V]) Entries() []Entry[V] {
	if b == nil {
		return nil
	}
	out := make([]Entry[V], 0, len(b.keys))
	for _, k := range b.keys {
		out = append(out, Entry[V]{Key: k, Value: b.values[k]})
	}
	return out
}

// Values returns the values in insertion order.
func (b *Bag[V]) Values() []V {
	if b == nil {
		return nil
	}
	out := make([]V, 0, len(b.keys))
	for _, k := range b.keys {
		out = append(out, b.values[k])
	}
	return out
}

// Iterate yields key/value pairs in insertion order. Every call walks a fresh
// snapshot, so mutating the bag while iterating does not affect the sequence.
func (b *Bag[V]) Iterate() iter.Seq2[string, V] {
	entries := b.Entries()
	return func(yield func(string, V) bool) {
		for _, e := range entries {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Clone returns an independent copy.
func (b *Bag[V]) Clone() *Bag[V] {
	return New(b.Entries()...)
}
