package bag

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOverwritesInPlace(t *testing.T) {
	b := New[string]()
	b.Set("a", "1").Set("b", "2").Set("a", "3")

	assert.Equal(t, 2, b.Count())
	assert.Equal(t, []string{"a", "b"}, b.Keys())
	assert.Equal(t, "3", b.Get("a", ""))
}

func TestGetReturnsDefaultForMissingKey(t *testing.T) {
	b := New[int]()
	assert.Equal(t, 42, b.Get("missing", 42))
	assert.False(t, b.Has("missing"))

	var nilBag *Bag[int]
	assert.Equal(t, 7, nilBag.Get("x", 7))
	assert.Zero(t, nilBag.Count())
}

func TestUnsetIsIdempotent(t *testing.T) {
	b := New(Entry[string]{Key: "a", Value: "1"}, Entry[string]{Key: "b", Value: "2"})
	b.Unset("a").Unset("a").Unset("nope")

	assert.Equal(t, []string{"b"}, b.Keys())
	assert.Equal(t, 1, b.Count())
}

func TestFillReplacesContents(t *testing.T) {
	b := New(Entry[string]{Key: "old", Value: "x"})
	b.Fill(Entry[string]{Key: "new", Value: "y"}, Entry[string]{Key: "other", Value: "z"})

	assert.False(t, b.Has("old"))
	assert.Equal(t, []string{"new", "other"}, b.Keys())
}

func TestSetAllAndUnsetAll(t *testing.T) {
	b := New[int]()
	b.SetAll(Entry[int]{Key: "a", Value: 1}, Entry[int]{Key: "b", Value: 2}, Entry[int]{Key: "c", Value: 3})
	b.UnsetAll("a", "c")

	assert.Equal(t, map[string]int{"b": 2}, b.All())
}

func TestIterateFollowsInsertionOrderAndRestarts(t *testing.T) {
	b := New[int]()
	b.Set("z", 1).Set("a", 2).Set("m", 3)

	collect := func() []string {
		var keys []string
		for k := range b.Iterate() {
			keys = append(keys, k)
		}
		return keys
	}

	first := collect()
	second := collect()
	assert.Equal(t, []string{"z", "a", "m"}, first)
	assert.Equal(t, first, second)
}

func TestIterateWorksOnSnapshot(t *testing.T) {
	b := New[int]()
	b.Set("a", 1).Set("b", 2)

	seq := b.Iterate()
	b.Set("c", 3)

	n := 0
	for range seq {
		n++
	}
	assert.Equal(t, 2, n)
}

func TestIterateStopsEarly(t *testing.T) {
	b := New[int]()
	b.Set("a", 1).Set("b", 2).Set("c", 3)

	var seen []string
	for k := range b.Iterate() {
		seen = append(seen, k)
		if k == "b" {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestFromMapSortsKeys(t *testing.T) {
	b := FromMap(map[string]string{"b": "2", "a": "1", "c": "3"})
	assert.Equal(t, []string{"a", "b", "c"}, b.Keys())
}

func TestCloneIsIndependent(t *testing.T) {
	b := New[string]()
	b.Set("a", "1")
	c := b.Clone()
	c.Set("b", "2")

	assert.Equal(t, 1, b.Count())
	assert.Equal(t, 2, c.Count())
}

func TestLastWriteWinsAgainstModel(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	b := New[int]()
	model := map[string]int{}

	for i := 0; i < 2000; i++ {
		key := strconv.Itoa(rng.Intn(20))
		if rng.Intn(3) == 0 {
			b.Unset(key)
			delete(model, key)
			continue
		}
		b.Set(key, i)
		model[key] = i
	}

	require.Equal(t, len(model), b.Count())
	for k, v := range model {
		got, ok := b.Lookup(k)
		require.True(t, ok, "key %s missing", k)
		require.Equal(t, v, got)
	}
	require.Len(t, b.Keys(), len(model))
}
