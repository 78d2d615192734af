package registry

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsert_rankingScenario(t *testing.T) {
	r := New(2)
	require.True(t, r.Insert("CCTV1", "a", Unknown))
	require.True(t, r.Insert("CCTV1", "b", 120))
	require.True(t, r.Insert("CCTV1", "c", 80))
	assert.Equal(t, []string{"c", "b"}, r.TopK("CCTV1"))

	r = New(5)
	r.Insert("CCTV1", "a", Unknown)
	r.Insert("CCTV1", "b", 120)
	r.Insert("CCTV1", "c", 80)
	assert.Equal(t, []Candidate{{"c", 80}, {"b", 120}, {"a", Unknown}}, r.Entries("CCTV1"))
}

func TestInsert_atCapacityRequiresStrictlyBetter(t *testing.T) {
	r := New(2)
	r.Insert("x", "u1", 100)
	r.Insert("x", "u2", 200)
	assert.False(t, r.Insert("x", "u3", 200), "tie with worst must not evict")
	assert.False(t, r.Insert("x", "u4", Unknown))
	assert.True(t, r.Insert("x", "u5", 150))
	assert.Equal(t, []string{"u1", "u5"}, r.TopK("x"))
}

func TestInsert_stableTies(t *testing.T) {
	r := New(5)
	r.Insert("x", "first", 50)
	r.Insert("x", "unk1", Unknown)
	r.Insert("x", "second", 50)
	r.Insert("x", "unk2", Unknown)
	r.Insert("x", "zero", 0)
	assert.Equal(t, []string{"zero", "first", "second", "unk1", "unk2"}, r.TopK("x"))
}

func TestInsert_NaNIsUnknown(t *testing.T) {
	r := New(3)
	r.Insert("x", "n", Latency(math.NaN()))
	r.Insert("x", "m", 10)
	e := r.Entries("x")
	require.Len(t, e, 2)
	assert.Equal(t, "m", e[0].URL)
	assert.True(t, e[1].Latency.IsUnknown())
}

func TestInsert_boundedAndSorted(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	r := New(DefaultK)
	for i := 0; i < 500; i++ {
		name := fmt.Sprintf("ch%d", rng.Intn(7))
		lat := Latency(rng.Intn(300))
		if rng.Intn(4) == 0 {
			lat = Unknown
		}
		r.Insert(name, fmt.Sprintf("http://h/%d", i), lat)
	}
	for _, name := range r.Names() {
		e := r.Entries(name)
		require.LessOrEqual(t, len(e), DefaultK)
		require.True(t, sort.SliceIsSorted(e, func(i, j int) bool { return e[i].Latency < e[j].Latency }), "%s not sorted: %v", name, e)
	}
}

func TestNames_firstInsertionOrder(t *testing.T) {
	r := New(1)
	r.Insert("b", "1", 10)
	r.Insert("a", "2", 10)
	r.Insert("b", "3", 5)
	r.Insert("c", "4", Unknown)
	assert.Equal(t, []string{"b", "a", "c"}, r.Names())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 3, r.Retained())
	assert.Nil(t, r.TopK("missing"))
}

func TestLatency_String(t *testing.T) {
	assert.Equal(t, "unknown", Unknown.String())
	assert.Equal(t, "12.5ms", Latency(12.5).String())
	assert.Equal(t, DefaultK, New(0).K())
}
