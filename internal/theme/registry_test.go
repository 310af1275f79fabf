package theme

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type style struct {
	Width int
}

func TestRegistry_RuleIsOrderIndependent(t *testing.T) {
	r := NewRegistry[string, style]()

	a := r.Rule("rsi", "dark", "compact")
	a.Width = 3
	b := r.Rule("rsi", "compact", "dark")

	assert.Same(t, a, b)
	assert.Equal(t, 3, b.Width)
	assert.Equal(t, 1, r.Len("rsi"))
}

func TestRegistry_SortedBySpecificity(t *testing.T) {
	r := NewRegistry[string, style]()
	r.Rule("cci", "b", "c")
	r.Rule("cci", "z")
	r.Rule("cci")
	r.Rule("cci", "a")
	r.Rule("cci", "a", "b", "c")
	r.Rule("cci", "a", "c")

	var got [][]string
	for _, rec := range r.Rules("cci") {
		got = append(got, rec.Tags)
	}

	assert.Equal(t, [][]string{
		{},
		{"a"},
		{"z"},
		{"a", "c"},
		{"b", "c"},
		{"a", "b", "c"},
	}, got)
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry[string, style]()
	r.Rule("smi", "dark").Width = 2

	tmpl, ok := r.Lookup("smi", "dark")
	require.True(t, ok)
	assert.Equal(t, 2, tmpl.Width)

	_, ok = r.Lookup("smi", "light")
	assert.False(t, ok)
	_, ok = r.Lookup("rsi", "dark")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len("smi"))
}

func TestRegistry_Match(t *testing.T) {
	r := NewRegistry[string, style]()
	r.Rule("rsi").Width = 1
	r.Rule("rsi", "dark").Width = 2
	r.Rule("rsi", "dark", "compact").Width = 3
	r.Rule("rsi", "print").Width = 4
	r.Rule("cci", "dark").Width = 5

	tests := []struct {
		name string
		tags []string
		want []int
	}{
		{"no tags", nil, []int{1}},
		{"one tag", []string{"dark"}, []int{1, 2}},
		{"least specific first", []string{"compact", "dark"}, []int{1, 2, 3}},
		{"disjoint", []string{"print", "compact"}, []int{1, 4}},
		{"unknown tag", []string{"mobile"}, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int
			for _, tmpl := range r.Match("rsi", tt.tags...) {
				got = append(got, tmpl.Width)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Empty(t, r.Match("williams_r", "dark"))
}

func TestRegistry_RulesReturnsCopy(t *testing.T) {
	r := NewRegistry[string, style]()
	r.Rule("rsi", "a", "b")

	recs := r.Rules("rsi")
	recs[0].Tags[0] = "mutated"

	_, ok := r.Lookup("rsi", "a", "b")
	assert.True(t, ok)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry[int, style]()
	tags := []string{"a", "b", "c", "d"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Rule(j%3, tags[:j%len(tags)]...)
				r.Match(j%3, tags...)
			}
		}(i)
	}
	wg.Wait()

	for class := 0; class < 3; class++ {
		assert.LessOrEqual(t, r.Len(class), len(tags))
	}
}
