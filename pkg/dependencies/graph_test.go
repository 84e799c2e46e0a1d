package dependencies

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndGet(t *testing.T) {
	g := NewGraph()
	g.Add("metrics", "1.2.0", []Reference{{ID: "core", Range: ">=1.0.0"}})

	node, ok := g.Get("metrics")
	require.True(t, ok)
	assert.Equal(t, "metrics", node.ID)
	assert.Equal(t, "1.2.0", node.Version)
	require.Len(t, node.Dependencies, 1)
	assert.Equal(t, "core", node.Dependencies[0].ID)

	_, ok = g.Get("missing")
	assert.False(t, ok)
}

func TestAddReplacesPreviousVersion(t *testing.T) {
	g := NewGraph()
	g.Add("metrics", "1.0.0", []Reference{{ID: "core"}})
	g.Add("metrics", "2.0.0", nil)

	node, ok := g.Get("metrics")
	require.True(t, ok)
	assert.Equal(t, "2.0.0", node.Version)
	assert.Empty(t, node.Dependencies)
	assert.Empty(t, g.Dependents("core"))
}

func TestDependents(t *testing.T) {
	g := NewGraph()
	g.Add("core", "1.0.0", nil)
	g.Add("metrics", "1.0.0", []Reference{{ID: "core"}})
	g.Add("alerts", "1.0.0", []Reference{{ID: "metrics"}})

	assert.Equal(t, []string{"metrics"}, g.Dependents("core"))
	assert.Equal(t, []string{"alerts"}, g.Dependents("metrics"))
	assert.Empty(t, g.Dependents("alerts"))
}

func TestTransitiveDependents(t *testing.T) {
	g := NewGraph()
	g.Add("core", "1.0.0", nil)
	g.Add("metrics", "1.0.0", []Reference{{ID: "core"}})
	g.Add("alerts", "1.0.0", []Reference{{ID: "metrics"}})
	g.Add("standalone", "1.0.0", nil)

	assert.Equal(t, []string{"alerts", "metrics"}, g.TransitiveDependents("core"))
	assert.Empty(t, g.TransitiveDependents("standalone"))
}

func TestImpactOf(t *testing.T) {
	g := NewGraph()
	g.Add("core", "1.0.0", nil)
	g.Add("metrics", "1.0.0", []Reference{{ID: "core"}})
	g.Add("alerts", "1.0.0", []Reference{{ID: "metrics"}})

	impact := g.ImpactOf("core")
	assert.Equal(t, "core", impact.ID)
	assert.Equal(t, []string{"metrics"}, impact.DirectDependents)
	assert.Equal(t, []string{"alerts", "metrics"}, impact.TransitiveDependents)
	assert.Equal(t, 2, impact.Total)
}

func TestRemove(t *testing.T) {
	g := NewGraph()
	g.Add("core", "1.0.0", nil)
	g.Add("metrics", "1.0.0", []Reference{{ID: "core"}})

	g.Remove("metrics")
	assert.Empty(t, g.Dependents("core"))
	assert.Equal(t, 1, g.Len())
}

func TestUnloadOrder(t *testing.T) {
	g := NewGraph()
	g.Add("core", "1.0.0", nil)
	g.Add("metrics", "1.0.0", []Reference{{ID: "core"}})
	g.Add("alerts", "1.0.0", []Reference{{ID: "metrics"}, {ID: "core"}})
	g.Add("standalone", "1.0.0", nil)

	order, err := g.UnloadOrder()
	require.NoError(t, err)
	require.Len(t, order, 4)

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	assert.Less(t, pos["alerts"], pos["metrics"])
	assert.Less(t, pos["metrics"], pos["core"])
	assert.Less(t, pos["alerts"], pos["core"])
}

func TestUnloadOrderDetectsCycle(t *testing.T) {
	g := NewGraph()
	g.Add("a", "1.0.0", []Reference{{ID: "b"}})
	g.Add("b", "1.0.0", []Reference{{ID: "a"}})

	_, err := g.UnloadOrder()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestUnloadOrderSkipsDanglingEdges(t *testing.T) {
	g := NewGraph()
	g.Add("metrics", "1.0.0", []Reference{{ID: "core"}})

	order, err := g.UnloadOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"metrics"}, order)
}

func TestConcurrentAccess(t *testing.T) {
	g := NewGraph()
	g.Add("core", "1.0.0", nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			g.Add(id, "1.0.0", []Reference{{ID: "core"}})
			g.Dependents("core")
			g.ImpactOf("core")
			g.Remove(id)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, g.Len())
}
