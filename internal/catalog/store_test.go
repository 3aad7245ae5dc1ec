package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func res(id, name string) ResourceEntry {
	return ResourceEntry{Identifier: id, DisplayName: name}
}

// ============================================================================
// Merge Semantics
// ============================================================================

func TestMergeResources_Union(t *testing.T) {
	s := NewStore()
	s1 := s.MergeResources([]ResourceEntry{res("a", "A")})
	s2 := s1.MergeResources([]ResourceEntry{res("b", "B")})

	require.Equal(t, 2, s2.ResourceCount())
	a, ok := s2.Resource("a")
	require.True(t, ok)
	require.Equal(t, "A", a.DisplayName)
	_, ok = s2.Resource("b")
	require.True(t, ok)
}

func TestMergeResources_OverwritesWholeEntry(t *testing.T) {
	s := NewStore().MergeResources([]ResourceEntry{
		{Identifier: "a", DisplayName: "old", Description: "has description"},
	})
	s2 := s.MergeResources([]ResourceEntry{{Identifier: "a", DisplayName: "new"}})

	got, ok := s2.Resource("a")
	require.True(t, ok)
	require.Equal(t, "new", got.DisplayName)
	// Full replacement, not a field patch: the old description is gone.
	require.Empty(t, got.Description)
}

func TestMergeResources_DoesNotMutateReceiver(t *testing.T) {
	s1 := NewStore().MergeResources([]ResourceEntry{res("a", "A")})
	s2 := s1.MergeResources([]ResourceEntry{res("a", "changed"), res("b", "B")})

	require.NotSame(t, s1, s2)
	old, _ := s1.Resource("a")
	require.Equal(t, "A", old.DisplayName)
	require.Equal(t, 1, s1.ResourceCount())
	require.Equal(t, 2, s2.ResourceCount())
}

func TestMergeResources_EmptyMergeShortCircuits(t *testing.T) {
	s := NewStore().MergeResources([]ResourceEntry{res("a", "A")})
	require.Same(t, s, s.MergeResources(nil))
	require.Same(t, s, s.MergeResources([]ResourceEntry{}))
}

func TestMergeOrder_LastWriteWins(t *testing.T) {
	s := NewStore().MergeResources([]ResourceEntry{
		res("a", "first"),
		res("a", "second"),
	})
	got, _ := s.Resource("a")
	require.Equal(t, "second", got.DisplayName)
}

// ============================================================================
// Namespaces
// ============================================================================

func TestPromptsAndResourcesDoNotCollide(t *testing.T) {
	s := NewStore().
		MergeResources([]ResourceEntry{res("deploy", "Deploy Resource")}).
		MergePrompts([]PromptEntry{{Name: "deploy", Description: "deploy prompt"}})

	r, ok := s.Resource("deploy")
	require.True(t, ok)
	require.Equal(t, "Deploy Resource", r.DisplayName)

	p, ok := s.Prompt("deploy")
	require.True(t, ok)
	require.Equal(t, "deploy prompt", p.Description)
}

func TestLookupMissing(t *testing.T) {
	s := NewStore()
	_, ok := s.Resource("nope")
	require.False(t, ok)
	_, ok = s.Prompt("nope")
	require.False(t, ok)
}

func TestLabel_FallsBackToIdentifier(t *testing.T) {
	require.Equal(t, "Nice Name", ResourceEntry{Identifier: "x://y", DisplayName: "Nice Name"}.Label())
	require.Equal(t, "x://y", ResourceEntry{Identifier: "x://y"}.Label())
}

// ============================================================================
// Property-Based Tests
// ============================================================================

// TestProperty_MergeIsUnionWithLastWriteWins applies random merge sequences
// and checks the result against a plain map updated the same way.
func TestProperty_MergeIsUnionWithLastWriteWins(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := []string{"a://1", "b://2", "c://3", "d://4"}
		model := map[string]string{}
		s := NewStore()

		n := rapid.IntRange(0, 20).Draw(t, "n")
		for i := 0; i < n; i++ {
			batch := rapid.SliceOfN(rapid.SampledFrom(ids), 0, 3).Draw(t, "batch")
			entries := make([]ResourceEntry, 0, len(batch))
			for _, id := range batch {
				name := rapid.StringMatching(`[a-z]{1,6}`).Draw(t, "name")
				entries = append(entries, res(id, name))
				model[id] = name
			}
			s = s.MergeResources(entries)
		}

		if s.ResourceCount() != len(model) {
			t.Fatalf("store has %d entries, model has %d", s.ResourceCount(), len(model))
		}
		for id, name := range model {
			got, ok := s.Resource(id)
			if !ok || got.DisplayName != name {
				t.Fatalf("store[%s] = %+v, want name %q", id, got, name)
			}
		}
	})
}

// TestProperty_MergeNeverMutatesOldSnapshots keeps every intermediate
// snapshot and verifies none of them change as later merges happen.
func TestProperty_MergeNeverMutatesOldSnapshots(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewStore()
		type snapshot struct {
			store *Store
			count int
		}
		history := []snapshot{{s, 0}}

		n := rapid.IntRange(1, 10).Draw(t, "n")
		for i := 0; i < n; i++ {
			id := rapid.StringMatching(`[a-z]{1,4}://[a-z]{1,4}`).Draw(t, "id")
			s = s.MergeResources([]ResourceEntry{res(id, "v")})
			history = append(history, snapshot{s, s.ResourceCount()})
		}

		for i, snap := range history {
			if snap.store.ResourceCount() != snap.count {
				t.Fatalf("snapshot %d changed size after later merges", i)
			}
		}
	})
}
