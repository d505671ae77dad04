package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/scrypster/memento-engine/pkg/types"
)

func TestMergeIsIdempotent(t *testing.T) {
	a := "User likes tea. User works at Acme."
	b := "User works at Acme. User prefers dark mode."

	once := Merge(a, b)
	twice := Merge(once, b)

	assert.Equal(t, once, twice)
}

func TestMergeKeepsOrderAndDropsDuplicates(t *testing.T) {
	merged := Merge("User likes tea.", "User likes tea. User likes coffee.")
	assert.Equal(t, "User likes tea. User likes coffee.", merged)
}

func TestCheckSuppressesWithinWindow(t *testing.T) {
	now := time.Now()
	existing := types.NewMemory("mem:1", types.NewTextContent("User likes tea"), nil)
	existing.Metadata.CreatedAt = now.Add(-time.Minute)

	newMem := types.NewMemory("mem:2", types.NewTextContent("User likes tea"), nil)
	newMem.Metadata.CreatedAt = now

	cfg := DefaultConfig()
	cfg.EnableIntelligentMerge = false
	d := New(cfg)

	embeddings := map[types.MemoryId][]float32{"mem:1": {1, 0}}
	outcome := d.Check(newMem, []float32{1, 0}, []*types.Memory{existing}, embeddings)

	assert.Equal(t, "suppress", outcome.Action)
	assert.Equal(t, types.MemoryId("mem:1"), outcome.ExistingID)
}

func TestCheckMergesWhenIntelligentMergeEnabled(t *testing.T) {
	now := time.Now()
	existing := types.NewMemory("mem:1", types.NewTextContent("User likes tea."), nil)
	existing.Metadata.CreatedAt = now.Add(-time.Minute)

	newMem := types.NewMemory("mem:2", types.NewTextContent("User likes tea. User likes biscuits."), nil)
	newMem.Metadata.CreatedAt = now

	d := New(DefaultConfig())
	embeddings := map[types.MemoryId][]float32{"mem:1": {1, 0}}
	outcome := d.Check(newMem, []float32{1, 0}, []*types.Memory{existing}, embeddings)

	assert.Equal(t, "merge", outcome.Action)
	assert.Contains(t, outcome.MergedContent, "biscuits")
}

func TestCheckKeepsOutsideWindow(t *testing.T) {
	now := time.Now()
	existing := types.NewMemory("mem:1", types.NewTextContent("User likes tea"), nil)
	existing.Metadata.CreatedAt = now.Add(-48 * time.Hour)

	newMem := types.NewMemory("mem:2", types.NewTextContent("User likes tea"), nil)
	newMem.Metadata.CreatedAt = now

	cfg := DefaultConfig()
	cfg.TimeWindow = time.Hour
	d := New(cfg)

	embeddings := map[types.MemoryId][]float32{"mem:1": {1, 0}}
	outcome := d.Check(newMem, []float32{1, 0}, []*types.Memory{existing}, embeddings)

	assert.Equal(t, "keep", outcome.Action)
}
