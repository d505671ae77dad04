package agents

import (
	"context"
	"testing"
	"time"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/internal/storage/memstore"
	"github.com/scrypster/memento-engine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoreAgentBlockLifecycle(t *testing.T) {
	store := memstore.New()
	a := NewCoreAgent("core-1", store.TypedStore("Core"), 10)
	ctx := context.Background()
	require.NoError(t, a.Initialize(ctx))

	created := a.ExecuteTask(ctx, Task{TaskID: "t1", Operation: "create_block", Parameters: map[string]interface{}{
		"content": "I am a helpful assistant.",
		"persona": "default",
	}})
	require.True(t, created.Success)
	block := created.Data.(*types.Memory)

	read := a.ExecuteTask(ctx, Task{TaskID: "t2", Operation: "read_block", Parameters: map[string]interface{}{
		"id": string(block.ID),
	}})
	require.True(t, read.Success)

	updated := a.ExecuteTask(ctx, Task{TaskID: "t3", Operation: "update_block", Parameters: map[string]interface{}{
		"id":      string(block.ID),
		"content": "I am a careful assistant.",
	}})
	require.True(t, updated.Success)

	compiled := a.ExecuteTask(ctx, Task{TaskID: "t4", Operation: "compile"})
	require.True(t, compiled.Success)
	assert.Contains(t, compiled.Data.(string), "careful")

	deleted := a.ExecuteTask(ctx, Task{TaskID: "t5", Operation: "delete_block", Parameters: map[string]interface{}{
		"id": string(block.ID),
	}})
	require.True(t, deleted.Success)

	unknown := a.ExecuteTask(ctx, Task{TaskID: "t6", Operation: "bogus"})
	assert.False(t, unknown.Success)
}

func TestAgentRejectsBeyondMaxConcurrentTasks(t *testing.T) {
	store := memstore.New()
	a := NewCoreAgent("core-1", store.TypedStore("Core"), 1)
	ctx := context.Background()

	done := make(chan struct{})
	started := make(chan struct{})
	go func() {
		a.runTask(ctx, Task{TaskID: "slow"}, func(ctx context.Context) (interface{}, error) {
			close(started)
			<-done
			return nil, nil
		})
	}()
	<-started

	resp := a.ExecuteTask(ctx, Task{TaskID: "overflow", Operation: "compile"})
	assert.False(t, resp.Success)
	assert.Equal(t, ErrOverloaded.Error(), resp.Error)
	close(done)
}

func TestAgentMockResponseWhenStoreNil(t *testing.T) {
	a := NewCoreAgent("core-mock", nil, 10)
	resp := a.ExecuteTask(context.Background(), Task{TaskID: "t1", Operation: "compile"})
	require.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["mock"])
}

func TestEpisodicAgentTimeRangeQuery(t *testing.T) {
	store := memstore.New()
	a := NewEpisodicAgent("ep-1", store.TypedStore("Episodic"), 10)
	ctx := context.Background()

	resp := a.ExecuteTask(ctx, Task{TaskID: "t1", Operation: "insert", Parameters: map[string]interface{}{
		"content":          "deployed v2",
		"importance_score": 0.8,
	}})
	require.True(t, resp.Success)

	now := time.Now().UTC()
	queried := a.ExecuteTask(ctx, Task{TaskID: "t2", Operation: "time_range_query", Parameters: map[string]interface{}{
		"since": now.Add(-time.Hour).Format(time.RFC3339),
		"until": now.Add(time.Hour).Format(time.RFC3339),
	}})
	require.True(t, queried.Success)
	events := queried.Data.([]*types.Memory)
	require.Len(t, events, 1)
}

func TestSemanticAgentSearchByCategory(t *testing.T) {
	store := memstore.New()
	a := NewSemanticAgent("sem-1", store.TypedStore("Semantic"), 10)
	ctx := context.Background()

	a.ExecuteTask(ctx, Task{TaskID: "t1", Operation: "create", Parameters: map[string]interface{}{
		"content":  "Paris is the capital of France",
		"category": "geography",
	}})
	a.ExecuteTask(ctx, Task{TaskID: "t2", Operation: "create", Parameters: map[string]interface{}{
		"content":  "Go compiles to a single static binary",
		"category": "programming",
	}})

	resp := a.ExecuteTask(ctx, Task{TaskID: "t3", Operation: "search", Parameters: map[string]interface{}{
		"category": "geography",
	}})
	require.True(t, resp.Success)
	facts := resp.Data.([]*types.Memory)
	require.Len(t, facts, 1)
	assert.Contains(t, facts[0].Content.String(), "Paris")
}

func TestProceduralAgentRecordExecutionUpdatesSuccessRate(t *testing.T) {
	store := memstore.New()
	a := NewProceduralAgent("proc-1", store.TypedStore("Procedural"), 10)
	ctx := context.Background()

	created := a.ExecuteTask(ctx, Task{TaskID: "t1", Operation: "insert", Parameters: map[string]interface{}{
		"content": "deploy via blue/green",
		"steps":   []interface{}{"build", "stage", "cutover"},
	}})
	require.True(t, created.Success)
	proc := created.Data.(*types.Memory)

	first := a.ExecuteTask(ctx, Task{TaskID: "t2", Operation: "record_execution", Parameters: map[string]interface{}{
		"id":        string(proc.ID),
		"succeeded": true,
	}})
	require.True(t, first.Success)
	updated := first.Data.(*types.Memory)
	assert.Equal(t, 1.0, attrNumberOrZero(updated, AttrSuccessRate))

	second := a.ExecuteTask(ctx, Task{TaskID: "t3", Operation: "record_execution", Parameters: map[string]interface{}{
		"id":        string(proc.ID),
		"succeeded": false,
	}})
	require.True(t, second.Success)
	final := second.Data.(*types.Memory)
	assert.Equal(t, 0.5, attrNumberOrZero(final, AttrSuccessRate))
}

func TestRegistryRoutesByMemoryType(t *testing.T) {
	store := memstore.New()
	r := NewRegistry(store, 10)
	assert.True(t, r.HasAgent("Core"))
	assert.True(t, r.HasAgent("Episodic"))
	assert.True(t, r.HasAgent("Semantic"))
	assert.True(t, r.HasAgent("Procedural"))
	assert.False(t, r.HasAgent("Working"))

	resp := r.ExecuteTask(context.Background(), Task{
		TaskID: "t1", MemoryType: "Semantic", Operation: "create",
		Parameters: map[string]interface{}{"content": "the sky is blue"},
	})
	assert.True(t, resp.Success)

	missing := r.ExecuteTask(context.Background(), Task{TaskID: "t2", MemoryType: "Unknown", Operation: "noop"})
	assert.False(t, missing.Success)
}

var _ storage.Backend = (*memstore.Store)(nil)
