package agents

import (
	"context"
	"fmt"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/pkg/types"
)

// Registry maps each memory type to its bound specialist agent, so a
// caller (the retrieval router, a conflict resolver, ...) can address
// any of the four uniformly without knowing which concrete type backs
// a given types.MemoryType.
type Registry struct {
	agents map[types.MemoryType]Agent
}

// NewRegistry wires one specialist per typed store the backend exposes.
// maxConcurrentTasks applies uniformly to all four; pass 0 for the
// base package default.
func NewRegistry(backend storage.Backend, maxConcurrentTasks int) *Registry {
	r := &Registry{agents: make(map[types.MemoryType]Agent, 4)}
	r.agents[types.MemoryTypeCore] = NewCoreAgent("core-agent", backend.TypedStore(types.MemoryTypeCore), maxConcurrentTasks)
	r.agents[types.MemoryTypeEpisodic] = NewEpisodicAgent("episodic-agent", backend.TypedStore(types.MemoryTypeEpisodic), maxConcurrentTasks)
	r.agents[types.MemoryTypeSemantic] = NewSemanticAgent("semantic-agent", backend.TypedStore(types.MemoryTypeSemantic), maxConcurrentTasks)
	r.agents[types.MemoryTypeProcedural] = NewProceduralAgent("procedural-agent", backend.TypedStore(types.MemoryTypeProcedural), maxConcurrentTasks)
	return r
}

// HasAgent reports whether a specialist is registered for memoryType.
func (r *Registry) HasAgent(memoryType types.MemoryType) bool {
	_, ok := r.agents[memoryType]
	return ok
}

// Agent returns the specialist bound to memoryType, if any.
func (r *Registry) Agent(memoryType types.MemoryType) (Agent, bool) {
	a, ok := r.agents[memoryType]
	return a, ok
}

// ExecuteTask routes task to the specialist for task.MemoryType.
func (r *Registry) ExecuteTask(ctx context.Context, task Task) Response {
	a, ok := r.agents[task.MemoryType]
	if !ok {
		return Response{
			TaskID:  task.TaskID,
			Success: false,
			Error:   fmt.Sprintf("agents: no specialist registered for memory type %q", task.MemoryType),
		}
	}
	return a.ExecuteTask(ctx, task)
}

// Initialize starts every registered specialist.
func (r *Registry) Initialize(ctx context.Context) error {
	for memoryType, a := range r.agents {
		if err := a.Initialize(ctx); err != nil {
			return fmt.Errorf("agents: initializing %s specialist: %w", memoryType, err)
		}
	}
	return nil
}

// Shutdown stops every registered specialist.
func (r *Registry) Shutdown(ctx context.Context) error {
	for memoryType, a := range r.agents {
		if err := a.Shutdown(ctx); err != nil {
			return fmt.Errorf("agents: shutting down %s specialist: %w", memoryType, err)
		}
	}
	return nil
}

// Stats returns every specialist's current stats snapshot, keyed by
// memory type.
func (r *Registry) Stats() map[types.MemoryType]Stats {
	out := make(map[types.MemoryType]Stats, len(r.agents))
	for memoryType, a := range r.agents {
		out[memoryType] = a.GetStats()
	}
	return out
}
