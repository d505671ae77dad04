package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/pkg/types"
)

// EpisodicAgent manages timestamped events: insert, search,
// time_range_query, update, delete. Events carry an importance_score
// (the shared core:importance attribute).
type EpisodicAgent struct{ base }

func NewEpisodicAgent(workerID string, store storage.TypedMemoryStore, maxConcurrentTasks int) *EpisodicAgent {
	return &EpisodicAgent{base: newBase(types.MemoryTypeEpisodic, workerID, store, maxConcurrentTasks)}
}

func (a *EpisodicAgent) ExecuteTask(ctx context.Context, task Task) Response {
	return a.runTask(ctx, task, func(ctx context.Context) (interface{}, error) {
		switch task.Operation {
		case "insert":
			return a.insert(ctx, task.Parameters)
		case "search":
			return a.search(ctx, task.Parameters)
		case "time_range_query":
			return a.timeRangeQuery(ctx, task.Parameters)
		case "update":
			return a.update(ctx, task.Parameters)
		case "delete":
			return a.deleteEvent(ctx, task.Parameters)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, task.Operation)
		}
	})
}

func (a *EpisodicAgent) insert(ctx context.Context, params map[string]interface{}) (*types.Memory, error) {
	content, err := paramString(params, "content")
	if err != nil {
		return nil, err
	}
	importance := types.ClampUnit(paramFloat(params, "importance_score", 0.5))
	attrs := types.AttributeSet{
		types.AttrMemoryType: types.StringValue(string(types.MemoryTypeEpisodic)),
		types.AttrImportance: types.NumberValue(importance),
	}
	m := types.NewMemory("", types.NewTextContent(content), attrs)
	if err := a.store.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (a *EpisodicAgent) search(ctx context.Context, params map[string]interface{}) ([]*types.Memory, error) {
	query, _ := paramString(params, "query")
	limit := paramInt(params, "limit", 10)
	events, err := a.store.Query(ctx, storage.TypedMemoryFilter{})
	if err != nil {
		return nil, err
	}
	return filterByContent(events, query, limit), nil
}

func (a *EpisodicAgent) timeRangeQuery(ctx context.Context, params map[string]interface{}) ([]*types.Memory, error) {
	since, _ := paramTime(params, "since")
	until, _ := paramTime(params, "until")
	return a.store.Query(ctx, storage.TypedMemoryFilter{Since: since, Until: until})
}

func (a *EpisodicAgent) update(ctx context.Context, params map[string]interface{}) (*types.Memory, error) {
	id, err := paramString(params, "id")
	if err != nil {
		return nil, err
	}
	newContent, err := paramString(params, "content")
	if err != nil {
		return nil, err
	}
	m, err := a.store.FindByID(ctx, types.MemoryId(id))
	if err != nil {
		return nil, err
	}
	c := types.NewTextContent(newContent)
	m.ApplyUpdate(&c, nowUTC())
	if err := a.store.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (a *EpisodicAgent) deleteEvent(ctx context.Context, params map[string]interface{}) (struct{}, error) {
	id, err := paramString(params, "id")
	if err != nil {
		return struct{}{}, err
	}
	return struct{}{}, a.store.Delete(ctx, types.MemoryId(id))
}

// paramTime reads an RFC3339 timestamp parameter, returning the zero
// value (no bound) when absent or unparseable.
func paramTime(params map[string]interface{}, key string) (time.Time, bool) {
	v, ok := params[key]
	if !ok {
		return time.Time{}, false
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
