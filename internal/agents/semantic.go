package agents

import (
	"context"
	"fmt"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/pkg/types"
)

// AttrCategory tags a Semantic fact with its category.
var AttrCategory = types.AttributeKey{Namespace: types.NamespaceCustom, Name: "category"}

// SemanticAgent manages categorized facts: standard CRUD plus a
// category-scoped search.
type SemanticAgent struct{ base }

func NewSemanticAgent(workerID string, store storage.TypedMemoryStore, maxConcurrentTasks int) *SemanticAgent {
	return &SemanticAgent{base: newBase(types.MemoryTypeSemantic, workerID, store, maxConcurrentTasks)}
}

func (a *SemanticAgent) ExecuteTask(ctx context.Context, task Task) Response {
	return a.runTask(ctx, task, func(ctx context.Context) (interface{}, error) {
		switch task.Operation {
		case "create":
			return a.create(ctx, task.Parameters)
		case "read":
			return a.read(ctx, task.Parameters)
		case "update":
			return a.update(ctx, task.Parameters)
		case "delete":
			return a.deleteFact(ctx, task.Parameters)
		case "search":
			return a.search(ctx, task.Parameters)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, task.Operation)
		}
	})
}

func (a *SemanticAgent) create(ctx context.Context, params map[string]interface{}) (*types.Memory, error) {
	content, err := paramString(params, "content")
	if err != nil {
		return nil, err
	}
	attrs := types.AttributeSet{types.AttrMemoryType: types.StringValue(string(types.MemoryTypeSemantic))}
	if category, err := paramString(params, "category"); err == nil {
		attrs = attrs.Set(AttrCategory, types.StringValue(category))
	}
	m := types.NewMemory("", types.NewTextContent(content), attrs)
	if err := a.store.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (a *SemanticAgent) read(ctx context.Context, params map[string]interface{}) (*types.Memory, error) {
	id, err := paramString(params, "id")
	if err != nil {
		return nil, err
	}
	return a.store.FindByID(ctx, types.MemoryId(id))
}

func (a *SemanticAgent) update(ctx context.Context, params map[string]interface{}) (*types.Memory, error) {
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

func (a *SemanticAgent) deleteFact(ctx context.Context, params map[string]interface{}) (struct{}, error) {
	id, err := paramString(params, "id")
	if err != nil {
		return struct{}{}, err
	}
	return struct{}{}, a.store.Delete(ctx, types.MemoryId(id))
}

func (a *SemanticAgent) search(ctx context.Context, params map[string]interface{}) ([]*types.Memory, error) {
	query, _ := paramString(params, "query")
	limit := paramInt(params, "limit", 10)
	filter := storage.TypedMemoryFilter{}
	if category, err := paramString(params, "category"); err == nil {
		filter.Category = category
	}
	facts, err := a.store.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	return filterByContent(facts, query, limit), nil
}
