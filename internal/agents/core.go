package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/pkg/types"
)

// AttrPersona tags a Core block with the persona/identity fragment it
// belongs to, so compile can group blocks if a caller needs that later.
var AttrPersona = types.AttributeKey{Namespace: types.NamespaceCustom, Name: "persona"}

// CoreAgent manages identity/persona "blocks": create_block, read_block,
// update_block, delete_block, search, compile.
type CoreAgent struct{ base }

// NewCoreAgent constructs a Core specialist. store may be nil, in which
// case every task is answered with a mock response.
func NewCoreAgent(workerID string, store storage.TypedMemoryStore, maxConcurrentTasks int) *CoreAgent {
	return &CoreAgent{base: newBase(types.MemoryTypeCore, workerID, store, maxConcurrentTasks)}
}

func (a *CoreAgent) ExecuteTask(ctx context.Context, task Task) Response {
	return a.runTask(ctx, task, func(ctx context.Context) (interface{}, error) {
		switch task.Operation {
		case "create_block":
			return a.createBlock(ctx, task.Parameters)
		case "read_block":
			return a.readBlock(ctx, task.Parameters)
		case "update_block":
			return a.updateBlock(ctx, task.Parameters)
		case "delete_block":
			return a.deleteBlock(ctx, task.Parameters)
		case "search":
			return a.search(ctx, task.Parameters)
		case "compile":
			return a.compile(ctx, task.Parameters)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, task.Operation)
		}
	})
}

func (a *CoreAgent) createBlock(ctx context.Context, params map[string]interface{}) (*types.Memory, error) {
	content, err := paramString(params, "content")
	if err != nil {
		return nil, err
	}
	attrs := types.AttributeSet{types.AttrMemoryType: types.StringValue(string(types.MemoryTypeCore))}
	if persona, err := paramString(params, "persona"); err == nil {
		attrs = attrs.Set(AttrPersona, types.StringValue(persona))
	}
	m := types.NewMemory("", types.NewTextContent(content), attrs)
	if err := a.store.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (a *CoreAgent) readBlock(ctx context.Context, params map[string]interface{}) (*types.Memory, error) {
	id, err := paramString(params, "id")
	if err != nil {
		return nil, err
	}
	return a.store.FindByID(ctx, types.MemoryId(id))
}

func (a *CoreAgent) updateBlock(ctx context.Context, params map[string]interface{}) (*types.Memory, error) {
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

func (a *CoreAgent) deleteBlock(ctx context.Context, params map[string]interface{}) (struct{}, error) {
	id, err := paramString(params, "id")
	if err != nil {
		return struct{}{}, err
	}
	return struct{}{}, a.store.Delete(ctx, types.MemoryId(id))
}

func (a *CoreAgent) search(ctx context.Context, params map[string]interface{}) ([]*types.Memory, error) {
	query, _ := paramString(params, "query")
	limit := paramInt(params, "limit", 10)
	blocks, err := a.store.Query(ctx, storage.TypedMemoryFilter{})
	if err != nil {
		return nil, err
	}
	return filterByContent(blocks, query, limit), nil
}

// compile renders every block into a single prompt-ready string, in
// creation order.
func (a *CoreAgent) compile(ctx context.Context, params map[string]interface{}) (string, error) {
	blocks, err := a.store.Query(ctx, storage.TypedMemoryFilter{})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, block := range blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(block.Content.String())
	}
	return b.String(), nil
}
