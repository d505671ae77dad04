package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/pkg/types"
)

// AttrSteps holds a procedure's ordered steps, JSON-encoded since
// AttributeValue has no native list kind.
var AttrSteps = types.AttributeKey{Namespace: types.NamespaceCustom, Name: "steps"}

// AttrSuccessRate and AttrExecutionCount track a procedure's track record.
var (
	AttrSuccessRate    = types.AttributeKey{Namespace: types.NamespaceCustom, Name: "success_rate"}
	AttrExecutionCount = types.AttributeKey{Namespace: types.NamespaceCustom, Name: "execution_count"}
)

// ProceduralAgent manages skills/procedures: insert, search, update,
// delete, plus record_execution to update the running success rate.
type ProceduralAgent struct{ base }

func NewProceduralAgent(workerID string, store storage.TypedMemoryStore, maxConcurrentTasks int) *ProceduralAgent {
	return &ProceduralAgent{base: newBase(types.MemoryTypeProcedural, workerID, store, maxConcurrentTasks)}
}

func (a *ProceduralAgent) ExecuteTask(ctx context.Context, task Task) Response {
	return a.runTask(ctx, task, func(ctx context.Context) (interface{}, error) {
		switch task.Operation {
		case "insert":
			return a.insert(ctx, task.Parameters)
		case "search":
			return a.search(ctx, task.Parameters)
		case "update":
			return a.update(ctx, task.Parameters)
		case "delete":
			return a.deleteProcedure(ctx, task.Parameters)
		case "record_execution":
			return a.recordExecution(ctx, task.Parameters)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, task.Operation)
		}
	})
}

func (a *ProceduralAgent) insert(ctx context.Context, params map[string]interface{}) (*types.Memory, error) {
	content, err := paramString(params, "content")
	if err != nil {
		return nil, err
	}
	attrs := types.AttributeSet{
		types.AttrMemoryType: types.StringValue(string(types.MemoryTypeProcedural)),
		AttrSuccessRate:      types.NumberValue(0),
		AttrExecutionCount:   types.NumberValue(0),
	}
	if steps, ok := params["steps"].([]interface{}); ok {
		encoded, err := json.Marshal(steps)
		if err != nil {
			return nil, err
		}
		attrs = attrs.Set(AttrSteps, types.StringValue(string(encoded)))
	}
	m := types.NewMemory("", types.NewTextContent(content), attrs)
	if err := a.store.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (a *ProceduralAgent) search(ctx context.Context, params map[string]interface{}) ([]*types.Memory, error) {
	query, _ := paramString(params, "query")
	limit := paramInt(params, "limit", 10)
	filter := storage.TypedMemoryFilter{}
	if skill, err := paramString(params, "skill"); err == nil {
		filter.Skill = skill
	}
	if pattern, err := paramString(params, "pattern"); err == nil {
		filter.Pattern = pattern
	}
	procedures, err := a.store.Query(ctx, filter)
	if err != nil {
		return nil, err
	}
	return filterByContent(procedures, query, limit), nil
}

func (a *ProceduralAgent) update(ctx context.Context, params map[string]interface{}) (*types.Memory, error) {
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

func (a *ProceduralAgent) deleteProcedure(ctx context.Context, params map[string]interface{}) (struct{}, error) {
	id, err := paramString(params, "id")
	if err != nil {
		return struct{}{}, err
	}
	return struct{}{}, a.store.Delete(ctx, types.MemoryId(id))
}

// recordExecution updates a procedure's success_rate as a running mean
// over execution_count, the same way a reinforcement tally would.
func (a *ProceduralAgent) recordExecution(ctx context.Context, params map[string]interface{}) (*types.Memory, error) {
	id, err := paramString(params, "id")
	if err != nil {
		return nil, err
	}
	id2 := types.MemoryId(id)
	m, err := a.store.FindByID(ctx, id2)
	if err != nil {
		return nil, err
	}
	succeeded, _ := params["succeeded"].(bool)

	prevCount := attrNumberOrZero(m, AttrExecutionCount)
	prevRate := attrNumberOrZero(m, AttrSuccessRate)

	outcome := 0.0
	if succeeded {
		outcome = 1.0
	}
	newCount := prevCount + 1
	newRate := types.ClampUnit((prevRate*prevCount + outcome) / newCount)

	m.Attributes = m.Attributes.Set(AttrExecutionCount, types.NumberValue(newCount))
	m.Attributes = m.Attributes.Set(AttrSuccessRate, types.NumberValue(newRate))
	m.Touch(nowUTC())
	if err := a.store.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func attrNumberOrZero(m *types.Memory, key types.AttributeKey) float64 {
	v, ok := m.Attributes[key]
	if !ok || v.Kind != types.AttrValNumber {
		return 0
	}
	return v.Num
}
