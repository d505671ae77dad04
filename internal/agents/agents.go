// Package agents implements the four typed memory specialists (C8): Core,
// Episodic, Semantic, and Procedural. Each is bound to one
// storage.TypedMemoryStore and enforces its own operation vocabulary;
// all four share one lifecycle contract and one task/response envelope,
// so the retrieval router (internal/retrieval, C9) can address any of
// them uniformly through the Registry.
package agents

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/pkg/types"
)

// Task is one unit of work routed to a specialist agent.
type Task struct {
	TaskID     string
	MemoryType types.MemoryType
	Operation  string
	Parameters map[string]interface{}
	Priority   int
	Timeout    time.Duration
	RetryCount int
}

// Response is a task's outcome. Data carries the operation-specific
// payload (a *types.Memory, a []*types.Memory, a compiled string, ...);
// callers type-assert by the operation they issued.
type Response struct {
	TaskID          string
	Success         bool
	Data            interface{}
	Error           string
	ExecutionTimeMs int64
	WorkerID        string
}

// ErrOverloaded is returned (wrapped into a failed Response, never as a
// Go error — ExecuteTask never returns one) when an agent is at
// max_concurrent_tasks.
var ErrOverloaded = fmt.Errorf("agent: at max concurrent tasks")

// ErrUnknownOperation reports that an agent's operation vocabulary does
// not include the requested operation.
var ErrUnknownOperation = fmt.Errorf("agent: unknown operation")

// Stats is a snapshot of one agent's cumulative activity.
type Stats struct {
	MemoryType    types.MemoryType
	TasksHandled  uint64
	TasksFailed   uint64
	TasksRejected uint64
	ActiveTasks   int
}

// Agent is the shared lifecycle and execution contract every specialist
// implements: {initialize, shutdown, execute_task, handle_message,
// get_stats, health_check, current_load, can_accept_task}.
type Agent interface {
	Initialize(ctx context.Context) error
	Shutdown(ctx context.Context) error
	ExecuteTask(ctx context.Context, task Task) Response
	HandleMessage(ctx context.Context, content string) (string, error)
	GetStats() Stats
	HealthCheck(ctx context.Context) error
	CurrentLoad() int
	CanAcceptTask() bool
}

// base implements every lifecycle method common to all four specialists:
// concurrency gating against maxConcurrentTasks, stats bookkeeping, and
// the mock-response fallback used when store is nil. Specialists embed
// base and implement only their own operation vocabulary via dispatch.
type base struct {
	memoryType         types.MemoryType
	workerID           string
	store              storage.TypedMemoryStore
	maxConcurrentTasks int

	active int64 // atomic

	mu            sync.Mutex
	tasksHandled  uint64
	tasksFailed   uint64
	tasksRejected uint64

	shuttingDown atomic.Bool
}

func newBase(memoryType types.MemoryType, workerID string, store storage.TypedMemoryStore, maxConcurrentTasks int) base {
	if maxConcurrentTasks <= 0 {
		maxConcurrentTasks = 10
	}
	if workerID == "" {
		workerID = fmt.Sprintf("%s-agent", memoryType)
	}
	return base{
		memoryType:         memoryType,
		workerID:           workerID,
		store:              store,
		maxConcurrentTasks: maxConcurrentTasks,
	}
}

func (b *base) Initialize(ctx context.Context) error {
	b.shuttingDown.Store(false)
	return nil
}

func (b *base) Shutdown(ctx context.Context) error {
	b.shuttingDown.Store(true)
	return nil
}

func (b *base) HealthCheck(ctx context.Context) error {
	if b.shuttingDown.Load() {
		return fmt.Errorf("agent: %s is shutting down", b.workerID)
	}
	return nil
}

func (b *base) CurrentLoad() int {
	return int(atomic.LoadInt64(&b.active))
}

func (b *base) CanAcceptTask() bool {
	return !b.shuttingDown.Load() && b.CurrentLoad() < b.maxConcurrentTasks
}

func (b *base) GetStats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		MemoryType:    b.memoryType,
		TasksHandled:  b.tasksHandled,
		TasksFailed:   b.tasksFailed,
		TasksRejected: b.tasksRejected,
		ActiveTasks:   b.CurrentLoad(),
	}
}

// HandleMessage is a lightweight conversational hook, independent of the
// structured task vocabulary; specialists with nothing richer to say fall
// back to an acknowledgement (or the same (mock) framing execute_task
// uses, when store is nil).
func (b *base) HandleMessage(ctx context.Context, content string) (string, error) {
	if b.store == nil {
		return fmt.Sprintf("(mock) %s agent received: %s", b.memoryType, content), nil
	}
	return fmt.Sprintf("%s agent acknowledged %d bytes", b.memoryType, len(content)), nil
}

// runTask is the common execute_task scaffold: accept/reject against
// max_concurrent_tasks, a mock short-circuit when store is nil, timing,
// and stats bookkeeping. dispatch implements the operation vocabulary
// specific to one specialist.
func (b *base) runTask(ctx context.Context, task Task, dispatch func(ctx context.Context) (interface{}, error)) Response {
	if !b.CanAcceptTask() {
		b.mu.Lock()
		b.tasksRejected++
		b.mu.Unlock()
		return Response{TaskID: task.TaskID, Success: false, Error: ErrOverloaded.Error(), WorkerID: b.workerID}
	}

	atomic.AddInt64(&b.active, 1)
	defer atomic.AddInt64(&b.active, -1)

	start := time.Now()
	taskCtx := ctx
	var cancel context.CancelFunc
	if task.Timeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, task.Timeout)
		defer cancel()
	}

	if b.store == nil {
		data := map[string]interface{}{
			"mock":    true,
			"message": fmt.Sprintf("(mock) %s on %s", task.Operation, b.memoryType),
		}
		b.mu.Lock()
		b.tasksHandled++
		b.mu.Unlock()
		return Response{
			TaskID: task.TaskID, Success: true, Data: data,
			ExecutionTimeMs: elapsedMs(start), WorkerID: b.workerID,
		}
	}

	data, err := dispatch(taskCtx)
	b.mu.Lock()
	if err != nil {
		b.tasksFailed++
	} else {
		b.tasksHandled++
	}
	b.mu.Unlock()

	resp := Response{TaskID: task.TaskID, ExecutionTimeMs: elapsedMs(start), WorkerID: b.workerID}
	if err != nil {
		resp.Success = false
		resp.Error = err.Error()
		return resp
	}
	resp.Success = true
	resp.Data = data
	return resp
}

func elapsedMs(start time.Time) int64 {
	ms := time.Since(start).Milliseconds()
	if ms < 1 {
		return 1
	}
	return ms
}

// paramString reads a required string parameter, erroring if absent or
// the wrong type.
func paramString(params map[string]interface{}, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("%w: missing parameter %q", storage.ErrInvalidInput, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: parameter %q must be a string", storage.ErrInvalidInput, key)
	}
	return s, nil
}

// paramFloat reads an optional float64 parameter, defaulting when absent.
func paramFloat(params map[string]interface{}, key string, def float64) float64 {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}

// paramInt reads an optional int parameter, defaulting when absent.
func paramInt(params map[string]interface{}, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return def
	}
}
