package orchestrator

import (
	"context"
	"fmt"
	"time"
)

// Stage names the LLM call site a timeout budget applies to.
type Stage string

const (
	StageFactExtraction    Stage = "fact_extraction"
	StageDecision          Stage = "decision"
	StageConflictDetection Stage = "conflict_detection"
	StageTopicExtraction   Stage = "topic_extraction"
)

// defaultTimeouts are the per-stage LLM call budgets. A stage absent from a
// Config's Timeouts override falls back to this table.
var defaultTimeouts = map[Stage]time.Duration{
	StageFactExtraction:    30 * time.Second,
	StageDecision:          15 * time.Second,
	StageConflictDetection: 20 * time.Second,
	StageTopicExtraction:   10 * time.Second,
}

// TimeoutError reports that a named stage exceeded its budget.
type TimeoutError struct {
	Stage  Stage
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("orchestrator: stage %q exceeded its %s budget", e.Stage, e.Budget)
}

func (e *TimeoutError) Timeout() bool { return true }

// withStageTimeout derives a child context bounded by stage's configured
// budget. The returned cancel func must always be called.
func (o *Orchestrator) withStageTimeout(ctx context.Context, stage Stage) (context.Context, context.CancelFunc) {
	budget, ok := o.cfg.Timeouts[stage]
	if !ok {
		budget = defaultTimeouts[stage]
	}
	if budget <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, budget)
}

// asTimeout wraps err as a *TimeoutError for stage when ctx's deadline is
// the reason err occurred (err is context.DeadlineExceeded), otherwise
// returns err unchanged.
func asTimeout(ctx context.Context, stage Stage, budget time.Duration, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return &TimeoutError{Stage: stage, Budget: budget}
	}
	return err
}
