package llm

import (
	"context"
	"sync"
	"time"
)

// embedRequest is a single caller's pending embed call. result is a
// single-shot channel: the queue writes exactly one value and closes it.
type embedRequest struct {
	ctx    context.Context
	text   string
	result chan embedResult
}

type embedResult struct {
	vector []float32
	err    error
}

// EmbeddingQueue coalesces individual Embed calls into batches dispatched
// through a single background goroutine, trading a small amount of added
// latency per call for far fewer round trips to the embedding provider
// under load. It owns exactly one in-flight batch buffer, touched only by
// the one goroutine that reads requests off a channel and flushes the
// batch (no mutex is involved), mirroring the teacher's fixed-worker
// job-channel shape in internal/engine/enrichment_worker.go, generalized
// from N fixed workers down to the one consumer this queue's coalescing
// contract requires.
type EmbeddingQueue struct {
	generator    EmbeddingGenerator
	batchSize    int
	batchWindow  time.Duration
	requests    chan embedRequest
	done        chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

// NewEmbeddingQueue starts the background consumer. batchSize and
// batchWindow control coalescing: a batch is dispatched as soon as either
// fires. capacity bounds the pending-request channel; once full, Submit
// blocks the caller (backpressure) until a slot frees up.
func NewEmbeddingQueue(generator EmbeddingGenerator, batchSize int, batchWindow time.Duration, capacity int) *EmbeddingQueue {
	if batchSize <= 0 {
		batchSize = 16
	}
	if batchWindow <= 0 {
		batchWindow = 50 * time.Millisecond
	}
	if capacity <= 0 {
		capacity = batchSize * 4
	}
	q := &EmbeddingQueue{
		generator:   generator,
		batchSize:   batchSize,
		batchWindow: batchWindow,
		requests:    make(chan embedRequest, capacity),
		done:        make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Submit enqueues a single embed request and blocks until its result is
// ready or ctx is cancelled. Cancellation drops this caller's slot from
// the batch but never the rest of the batch.
func (q *EmbeddingQueue) Submit(ctx context.Context, text string) ([]float32, error) {
	req := embedRequest{ctx: ctx, text: text, result: make(chan embedResult, 1)}

	select {
	case q.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.done:
		return nil, context.Canceled
	}

	select {
	case res := <-req.result:
		return res.vector, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting new work and waits for the in-flight batch to
// drain.
func (q *EmbeddingQueue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
	q.wg.Wait()
}

func (q *EmbeddingQueue) run() {
	defer q.wg.Done()

	var batch []embedRequest
	timer := time.NewTimer(q.batchWindow)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		q.dispatch(batch)
		batch = nil
	}

	for {
		select {
		case req, ok := <-q.requests:
			if !ok {
				flush()
				return
			}
			batch = append(batch, req)
			if len(batch) >= q.batchSize {
				flush()
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(q.batchWindow)
			}
		case <-timer.C:
			flush()
			timer.Reset(q.batchWindow)
		case <-q.done:
			flush()
			return
		}
	}
}

// dispatch invokes the batch embed call and fans results back out to each
// caller's single-shot channel. A request whose context was already
// cancelled by the time the batch fires is skipped rather than failing
// the whole batch.
func (q *EmbeddingQueue) dispatch(batch []embedRequest) {
	live := batch[:0]
	for _, req := range batch {
		select {
		case <-req.ctx.Done():
			req.result <- embedResult{err: req.ctx.Err()}
			close(req.result)
		default:
			live = append(live, req)
		}
	}
	if len(live) == 0 {
		return
	}

	if batcher, ok := q.generator.(BatchEmbeddingGenerator); ok {
		texts := make([]string, len(live))
		for i, req := range live {
			texts[i] = req.text
		}
		vectors, err := batcher.EmbedBatch(live[0].ctx, texts)
		if err != nil {
			for _, req := range live {
				req.result <- embedResult{err: err}
				close(req.result)
			}
			return
		}
		for i, req := range live {
			req.result <- embedResult{vector: vectors[i]}
			close(req.result)
		}
		return
	}

	for _, req := range live {
		vec, err := q.generator.Embed(req.ctx, req.text)
		req.result <- embedResult{vector: vec, err: err}
		close(req.result)
	}
}
