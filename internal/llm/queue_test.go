package llm

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	batchCalls int32
	FakeEmbedder
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt32(&c.batchCalls, 1)
	return c.FakeEmbedder.EmbedBatch(ctx, texts)
}

func TestEmbeddingQueueCoalescesIntoBatches(t *testing.T) {
	gen := &countingEmbedder{}
	q := NewEmbeddingQueue(gen, 5, 50*time.Millisecond, 0)
	defer q.Close()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := q.Submit(context.Background(), "text")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&gen.batchCalls), "five requests filling one batch should dispatch once")
}

func TestEmbeddingQueueFlushesOnTimer(t *testing.T) {
	gen := &countingEmbedder{}
	q := NewEmbeddingQueue(gen, 100, 20*time.Millisecond, 0)
	defer q.Close()

	_, err := q.Submit(context.Background(), "solo")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&gen.batchCalls), "a lone request must flush once the batch window elapses")
}

func TestEmbeddingQueueSubmitRespectsCancellation(t *testing.T) {
	gen := &countingEmbedder{}
	q := NewEmbeddingQueue(gen, 100, time.Hour, 0)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Submit(ctx, "cancelled")
	assert.ErrorIs(t, err, context.Canceled)
}
