package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue("storage-cleanup", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("storage unavailable")
		}
		close(done)
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 5, RetryDelay: time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "j-1", Type: "delete_object"}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not succeed")
	}
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestEnqueueBeforeStartFails(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "j-1"}))
}

func TestMuxDispatchesByType(t *testing.T) {
	mux := NewMux()
	var got string
	mux.Handle("delete_object", func(_ context.Context, job Job) error {
		got = job.Payload.(string)
		return nil
	})

	require.NoError(t, mux.Process(context.Background(), Job{Type: "delete_object", Payload: "talent_certificate/2024/05/a.pdf"}))
	assert.Equal(t, "talent_certificate/2024/05/a.pdf", got)
	assert.Error(t, mux.Process(context.Background(), Job{Type: "unknown"}))
}
