package calculation

import (
	"context"
	"fmt"
	"testing"
	"time"

	eventlogdomain "github.com/smallbiznis/nbaflow/internal/eventlog/domain"
	nbadomain "github.com/smallbiznis/nbaflow/internal/nba/domain"
	"github.com/smallbiznis/nbaflow/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestWorker(f *fixture, q *queue.Queue) *Worker {
	return NewWorker(WorkerParams{
		Log:       zap.NewNop(),
		Clock:     f.clock,
		Consumer:  q,
		Processor: f.processor,
	})
}

func TestWorkerDrainProcessesInOrder(t *testing.T) {
	f := newFixture(t)
	q := queue.New(0)
	w := newTestWorker(f, q)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Publish(ctx, envelope(calcEvent(fmt.Sprintf("e%d", i), "ACC-1"))))
	}

	outcomes := w.Drain(ctx)
	require.Len(t, outcomes, 3)
	assert.Equal(t, eventlogdomain.ActionCreated, outcomes[0].Action)
	assert.Equal(t, eventlogdomain.ActionCreatedAndSupersededPrior, outcomes[1].Action)
	assert.Equal(t, eventlogdomain.ActionCreatedAndSupersededPrior, outcomes[2].Action)
	assert.Equal(t, 0, q.Len())

	active, err := f.repo.Find(ctx, nbadomain.FindFilter{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, *outcomes[2].NBAID, active[0].ID)
}

func TestWorkerRunForeverStopsOnClose(t *testing.T) {
	f := newFixture(t)
	q := queue.New(0)
	w := newTestWorker(f, q)

	sub, _, err := f.hub.Subscribe()
	require.NoError(t, err)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.RunForever(context.Background())
	}()

	require.NoError(t, q.Publish(context.Background(), envelope(calcEvent("e1", "ACC-1"))))
	select {
	case got := <-sub.Events():
		assert.Equal(t, "e1", got.EventID)
	case <-time.After(2 * time.Second):
		t.Fatal("event not processed")
	}

	q.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorkerRunForeverStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	w := newTestWorker(f, queue.New(0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.RunForever(ctx)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
