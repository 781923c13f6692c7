package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuongbtq/csv-upload-client/internal/client"
	"github.com/cuongbtq/csv-upload-client/internal/domain"
	"github.com/cuongbtq/csv-upload-client/shared/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastSchedule = Schedule{Base: time.Millisecond, Increment: time.Millisecond, MaxAttempts: 8}

type reply struct {
	status  string
	message string
	err     error
}

// scriptedQuerier answers queries from a script; the last reply repeats
type scriptedQuerier struct {
	mu      sync.Mutex
	replies []reply
	calls   int

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (q *scriptedQuerier) Status(ctx context.Context, fileID string) (*client.StatusResult, error) {
	n := q.inflight.Add(1)
	defer q.inflight.Add(-1)
	for {
		old := q.maxInflight.Load()
		if n <= old || q.maxInflight.CompareAndSwap(old, n) {
			break
		}
	}

	q.mu.Lock()
	idx := q.calls
	if idx >= len(q.replies) {
		idx = len(q.replies) - 1
	}
	q.calls++
	r := q.replies[idx]
	q.mu.Unlock()

	if r.err != nil {
		return nil, r.err
	}
	return &client.StatusResult{Status: r.status, Message: r.message}, nil
}

func (q *scriptedQuerier) Calls() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.calls
}

func newTestController(q Querier, observer func(Attempt)) *Controller {
	return NewController(&Config{
		FileID:   "42",
		Querier:  q,
		Schedule: fastSchedule,
		Logger:   logger.NewDiscard().Logger,
		Observer: observer,
	})
}

func repeat(r reply, n int) []reply {
	out := make([]reply, n)
	for i := range out {
		out[i] = r
	}
	return out
}

func TestController_Outcomes(t *testing.T) {
	processing := reply{status: "processing"}
	transportErr := domain.NewTransportError("query status", errors.New("connection reset"))

	tests := []struct {
		name         string
		replies      []reply
		wantKind     OutcomeKind
		wantState    domain.JobState
		wantMessage  string
		wantAttempts int
	}{
		{
			name:         "processed on first poll",
			replies:      []reply{{status: "PROCESSED"}},
			wantKind:     OutcomeProcessed,
			wantState:    domain.JobStateProcessed,
			wantAttempts: 1,
		},
		{
			name:         "lowercase processed",
			replies:      []reply{processing, {status: "processed"}},
			wantKind:     OutcomeProcessed,
			wantState:    domain.JobStateProcessed,
			wantAttempts: 2,
		},
		{
			name:         "failed with message",
			replies:      []reply{{status: "FAILED", message: "bad rows"}},
			wantKind:     OutcomeFailed,
			wantState:    domain.JobStateFailed,
			wantMessage:  "bad rows",
			wantAttempts: 1,
		},
		{
			name:         "error status",
			replies:      []reply{processing, {status: "error", message: "File not found."}},
			wantKind:     OutcomeFailed,
			wantState:    domain.JobStateError,
			wantMessage:  "File not found.",
			wantAttempts: 2,
		},
		{
			name:         "transport failure stops immediately",
			replies:      []reply{processing, {err: transportErr}, {status: "PROCESSED"}},
			wantKind:     OutcomeTransportError,
			wantAttempts: 2,
		},
		{
			name:         "eight processing answers exhaust the loop",
			replies:      repeat(processing, 8),
			wantKind:     OutcomeExhausted,
			wantState:    domain.JobStateProcessing,
			wantAttempts: 8,
		},
		{
			name:         "processed on the last allowed attempt",
			replies:      append(repeat(processing, 7), reply{status: "PROCESSED"}),
			wantKind:     OutcomeProcessed,
			wantState:    domain.JobStateProcessed,
			wantAttempts: 8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &scriptedQuerier{replies: tt.replies}
			c := newTestController(q, nil)

			out, err := c.Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.wantKind, out.Kind)
			assert.Equal(t, tt.wantState, out.State)
			assert.Equal(t, tt.wantMessage, out.Message)
			assert.Equal(t, tt.wantAttempts, out.Attempts)
			assert.Equal(t, tt.wantAttempts, q.Calls(), "no queries after a terminal outcome")
			assert.False(t, c.IsActive())
			assert.Equal(t, StateTerminated, c.State())

			if tt.wantKind == OutcomeTransportError {
				assert.ErrorIs(t, out.Err, domain.ErrTransport)
			}
		})
	}
}

func TestController_NoOverlappingQueries(t *testing.T) {
	q := &scriptedQuerier{replies: []reply{{status: "processing"}}}
	c := newTestController(q, nil)

	out, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeExhausted, out.Kind)
	assert.Equal(t, int32(1), q.maxInflight.Load())
}

func TestController_IntervalsNeverShrink(t *testing.T) {
	var attempts []Attempt
	q := &scriptedQuerier{replies: []reply{{status: "processing"}}}
	c := newTestController(q, func(a Attempt) { attempts = append(attempts, a) })

	_, err := c.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, attempts, fastSchedule.MaxAttempts)
	for i, a := range attempts {
		assert.Equal(t, i+1, a.Number)
		assert.Equal(t, "42", a.FileID)
		assert.Equal(t, fastSchedule.Interval(i), a.Interval)
		if i > 0 {
			assert.GreaterOrEqual(t, a.Interval, attempts[i-1].Interval)
		}
	}
}

func TestController_StartTwice(t *testing.T) {
	c := NewController(&Config{
		FileID:   "42",
		Querier:  &scriptedQuerier{replies: []reply{{status: "processing"}}},
		Schedule: Schedule{Base: time.Hour, MaxAttempts: 1},
		Logger:   logger.NewDiscard().Logger,
	})

	require.NoError(t, c.Start(context.Background()))
	assert.True(t, c.IsActive())
	assert.ErrorIs(t, c.Start(context.Background()), ErrAlreadyActive)

	c.Cancel()
	out := c.Wait()
	assert.Equal(t, OutcomeCanceled, out.Kind)
	assert.False(t, c.IsActive())

	assert.ErrorIs(t, c.Start(context.Background()), ErrTerminated)
}

func TestController_CancelBeforeStart(t *testing.T) {
	c := newTestController(&scriptedQuerier{replies: []reply{{status: "PROCESSED"}}}, nil)

	c.Cancel()

	select {
	case <-c.Done():
	default:
		t.Fatal("done channel not closed")
	}
	assert.Equal(t, OutcomeCanceled, c.Wait().Kind)
	assert.ErrorIs(t, c.Start(context.Background()), ErrTerminated)
}

func TestController_ParentContextCancel(t *testing.T) {
	q := &scriptedQuerier{replies: []reply{{status: "processing"}}}
	c := NewController(&Config{
		FileID:   "42",
		Querier:  q,
		Schedule: Schedule{Base: time.Hour, MaxAttempts: 3},
		Logger:   logger.NewDiscard().Logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Start(ctx))
	cancel()

	out := c.Wait()
	assert.Equal(t, OutcomeCanceled, out.Kind)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Equal(t, 0, q.Calls())
}

// blockingQuerier holds each query until released and ignores cancellation,
// like a server that answers a request the client no longer cares about
type blockingQuerier struct {
	started chan struct{}
	release chan struct{}
}

func (q *blockingQuerier) Status(ctx context.Context, fileID string) (*client.StatusResult, error) {
	q.started <- struct{}{}
	<-q.release
	return &client.StatusResult{Status: "PROCESSED"}, nil
}

func TestController_StaleResultDiscarded(t *testing.T) {
	q := &blockingQuerier{started: make(chan struct{}), release: make(chan struct{})}
	var observed atomic.Int32
	c := newTestController(q, func(Attempt) { observed.Add(1) })

	require.NoError(t, c.Start(context.Background()))

	<-q.started
	c.Cancel()
	close(q.release)

	out := c.Wait()
	assert.Equal(t, OutcomeCanceled, out.Kind)
	assert.Equal(t, 0, out.Attempts)
	assert.Equal(t, int32(0), observed.Load())
}
