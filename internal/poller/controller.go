package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/csv-upload-client/internal/client"
	"github.com/cuongbtq/csv-upload-client/internal/domain"
)

var (
	// ErrAlreadyActive is returned when Start is called on a polling controller
	ErrAlreadyActive = errors.New("polling already active")

	// ErrTerminated is returned when Start is called on a finished controller
	ErrTerminated = errors.New("controller already terminated")
)

// Querier issues one status query for a file
type Querier interface {
	Status(ctx context.Context, fileID string) (*client.StatusResult, error)
}

// State is the lifecycle state of a Controller
type State int

const (
	StateIdle State = iota
	StatePolling
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePolling:
		return "POLLING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// OutcomeKind tells how a polling loop ended
type OutcomeKind int

const (
	OutcomeCanceled OutcomeKind = iota
	OutcomeProcessed
	OutcomeFailed
	OutcomeTransportError
	OutcomeExhausted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeProcessed:
		return "processed"
	case OutcomeFailed:
		return "failed"
	case OutcomeTransportError:
		return "transport_error"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return "canceled"
	}
}

// Outcome is the result of one polling loop
type Outcome struct {
	Kind     OutcomeKind
	State    domain.JobState
	Message  string
	Attempts int
	Err      error
}

// Attempt describes one completed status query
type Attempt struct {
	FileID   string
	Number   int
	Interval time.Duration
	Status   string
	Err      error
}

// Config holds controller configuration
type Config struct {
	FileID   string
	Querier  Querier
	Schedule Schedule
	Logger   *slog.Logger
	// Observer, if set, is called after every completed query on the polling goroutine
	Observer func(Attempt)
}

// Controller runs one bounded polling loop for one file. It owns its
// cancellation handle; a retry needs a new Controller.
type Controller struct {
	fileID   string
	querier  Querier
	schedule Schedule
	logger   *slog.Logger
	observer func(Attempt)

	mu      sync.Mutex
	state   State
	cancel  context.CancelFunc
	done    chan struct{}
	outcome Outcome
}

// NewController creates a new idle controller
func NewController(cfg *Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	schedule := cfg.Schedule
	if schedule.MaxAttempts <= 0 {
		schedule = DefaultSchedule()
	}

	return &Controller{
		fileID:   cfg.FileID,
		querier:  cfg.Querier,
		schedule: schedule,
		logger:   logger.With(slog.String("file_id", cfg.FileID)),
		observer: cfg.Observer,
		done:     make(chan struct{}),
	}
}

// Start launches the polling loop and returns immediately
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StatePolling:
		return ErrAlreadyActive
	case StateTerminated:
		return ErrTerminated
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = StatePolling

	c.logger.Info("Polling started",
		slog.Duration("base_interval", c.schedule.Base),
		slog.Duration("increment", c.schedule.Increment),
		slog.Int("max_attempts", c.schedule.MaxAttempts),
	)

	go c.loop(loopCtx)

	return nil
}

// Cancel stops the loop. A query already in flight is allowed to return
// but its result is discarded.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateIdle:
		c.state = StateTerminated
		c.outcome = Outcome{Kind: OutcomeCanceled}
		close(c.done)
	case StatePolling:
		c.cancel()
	}
}

// IsActive reports whether the loop is running
func (c *Controller) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StatePolling
}

// State returns the controller state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed once the controller has terminated
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the loop ends and returns its outcome
func (c *Controller) Wait() Outcome {
	<-c.done

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Run starts the loop and waits for it
func (c *Controller) Run(ctx context.Context) (Outcome, error) {
	if err := c.Start(ctx); err != nil {
		return Outcome{}, err
	}
	return c.Wait(), nil
}

func (c *Controller) loop(ctx context.Context) {
	outcome := c.poll(ctx)

	c.mu.Lock()
	c.cancel()
	c.state = StateTerminated
	c.outcome = outcome
	close(c.done)
	c.mu.Unlock()

	c.logger.Info("Polling finished",
		slog.String("outcome", outcome.Kind.String()),
		slog.Int("attempts", outcome.Attempts),
	)
}

func (c *Controller) poll(ctx context.Context) Outcome {
	attempts := 0

	for attempts < c.schedule.MaxAttempts {
		interval := c.schedule.Interval(attempts)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Outcome{Kind: OutcomeCanceled, Attempts: attempts, Err: ctx.Err()}
		case <-timer.C:
		}

		res, err := c.querier.Status(ctx, c.fileID)

		// Cancelled while the query was in flight: drop whatever came back
		if ctx.Err() != nil {
			return Outcome{Kind: OutcomeCanceled, Attempts: attempts, Err: ctx.Err()}
		}

		attempts++

		attempt := Attempt{FileID: c.fileID, Number: attempts, Interval: interval, Err: err}
		if res != nil {
			attempt.Status = res.Status
		}
		if c.observer != nil {
			c.observer(attempt)
		}

		if err != nil {
			c.logger.Warn("Status query failed",
				slog.Int("attempt", attempts),
				slog.String("error", err.Error()),
			)
			return Outcome{Kind: OutcomeTransportError, Attempts: attempts, Err: err}
		}

		c.logger.Debug("Status received",
			slog.Int("attempt", attempts),
			slog.Duration("interval", interval),
			slog.String("status", res.Status),
		)

		switch state := res.State(); state {
		case domain.JobStateProcessed:
			return Outcome{Kind: OutcomeProcessed, State: state, Message: res.Message, Attempts: attempts}
		case domain.JobStateFailed, domain.JobStateError:
			return Outcome{Kind: OutcomeFailed, State: state, Message: res.Message, Attempts: attempts}
		}
	}

	return Outcome{Kind: OutcomeExhausted, State: domain.JobStateProcessing, Attempts: attempts}
}
