package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cuongbtq/csv-upload-client/internal/client"
	"github.com/cuongbtq/csv-upload-client/internal/domain"
	"github.com/cuongbtq/csv-upload-client/internal/notify"
	"github.com/cuongbtq/csv-upload-client/internal/poller"
	"github.com/cuongbtq/csv-upload-client/internal/ui"
)

// User-facing messages
const (
	MsgUploaded          = "File uploaded successfully"
	MsgUploadFailed      = "Failed to upload CSV. Please try again."
	MsgStatusFailed      = "Error fetching upload status. Please try again."
	MsgUnknownError      = "An unknown error occurred."
	MsgExhausted         = "Processing is taking longer than expected. You can check the status again."
	MsgExhaustedAfterTry = "Processing did not finish. Please upload the file again."
)

// View is the presentation surface driven by the workflow
type View interface {
	SetPhase(phase ui.Phase)
	ShowNotification(message string, severity notify.Severity)
	Redirect(url string)
}

// Server is the remote side of the workflow
type Server interface {
	Upload(ctx context.Context, fileName string, content io.Reader) (*client.UploadResult, error)
	Status(ctx context.Context, fileID string) (*client.StatusResult, error)
	ResultURL(fileID string) string
}

// Prompter asks the user whether to resume polling after exhaustion
type Prompter interface {
	AwaitRetry(ctx context.Context) (bool, error)
}

// Config holds workflow configuration
type Config struct {
	Server   Server
	View     View
	Prompter Prompter
	Schedule poller.Schedule
	Logger   *slog.Logger
	// Observer receives every completed status query
	Observer func(poller.Attempt)
}

// Result describes how a submission ended
type Result struct {
	FileID    string
	State     domain.JobState
	ResultURL string
	Attempts  int
	Retried   bool
}

// Workflow submits a file and follows its processing job to a terminal state
type Workflow struct {
	server   Server
	view     View
	prompter Prompter
	schedule poller.Schedule
	logger   *slog.Logger
	observer func(poller.Attempt)

	mu      sync.Mutex
	current *poller.Controller
}

// New creates a new Workflow instance
func New(cfg *Config) *Workflow {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	schedule := cfg.Schedule
	if schedule.MaxAttempts <= 0 {
		schedule = poller.DefaultSchedule()
	}

	return &Workflow{
		server:   cfg.Server,
		view:     cfg.View,
		prompter: cfg.Prompter,
		schedule: schedule,
		logger:   logger,
		observer: cfg.Observer,
	}
}

// Submit uploads the file at path and tracks the resulting job
func (w *Workflow) Submit(ctx context.Context, path string) (*Result, error) {
	if path == "" {
		return nil, domain.ErrNoFile
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return w.SubmitReader(ctx, filepath.Base(path), f)
}

// SubmitReader uploads content under fileName and tracks the resulting job
func (w *Workflow) SubmitReader(ctx context.Context, fileName string, content io.Reader) (*Result, error) {
	if fileName == "" {
		return nil, domain.ErrNoFile
	}

	w.view.SetPhase(ui.PhaseSubmitting)

	upload, err := w.server.Upload(ctx, fileName, content)
	if err != nil {
		var rejected *domain.UploadRejectedError
		if errors.As(err, &rejected) {
			w.logger.Warn("Upload rejected",
				slog.String("file_name", fileName),
				slog.String("reason", rejected.Message),
			)
			w.view.ShowNotification(rejected.Message, notify.SeverityDanger)
		} else {
			w.logger.Error("Upload failed",
				slog.String("file_name", fileName),
				slog.String("error", err.Error()),
			)
			w.view.ShowNotification(MsgUploadFailed, notify.SeverityDanger)
		}
		w.view.SetPhase(ui.PhaseIdle)
		return nil, fmt.Errorf("failed to upload %s: %w", fileName, err)
	}

	w.logger.Info("File uploaded",
		slog.String("file_name", fileName),
		slog.String("file_id", upload.FileID),
	)

	message := upload.Message
	if message == "" {
		message = MsgUploaded
	}
	w.view.SetPhase(ui.PhaseProcessing)
	w.view.ShowNotification(message, notify.SeveritySuccess)

	return w.Track(ctx, upload.FileID)
}

// Track polls an already submitted job. The first exhaustion offers one
// manual retry; a second exhaustion ends the workflow.
func (w *Workflow) Track(ctx context.Context, fileID string) (*Result, error) {
	w.view.SetPhase(ui.PhaseProcessing)

	result := &Result{FileID: fileID, State: domain.JobStateProcessing}

	outcome := w.poll(ctx, fileID)
	result.Attempts += outcome.Attempts

	if outcome.Kind == poller.OutcomeExhausted {
		w.logger.Warn("Polling exhausted",
			slog.String("file_id", fileID),
			slog.Int("attempts", outcome.Attempts),
		)
		w.view.ShowNotification(MsgExhausted, notify.SeverityWarning)
		w.view.SetPhase(ui.PhaseExhausted)

		retry := false
		if w.prompter != nil {
			var err error
			retry, err = w.prompter.AwaitRetry(ctx)
			if err != nil {
				w.view.SetPhase(ui.PhaseIdle)
				return result, fmt.Errorf("retry prompt: %w", err)
			}
		}

		if !retry {
			return result, w.giveUp(fileID)
		}

		w.logger.Info("Retrying status polling", slog.String("file_id", fileID))
		result.Retried = true
		w.view.SetPhase(ui.PhaseRetrying)

		outcome = w.poll(ctx, fileID)
		result.Attempts += outcome.Attempts

		if outcome.Kind == poller.OutcomeExhausted {
			return result, w.giveUp(fileID)
		}
	}

	return result, w.finish(result, outcome)
}

// Cancel stops the active polling loop, if any
func (w *Workflow) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current != nil {
		w.current.Cancel()
	}
}

// poll runs one bounded loop. Any previous loop is cancelled and drained
// before the new one starts.
func (w *Workflow) poll(ctx context.Context, fileID string) poller.Outcome {
	ctrl := poller.NewController(&poller.Config{
		FileID:   fileID,
		Querier:  w.server,
		Schedule: w.schedule,
		Logger:   w.logger,
		Observer: w.observer,
	})

	w.mu.Lock()
	if prev := w.current; prev != nil {
		prev.Cancel()
		<-prev.Done()
	}
	w.current = ctrl
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		if w.current == ctrl {
			w.current = nil
		}
		w.mu.Unlock()
	}()

	outcome, err := ctrl.Run(ctx)
	if err != nil {
		return poller.Outcome{Kind: poller.OutcomeCanceled, Err: err}
	}
	return outcome
}

func (w *Workflow) giveUp(fileID string) error {
	w.view.ShowNotification(MsgExhaustedAfterTry, notify.SeverityWarning)
	w.view.SetPhase(ui.PhaseIdle)
	return fmt.Errorf("file %s: %w", fileID, domain.ErrExhausted)
}

func (w *Workflow) finish(result *Result, outcome poller.Outcome) error {
	switch outcome.Kind {
	case poller.OutcomeProcessed:
		result.State = domain.JobStateProcessed
		result.ResultURL = w.server.ResultURL(result.FileID)
		w.logger.Info("File processed",
			slog.String("file_id", result.FileID),
			slog.Int("attempts", result.Attempts),
		)
		w.view.Redirect(result.ResultURL)
		return nil

	case poller.OutcomeFailed:
		result.State = outcome.State
		message := outcome.Message
		if message == "" {
			message = MsgUnknownError
		}
		w.logger.Warn("File processing failed",
			slog.String("file_id", result.FileID),
			slog.String("state", string(outcome.State)),
			slog.String("message", outcome.Message),
		)
		w.view.ShowNotification(message, notify.SeverityDanger)
		w.view.SetPhase(ui.PhaseIdle)
		return &domain.JobFailedError{FileID: result.FileID, State: outcome.State, Message: outcome.Message}

	case poller.OutcomeTransportError:
		w.logger.Error("Error fetching upload status",
			slog.String("file_id", result.FileID),
			slog.String("error", outcome.Err.Error()),
		)
		w.view.ShowNotification(MsgStatusFailed, notify.SeverityDanger)
		w.view.SetPhase(ui.PhaseIdle)
		return fmt.Errorf("file %s: %w", result.FileID, outcome.Err)

	default:
		w.view.SetPhase(ui.PhaseIdle)
		err := outcome.Err
		if err == nil {
			err = context.Canceled
		}
		return fmt.Errorf("file %s: polling stopped: %w", result.FileID, err)
	}
}
