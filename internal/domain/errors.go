package domain

import "errors"

var (
	// ErrNoFile is returned when a submission is attempted without a file
	ErrNoFile = errors.New("no file selected")

	// ErrUploadRejected is returned when the upload endpoint reports a validation error
	ErrUploadRejected = errors.New("upload rejected")

	// ErrTransport is returned when a request to the server fails or yields an unreadable response
	ErrTransport = errors.New("transport failure")

	// ErrJobFailed is returned when the status endpoint reports FAILED or error
	ErrJobFailed = errors.New("job failed")

	// ErrExhausted is returned when polling ran out of attempts without a terminal status
	ErrExhausted = errors.New("polling attempts exhausted")
)

// UploadRejectedError carries the server-supplied validation message
type UploadRejectedError struct {
	Message string
}

func (e *UploadRejectedError) Error() string {
	return "upload rejected: " + e.Message
}

func (e *UploadRejectedError) Unwrap() error {
	return ErrUploadRejected
}

// JobFailedError carries the job state and message reported by the server
type JobFailedError struct {
	FileID  string
	State   JobState
	Message string
}

func (e *JobFailedError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "no message"
	}
	return "job " + e.FileID + " " + string(e.State) + ": " + msg
}

func (e *JobFailedError) Unwrap() error {
	return ErrJobFailed
}

// TransportError wraps a failed request so callers can match ErrTransport
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// NewTransportError wraps err as a transport failure of operation op
func NewTransportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}
