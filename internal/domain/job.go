package domain

import "strings"

// JobState is the lifecycle state of an uploaded file on the server side.
type JobState string

const (
	JobStateSubmitted  JobState = "SUBMITTED"
	JobStateProcessing JobState = "PROCESSING"
	JobStateProcessed  JobState = "PROCESSED"
	JobStateFailed     JobState = "FAILED"
	JobStateError      JobState = "ERROR"
)

// Raw status values reported by the status endpoint
const (
	StatusProcessed = "PROCESSED"
	StatusFailed    = "FAILED"
	StatusError     = "error"
)

// IsTerminal reports whether polling past this state is meaningless
func (s JobState) IsTerminal() bool {
	switch s {
	case JobStateProcessed, JobStateFailed, JobStateError:
		return true
	default:
		return false
	}
}

// ClassifyStatus maps a raw status value to a JobState.
// Matching is case-insensitive; servers in the wild answer both "PROCESSED"
// and "processed". Any unrecognised value means the job is still running.
func ClassifyStatus(raw string) JobState {
	switch {
	case strings.EqualFold(raw, StatusProcessed):
		return JobStateProcessed
	case strings.EqualFold(raw, StatusFailed):
		return JobStateFailed
	case strings.EqualFold(raw, StatusError):
		return JobStateError
	default:
		return JobStateProcessing
	}
}

// Job is an upload accepted by the server
type Job struct {
	FileID string
	State  JobState
}
