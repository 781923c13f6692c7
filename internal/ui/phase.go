package ui

// Phase names a state of the interactive controls
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
	PhaseProcessing Phase = "processing"
	PhaseExhausted  Phase = "exhausted"
	PhaseRetrying   Phase = "retrying"
)

// Controls is the visual state of the upload form
type Controls struct {
	UploadVisible  bool
	UploadEnabled  bool
	UploadLabel    string
	SpinnerVisible bool
	RetryVisible   bool
}

// ControlsFor returns the control state for phase. Unknown phases map to idle.
func ControlsFor(phase Phase) Controls {
	switch phase {
	case PhaseSubmitting:
		return Controls{UploadVisible: true, UploadLabel: "Uploading...", SpinnerVisible: true}
	case PhaseProcessing, PhaseRetrying:
		return Controls{UploadVisible: true, UploadLabel: "Processing...", SpinnerVisible: true}
	case PhaseExhausted:
		return Controls{RetryVisible: true}
	default:
		return Controls{UploadVisible: true, UploadEnabled: true, UploadLabel: "Upload"}
	}
}
