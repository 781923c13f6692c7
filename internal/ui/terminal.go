package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cuongbtq/csv-upload-client/internal/notify"
)

var severityTags = map[notify.Severity]string{
	notify.SeveritySuccess: "OK",
	notify.SeverityDanger:  "ERROR",
	notify.SeverityWarning: "WARN",
}

// TerminalView renders the workflow as lines of text. It also serves as the
// notification renderer so every line goes through one writer.
type TerminalView struct {
	mu        sync.Mutex
	out       io.Writer
	presenter *notify.Presenter
	phase     Phase
	hasPhase  bool
}

// NewTerminalView creates a view writing to out. Notifications go through
// a presenter built from timings and scheduler.
func NewTerminalView(out io.Writer, timings notify.Timings, scheduler notify.Scheduler) *TerminalView {
	v := &TerminalView{out: out}
	v.presenter = notify.NewPresenter(&notify.Config{
		Timings:   timings,
		Renderer:  v,
		Scheduler: scheduler,
	})
	return v
}

// Presenter exposes the notification presenter
func (v *TerminalView) Presenter() *notify.Presenter {
	return v.presenter
}

// SetPhase renders the controls for phase; repeating a phase is a no-op
func (v *TerminalView) SetPhase(phase Phase) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.hasPhase && v.phase == phase {
		return
	}
	v.phase = phase
	v.hasPhase = true

	c := ControlsFor(phase)
	var parts []string
	if c.UploadVisible {
		state := "disabled"
		if c.UploadEnabled {
			state = "enabled"
		}
		parts = append(parts, fmt.Sprintf("[%s] %s", c.UploadLabel, state))
	}
	if c.SpinnerVisible {
		parts = append(parts, "working")
	}
	if c.RetryVisible {
		parts = append(parts, "[Retry polling] available")
	}

	fmt.Fprintf(v.out, "-- %s: %s\n", phase, strings.Join(parts, ", "))
}

// Phase returns the last rendered phase
func (v *TerminalView) Phase() Phase {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.phase
}

// ShowNotification displays a transient message
func (v *TerminalView) ShowNotification(message string, severity notify.Severity) {
	v.presenter.Show(message, severity)
}

// ShowFile previews the selected file name
func (v *TerminalView) ShowFile(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "File: %s\n", name)
}

// Redirect prints the location of the results
func (v *TerminalView) Redirect(url string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "Results: %s\n", url)
}

// Render prints a notification when it appears. Fading and removal have no
// terminal representation.
func (v *TerminalView) Render(n notify.Notification) {
	if n.Phase != notify.PhaseVisible {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	tag, ok := severityTags[n.Severity]
	if !ok {
		tag = strings.ToUpper(string(n.Severity))
	}
	fmt.Fprintf(v.out, "%-5s %s\n", tag, n.Message)
}

// Close dismisses every pending notification
func (v *TerminalView) Close() {
	v.presenter.Close()
}
