package notify

import (
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"
)

// Severity selects the styling of a notification
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityDanger  Severity = "danger"
	SeverityWarning Severity = "warning"
)

// Phase is the display phase of a notification
type Phase int

const (
	PhaseVisible Phase = iota
	PhaseFading
	PhaseRemoved
)

func (p Phase) String() string {
	switch p {
	case PhaseVisible:
		return "visible"
	case PhaseFading:
		return "fading"
	default:
		return "removed"
	}
}

// Notification is a transient message
type Notification struct {
	ID        int
	Message   string
	Severity  Severity
	Duration  time.Duration
	Phase     Phase
	CreatedAt time.Time
}

// Timings control how long notifications stay on screen
type Timings struct {
	Min          time.Duration
	PerCharacter time.Duration
	Fade         time.Duration
}

// DefaultTimings shows a message for 3s plus 100ms per character, then
// fades it out over 500ms
func DefaultTimings() Timings {
	return Timings{
		Min:          3 * time.Second,
		PerCharacter: 100 * time.Millisecond,
		Fade:         500 * time.Millisecond,
	}
}

// DisplayDuration returns how long msg stays fully visible; never less than Min
func (t Timings) DisplayDuration(msg string) time.Duration {
	extra := time.Duration(utf8.RuneCountInString(msg)) * t.PerCharacter
	if extra < 0 {
		extra = 0
	}
	return t.Min + extra
}

// Renderer draws a notification whenever its phase changes
type Renderer interface {
	Render(n Notification)
}

// Timer is a pending scheduled call
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler schedules with time.AfterFunc
var RealScheduler Scheduler = realScheduler{}

// Config holds presenter configuration
type Config struct {
	Timings   Timings
	Renderer  Renderer
	Scheduler Scheduler
	Logger    *slog.Logger
}

type entry struct {
	n     Notification
	timer Timer
}

// Presenter shows notifications and removes them in two phases: a fade
// after the display duration, then removal once the fade has elapsed.
type Presenter struct {
	timings   Timings
	renderer  Renderer
	scheduler Scheduler
	logger    *slog.Logger

	mu     sync.Mutex
	nextID int
	active []*entry
	closed bool
}

// NewPresenter creates a new Presenter instance
func NewPresenter(cfg *Config) *Presenter {
	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = RealScheduler
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	timings := cfg.Timings
	if timings.Min <= 0 {
		timings = DefaultTimings()
	}

	return &Presenter{
		timings:   timings,
		renderer:  cfg.Renderer,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Show displays message and schedules its dismissal
func (p *Presenter) Show(message string, severity Severity) Notification {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	e := &entry{n: Notification{
		ID:        p.nextID,
		Message:   message,
		Severity:  severity,
		Duration:  p.timings.DisplayDuration(message),
		Phase:     PhaseVisible,
		CreatedAt: time.Now(),
	}}

	p.logger.Debug("Notification shown",
		slog.Int("id", e.n.ID),
		slog.String("severity", string(severity)),
		slog.Duration("duration", e.n.Duration),
	)

	if p.closed {
		e.n.Phase = PhaseRemoved
		p.render(e.n)
		return e.n
	}

	p.active = append(p.active, e)
	p.render(e.n)

	id := e.n.ID
	e.timer = p.scheduler.AfterFunc(e.n.Duration, func() { p.fade(id) })

	return e.n
}

// Active returns the notifications still on screen in the order shown
func (p *Presenter) Active() []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Notification, 0, len(p.active))
	for _, e := range p.active {
		out = append(out, e.n)
	}
	return out
}

// Close stops every pending timer and removes all notifications
func (p *Presenter) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for _, e := range p.active {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.n.Phase = PhaseRemoved
		p.render(e.n)
	}
	p.active = nil
}

func (p *Presenter) fade(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.find(id)
	if e == nil || e.n.Phase != PhaseVisible {
		return
	}

	e.n.Phase = PhaseFading
	p.render(e.n)
	e.timer = p.scheduler.AfterFunc(p.timings.Fade, func() { p.remove(id) })
}

func (p *Presenter) remove(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, e := range p.active {
		if e.n.ID != id {
			continue
		}
		e.n.Phase = PhaseRemoved
		p.active = append(p.active[:i], p.active[i+1:]...)
		p.render(e.n)
		return
	}
}

func (p *Presenter) find(id int) *entry {
	for _, e := range p.active {
		if e.n.ID == id {
			return e
		}
	}
	return nil
}

// render is called with p.mu held
func (p *Presenter) render(n Notification) {
	if p.renderer != nil {
		p.renderer.Render(n)
	}
}
