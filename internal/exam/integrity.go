package exam

import (
	"strings"
	"sync"
)

// SignalKind identifies a browser event relevant to exam integrity.
type SignalKind string

const (
	SignalLockLost    SignalKind = "lock_lost"
	SignalBlur        SignalKind = "blur"
	SignalContextMenu SignalKind = "contextmenu"
	SignalKeyDown     SignalKind = "keydown"
)

// Violation messages shown to the student.
const (
	ViolationFullscreenExit = "Anda keluar dari mode layar penuh. Ujian akan dimuat ulang."
	ViolationFocusLost      = "Anda terdeteksi berpindah aplikasi atau jendela. Ujian akan dimuat ulang."
)

// Signal is one event emitted by a Source.
type Signal struct {
	Kind  SignalKind `json:"kind"`
	Key   string     `json:"key,omitempty"`
	Ctrl  bool       `json:"ctrl,omitempty"`
	Shift bool       `json:"shift,omitempty"`
}

// Verdict tells the source whether the default action must be cancelled.
type Verdict struct {
	Cancel bool
}

// Source is an integrity capability: fullscreen lock, focus tracking or key
// interception. Watch delivers every signal to emit until stop is called.
type Source interface {
	Watch(emit func(Signal) Verdict) (stop func())
}

// IsBlockedShortcut reports whether a key press opens developer tooling:
// F12, Ctrl+Shift+I or Ctrl+U.
func IsBlockedShortcut(s Signal) bool {
	key := strings.ToUpper(s.Key)
	switch {
	case key == "F12":
		return true
	case s.Ctrl && s.Shift && key == "I":
		return true
	case s.Ctrl && !s.Shift && key == "U":
		return true
	}
	return false
}

// Monitor turns signals into violation reports while attached.
type Monitor struct {
	onViolation func(kind SignalKind, reason string)
	finalizing  func() bool

	mu     sync.Mutex
	active bool
	stops  []func()
}

// NewMonitor creates a detached monitor. finalizing reports whether a
// finalization is already running, in which case a lost lock is expected and
// not reported.
func NewMonitor(onViolation func(kind SignalKind, reason string), finalizing func() bool) *Monitor {
	if finalizing == nil {
		finalizing = func() bool { return false }
	}
	return &Monitor{onViolation: onViolation, finalizing: finalizing}
}

// Attach subscribes to every source. Attaching an already active monitor is a
// no-op.
func (m *Monitor) Attach(sources ...Source) {
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return
	}
	m.active = true
	m.mu.Unlock()

	stops := make([]func(), 0, len(sources))
	for _, src := range sources {
		stops = append(stops, src.Watch(m.handle))
	}

	m.mu.Lock()
	m.stops = stops
	m.mu.Unlock()
}

// Detach unsubscribes from every source.
func (m *Monitor) Detach() {
	m.mu.Lock()
	stops := m.stops
	m.stops = nil
	m.active = false
	m.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
}

// Active reports whether the monitor is attached.
func (m *Monitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *Monitor) handle(s Signal) Verdict {
	if !m.Active() {
		return Verdict{}
	}

	switch s.Kind {
	case SignalLockLost:
		if !m.finalizing() {
			m.report(s.Kind, ViolationFullscreenExit)
		}
		return Verdict{}
	case SignalBlur:
		m.report(s.Kind, ViolationFocusLost)
		return Verdict{}
	case SignalContextMenu:
		return Verdict{Cancel: true}
	case SignalKeyDown:
		return Verdict{Cancel: IsBlockedShortcut(s)}
	default:
		return Verdict{}
	}
}

func (m *Monitor) report(kind SignalKind, reason string) {
	if m.onViolation != nil {
		m.onViolation(kind, reason)
	}
}

// SignalBus is an in-process Source. Publish hands a signal to every watcher.
type SignalBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Signal) Verdict
}

func NewSignalBus() *SignalBus {
	return &SignalBus{subs: make(map[int]func(Signal) Verdict)}
}

func (b *SignalBus) Watch(emit func(Signal) Verdict) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = emit
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers s and merges the verdicts: any watcher may cancel.
func (b *SignalBus) Publish(s Signal) Verdict {
	b.mu.RLock()
	subs := make([]func(Signal) Verdict, 0, len(b.subs))
	for _, fn := range b.subs {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	var v Verdict
	for _, fn := range subs {
		if fn(s).Cancel {
			v.Cancel = true
		}
	}
	return v
}

// Watchers returns the number of active subscriptions.
func (b *SignalBus) Watchers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
