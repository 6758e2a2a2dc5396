// Package notice carries transient user-visible messages raised by editor
// operations. Publishing never blocks and never fails.
package notice

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level classifies a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one transient message.
type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Detail  string    `json:"detail,omitempty"`
	At      time.Time `json:"at"`
}

func (n Notice) String() string {
	if n.Detail == "" {
		return string(n.Level) + ": " + n.Message
	}
	return string(n.Level) + ": " + n.Message + " (" + n.Detail + ")"
}

// Notifier receives notices.
type Notifier interface {
	Notify(Notice)
}

// Func adapts a function to Notifier.
type Func func(Notice)

func (f Func) Notify(n Notice) { f(n) }

// Discard drops every notice.
var Discard Notifier = Func(func(Notice) {})

const defaultRecorderLimit = 64

// Recorder keeps the most recent notices in memory. Safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	limit int
	items []Notice
}

// NewRecorder returns a Recorder holding at most limit notices (64 when limit <= 0).
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = defaultRecorderLimit
	}
	return &Recorder{limit: limit}
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	if over := len(r.items) - r.limit; over > 0 {
		r.items = append([]Notice(nil), r.items[over:]...)
	}
}

// All returns a copy of the recorded notices, oldest first.
func (r *Recorder) All() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.items...)
}

// Last returns the most recent notice.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notice{}, false
	}
	return r.items[len(r.items)-1], true
}

// Count returns how many recorded notices have level l.
func (r *Recorder) Count(l Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, it := range r.items {
		if it.Level == l {
			n++
		}
	}
	return n
}

// Reset drops all recorded notices.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.items = nil
	r.mu.Unlock()
}

// LogNotifier writes notices to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier returns a notifier logging through logger (no-op when nil).
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(n Notice) {
	fields := []zap.Field{zap.String("level", string(n.Level))}
	if n.Detail != "" {
		fields = append(fields, zap.String("detail", n.Detail))
	}
	switch n.Level {
	case LevelError:
		l.logger.Error(n.Message, fields...)
	case LevelWarning:
		l.logger.Warn(n.Message, fields...)
	default:
		l.logger.Info(n.Message, fields...)
	}
}

// Multi fans a notice out to every non-nil notifier.
func Multi(notifiers ...Notifier) Notifier {
	list := make([]Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			list = append(list, n)
		}
	}
	return Func(func(n Notice) {
		for _, target := range list {
			target.Notify(n)
		}
	})
}
