// Package progress defines the callback contract phase operations use to
// report liveness and observe cancellation. Long waits (LLM calls, TTS)
// post heartbeat updates through it.
package progress

import (
	"log/slog"
	"sync/atomic"
)

// Update is one progress message from a running phase operation.
type Update struct {
	ReportID string
	UserID   string
	TaskType string
	Message  string
}

// Reporter receives progress updates and carries the cancellation signal.
// Cancellation is advisory: the current chunk finishes or errors out, but
// no new chunk is scheduled.
type Reporter interface {
	Post(u Update)
	Cancelled() bool
}

// LogReporter writes updates to a slog logger. Cancellation is driven by an
// atomic flag shared with the caller.
type LogReporter struct {
	log       *slog.Logger
	cancelled *atomic.Bool
}

// NewLogReporter creates a reporter backed by the given logger.
func NewLogReporter(log *slog.Logger) *LogReporter {
	return &LogReporter{log: log, cancelled: &atomic.Bool{}}
}

// Cancel requests cancellation of the running operation.
func (r *LogReporter) Cancel() { r.cancelled.Store(true) }

func (r *LogReporter) Post(u Update) {
	r.log.Info("progress",
		slog.String("task", u.TaskType),
		slog.String("message", u.Message),
	)
}

func (r *LogReporter) Cancelled() bool { return r.cancelled.Load() }

// Nop discards updates and never cancels.
type Nop struct{}

func (Nop) Post(Update)     {}
func (Nop) Cancelled() bool { return false }
