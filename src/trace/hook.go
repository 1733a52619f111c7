package trace

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Formatter renders trace entries as trace lines. Entries that do not belong
// to the trace produce no output, so the formatter can sit behind a file hook
// that receives every Info entry.
type Formatter struct {
	Start time.Time
}

// Format implements logrus.Formatter
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	ev, ok := FromEntry(entry, f.Start)
	if !ok {
		return nil, nil
	}
	return []byte(ev.String() + "\n"), nil
}

// Recorder is anything that can persist trace events.
type Recorder interface {
	AppendTrace(ev Event) error
}

// Hook is a logrus hook that forwards trace events to a Recorder.
type Hook struct {
	recorder Recorder
	start    time.Time
}

// NewHook ...
func NewHook(recorder Recorder, start time.Time) *Hook {
	return &Hook{
		recorder: recorder,
		start:    start,
	}
}

// Levels implements logrus.Hook. Trace events are always Info entries.
func (h *Hook) Levels() []logrus.Level {
	return []logrus.Level{logrus.InfoLevel}
}

// Fire implements logrus.Hook
func (h *Hook) Fire(entry *logrus.Entry) error {
	ev, ok := FromEntry(entry, h.start)
	if !ok {
		return nil
	}
	return h.recorder.AppendTrace(ev)
}
