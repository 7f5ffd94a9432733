// internal/status/reporter.go
package status

import (
	"log/slog"
	"sync"
)

// Reporter logs status codes, suppressing repeats of the last logged code.
// Both background tasks share one Reporter per session.
type Reporter struct {
	mu   sync.Mutex
	last Code
	log  *slog.Logger

	onChange func(Code)
}

// NewReporter starts from Success, so a healthy start logs nothing.
// onChange, if set, is called with each newly logged code.
func NewReporter(log *slog.Logger, onChange func(Code)) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{last: Success, log: log, onChange: onChange}
}

// Report logs c unless it equals the last logged code. It reports whether
// a line was written.
func (r *Reporter) Report(c Code) bool {
	r.mu.Lock()
	if r.last == c {
		r.mu.Unlock()
		return false
	}
	r.last = c
	r.mu.Unlock()

	if c == Success {
		r.log.Info("broadcast status", "status", c.String())
	} else {
		r.log.Warn("broadcast status", "status", c.String())
	}
	if r.onChange != nil {
		r.onChange(c)
	}
	return true
}

// Last returns the last logged code.
func (r *Reporter) Last() Code {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
