// Package navigation provides the navigator used to force route changes from
// the session core.
package navigation

import (
	"context"
	"log/slog"
	"sync"

	"portal/internal/domain/service"
)

// Recorder remembers the most recent forced navigation. The web surface polls
// it through the session endpoint; tests read it directly.
type Recorder struct {
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

// NewRecorder is the constructor for Recorder.
func NewRecorder(logger *slog.Logger) *Recorder {
	return &Recorder{logger: logger}
}

var _ service.Navigator = (*Recorder)(nil)

func (r *Recorder) Navigate(_ context.Context, route string) {
	r.logger.Info("Forced navigation", slog.String("route", route))

	r.mu.Lock()
	r.last = route
	r.mu.Unlock()
}

// Last returns the most recent forced route, or empty when none happened.
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.last
}

// Reset clears the recorded route after it has been consumed.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.last = ""
	r.mu.Unlock()
}
