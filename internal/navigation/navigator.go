package navigation

import (
	"sync"

	"github.com/noah-isme/sma-attendance-portal/internal/models"
)

// Target is one of the two static entry points.
type Target string

const (
	EntryView     Target = "/"
	DashboardView Target = "/dashboard"
)

// Navigator performs redirects on behalf of controllers.
type Navigator interface {
	Redirect(target Target)
}

// TargetFor maps a session change to the view the browser must show.
func TargetFor(event models.SessionEventType) Target {
	if event == models.SessionSignedIn {
		return DashboardView
	}
	return EntryView
}

// Recorder is a Navigator that remembers redirects instead of performing them.
type Recorder struct {
	mu      sync.Mutex
	targets []Target
}

// Redirect records target.
func (r *Recorder) Redirect(target Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, target)
}

// Targets returns every recorded redirect in order.
func (r *Recorder) Targets() []Target {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Target(nil), r.targets...)
}

// Last returns the most recent redirect, if any.
func (r *Recorder) Last() (Target, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.targets) == 0 {
		return "", false
	}
	return r.targets[len(r.targets)-1], true
}
