// Package navigation provides Navigator implementations for hosts that do not
// run inside a browser.
package navigation

import (
	"context"
	"errors"
	"sync"

	"github.com/layer-3/stockflow/ports"
)

// Recorder keeps the current location in memory and remembers every navigation.
type Recorder struct {
	mu      sync.Mutex
	current string
	history []string
}

var _ ports.Navigator = (*Recorder)(nil)

// NewRecorder creates a Recorder positioned at path.
func NewRecorder(path string) *Recorder {
	return &Recorder{current: path}
}

// CurrentPath returns the last location navigated to.
func (r *Recorder) CurrentPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.current
}

// Navigate moves to path and records it.
func (r *Recorder) Navigate(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = path
	r.history = append(r.history, path)

	return nil
}

// History returns the navigations performed so far, oldest first.
func (r *Recorder) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.history...)
}

// Callback adapts plain functions to the Navigator interface.
type Callback struct {
	Current  func() string
	Redirect func(ctx context.Context, path string) error
}

var _ ports.Navigator = Callback{}

// CurrentPath calls Current, or returns "" when it is unset.
func (c Callback) CurrentPath() string {
	if c.Current == nil {
		return ""
	}
	return c.Current()
}

// Navigate calls Redirect.
func (c Callback) Navigate(ctx context.Context, path string) error {
	if c.Redirect == nil {
		return errors.New("navigation: no redirect callback")
	}
	return c.Redirect(ctx, path)
}
