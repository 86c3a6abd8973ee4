package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// Spinner animates a single status line until stopped.
type Spinner struct {
	message  string
	frames   []string
	interval time.Duration
	out      io.Writer

	mu       sync.Mutex
	stopped  bool
	done     chan struct{}
	stopOnce sync.Once
}

func newSpinner(message string, style spinner.Spinner) *Spinner {
	return &Spinner{
		message:  message,
		frames:   style.Frames,
		interval: style.FPS,
		out:      os.Stdout,
		done:     make(chan struct{}),
	}
}

// NewConnectionSpinner is shown while dialing the relay (Globe style).
func NewConnectionSpinner(message string) *Spinner {
	return newSpinner(message, spinner.Globe)
}

// NewWaitingSpinner is shown while waiting for the relay to answer (Points style).
func NewWaitingSpinner(message string) *Spinner {
	return newSpinner(message, spinner.Points)
}

func (s *Spinner) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for i := 0; ; i++ {
			if !s.frame(i) {
				return
			}

			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// frame draws frame i unless the spinner has been stopped.
func (s *Spinner) frame(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	fmt.Fprintf(s.out, "\r%s %s", SpinnerStyle.Render(s.frames[i%len(s.frames)]), s.message)
	return true
}

// Stop clears the line. No frame is drawn after Stop returns. Later calls
// are no-ops.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.stopped = true
		close(s.done)
		fmt.Fprint(s.out, "\r\033[K")
	})
}

// Success stops the spinner and leaves a success line in its place.
func (s *Spinner) Success(message string) {
	s.Stop()
	writeSuccess(s.out, message)
}

// Fail stops the spinner and leaves an error line in its place.
func (s *Spinner) Fail(message string) {
	s.Stop()
	writeError(s.out, message)
}

// RunWaitingSpinner starts a waiting spinner and returns a stop function
func RunWaitingSpinner(message string) func() {
	sp := NewWaitingSpinner(message)
	sp.Start()
	return sp.Stop
}
