package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"github.com/trebuchet-org/wallet-deployer/internal/usecase"
)

// SpinnerProgressReporter shows a spinner for in-flight work. Concurrent
// workers report through it, so every method takes the lock.
type SpinnerProgressReporter struct {
	mu      sync.Mutex
	out     io.Writer
	spinner *spinner.Spinner
	// active holds the labels of work in flight, shown in the suffix.
	active map[string]time.Time
}

// NewSpinnerProgressReporter creates a new spinner-based progress reporter
func NewSpinnerProgressReporter() *SpinnerProgressReporter {
	return newSpinnerProgressReporter(os.Stderr)
}

func newSpinnerProgressReporter(out io.Writer) *SpinnerProgressReporter {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.HideCursor = false

	return &SpinnerProgressReporter{
		out:     out,
		spinner: s,
		active:  make(map[string]time.Time),
	}
}

// OnProgress starts the spinner for spinner events and clears the finished
// label otherwise.
func (r *SpinnerProgressReporter) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Spinner {
		r.active[event.Message] = time.Now()
	} else {
		delete(r.active, event.Message)
	}

	if len(r.active) == 0 {
		if r.spinner.Active() {
			r.spinner.Stop()
		}
		return
	}
	r.spinner.Suffix = " " + r.suffix()
	if !r.spinner.Active() {
		r.spinner.Start()
	}
}

func (r *SpinnerProgressReporter) suffix() string {
	labels := make([]string, 0, len(r.active))
	for label := range r.active {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return strings.Join(labels, ", ")
}

// Stop halts the spinner and forgets work in flight.
func (r *SpinnerProgressReporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = make(map[string]time.Time)
	if r.spinner.Active() {
		r.spinner.Stop()
	}
}

// Info prints an info message
func (r *SpinnerProgressReporter) Info(message string) {
	r.println(color.New(color.FgCyan), message)
}

// Error prints an error message
func (r *SpinnerProgressReporter) Error(message string) {
	r.println(color.New(color.FgRed), message)
}

// Success prints a completion line
func (r *SpinnerProgressReporter) Success(message string) {
	r.println(color.New(color.FgGreen), message)
}

// println pauses the spinner so the line is not overwritten.
func (r *SpinnerProgressReporter) println(c *color.Color, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wasActive := r.spinner.Active()
	if wasActive {
		r.spinner.Stop()
	}

	fmt.Fprintln(r.out, c.Sprint(message))

	if wasActive {
		r.spinner.Start()
	}
}

// Ensure SpinnerProgressReporter implements ProgressSink
var _ usecase.ProgressSink = (*SpinnerProgressReporter)(nil)
