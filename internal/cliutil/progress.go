package cliutil

import (
	"fmt"
	"io"
	"os"
	"time"
)

// SpinnerOption configures the behaviour of a Spinner.
type SpinnerOption func(*Spinner)

// WithMessage sets the status text printed alongside the spinner.
func WithMessage(msg string) SpinnerOption {
	return func(s *Spinner) { s.msg = msg }
}

// WithFrequency sets how often the spinner redraws.
func WithFrequency(freq time.Duration) SpinnerOption {
	return func(s *Spinner) { s.freq = freq }
}

// WithOutput sets the destination writer (defaults to os.Stderr).
func WithOutput(w io.Writer) SpinnerOption {
	return func(s *Spinner) { s.out = w }
}

// Spinner prints a simple "waiting on device" indicator while a command
// runner exchange is outstanding. Unlike a byte-progress bar there is no
// known total (a device may prompt the user for an arbitrarily long
// confirmation), so it just rotates a frame on a fixed cadence.
//
//	sp := cliutil.NewSpinner(cliutil.WithMessage("waiting for confirmation on device..."))
//	sp.Start()
//	defer sp.Stop()
type Spinner struct {
	msg  string
	freq time.Duration
	out  io.Writer

	frame int
	last  time.Time
	stop  chan struct{}
	done  chan struct{}
}

const defaultFreq = 200 * time.Millisecond

var frames = [...]byte{'|', '/', '-', '\\'}

// NewSpinner returns a configured Spinner.
func NewSpinner(opts ...SpinnerOption) *Spinner {
	s := &Spinner{
		msg:  "waiting on device...",
		freq: defaultFreq,
		out:  os.Stderr,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start begins redrawing the spinner in the background until Stop is called.
func (s *Spinner) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.freq)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				fmt.Fprintf(s.out, "\r%*s\r", len(s.msg)+2, "")
				return
			case now := <-ticker.C:
				s.last = now
				fmt.Fprintf(s.out, "\r%c %s", frames[s.frame%len(frames)], s.msg)
				s.frame++
			}
		}
	}()
}

// Stop halts the spinner and clears its line.
func (s *Spinner) Stop() {
	close(s.stop)
	<-s.done
}
