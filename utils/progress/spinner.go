package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// Spinner animates a status line while a blocking call runs
type Spinner struct {
	chars    []string
	index    int
	message  string
	out      io.Writer
	isTTY    bool
	interval time.Duration
	stop     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
	disabled bool
}

// NewSpinner writes to stdout and disables itself when stdout is not a terminal
func NewSpinner() *Spinner {
	s := NewSpinnerWriter(os.Stdout)
	s.isTTY = term.IsTerminal(int(os.Stdout.Fd()))
	if !s.isTTY {
		s.disabled = true
	}
	return s
}

// NewSpinnerWriter writes frames to out
func NewSpinnerWriter(out io.Writer) *Spinner {
	return &Spinner{
		chars:    []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		out:      out,
		interval: 100 * time.Millisecond,
	}
}

// Disable prevents the spinner from showing any output
func (s *Spinner) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = true
}

// Start begins animating message until Stop is called
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	if s.disabled || s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.message = message
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.isTTY {
			fmt.Fprint(s.out, "\033[?25l")
		}
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			s.mu.Lock()
			fmt.Fprintf(s.out, "\r%s... %s", s.message, s.chars[s.index])
			s.index = (s.index + 1) % len(s.chars)
			s.mu.Unlock()

			select {
			case <-stop:
				s.mu.Lock()
				fmt.Fprintf(s.out, "\r%s... Done!     \n", s.message)
				s.mu.Unlock()
				if s.isTTY {
					fmt.Fprint(s.out, "\033[?25h")
				}
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop ends the animation and waits for the final frame to be written
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()
	s.wg.Wait()
}
