package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// writerIsTTY returns true if the given writer exposes an Fd() method
// (e.g. *os.File) and that fd is a terminal. Falls back to false for
// plain io.Writer values such as *bytes.Buffer.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

const barWidth = 30

// ProgressBar tracks per-version classification.
// Example: [=========>           ]  45%  5/11 ODBC 2.25.0
//
// It writes to stderr so that a report piped to a file stays clean. On a
// non-TTY writer only the final line is printed.
type ProgressBar struct {
	total   int
	current int
	label   string
	title   string
	mu      sync.Mutex
	writer  io.Writer
}

// NewProgress creates a progress bar for total steps.
func NewProgress(total int, title string) *ProgressBar {
	return &ProgressBar{
		total:  total,
		title:  title,
		writer: os.Stderr,
	}
}

// SetWriter sets the output writer (useful for testing).
func (p *ProgressBar) SetWriter(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writer = w
}

// Step records that current steps are done and names the item just
// finished.
func (p *ProgressBar) Step(current int, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = min(current, p.total)
	p.label = label
	p.render()
}

// Finish completes the bar and moves to a new line.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	wasDone := p.current == p.total
	p.current = p.total
	p.label = ""

	if writerIsTTY(p.writer) {
		p.render()
		fmt.Fprintln(p.writer)
		return
	}
	// The last Step already printed the completed line.
	if !wasDone {
		p.render()
	}
}

// render draws the bar (must be called with lock held).
func (p *ProgressBar) render() {
	line := p.line()
	if writerIsTTY(p.writer) {
		// Pad so a shorter label fully overwrites the previous one.
		fmt.Fprintf(p.writer, "\r%-100s", line)
		return
	}
	if p.current == p.total {
		fmt.Fprintln(p.writer, line)
	}
}

// line formats the bar (must be called with lock held).
func (p *ProgressBar) line() string {
	pct, filled := 100, barWidth
	if p.total > 0 {
		pct = p.current * 100 / p.total
		filled = p.current * barWidth / p.total
	}

	var bar strings.Builder
	bar.WriteByte('[')
	switch {
	case filled >= barWidth:
		bar.WriteString(strings.Repeat("=", barWidth))
	case filled > 0:
		bar.WriteString(strings.Repeat("=", filled-1))
		bar.WriteByte('>')
		bar.WriteString(strings.Repeat(" ", barWidth-filled))
	default:
		bar.WriteString(strings.Repeat(" ", barWidth))
	}
	bar.WriteByte(']')

	line := fmt.Sprintf("%s %3d%% %*d/%d %s", bar.String(), pct, digits(p.total), p.current, p.total, p.title)
	if p.label != "" {
		line += ": " + p.label
	}
	return line
}

func digits(n int) int {
	return len(fmt.Sprint(n))
}

// Spinner shows an animated indicator with elapsed time while a remote
// query runs.
// Example: /  Querying ACCOUNT_USAGE.SESSIONS (4s)
type Spinner struct {
	message string
	running bool
	frames  []string
	mu      sync.Mutex
	writer  io.Writer
	done    chan struct{}
	started time.Time
}

// NewSpinner creates a stopped spinner writing to stderr.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		message: message,
		frames:  []string{"|", "/", "-", "\\"},
		writer:  os.Stderr,
		done:    make(chan struct{}),
	}
}

// SetWriter sets the output writer (useful for testing).
func (s *Spinner) SetWriter(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
}

// Start begins the animation. On a non-TTY writer the message is printed
// once and no goroutine is started.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.started = time.Now()

	if !writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "%s...\n", s.message)
		return
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	go func() {
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-ticker.C:
				s.mu.Lock()
				if s.running {
					fmt.Fprintf(s.writer, "\r%s  %s", s.frames[i%len(s.frames)], s.line())
				}
				s.mu.Unlock()
			case <-s.done:
				return
			}
		}
	}()
}

// line is the message with elapsed seconds. Must be called with lock held.
func (s *Spinner) line() string {
	return fmt.Sprintf("%s (%ds)", s.message, int(time.Since(s.started).Seconds()))
}

// UpdateMessage replaces the message while the spinner runs.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

// Stop ends the animation and clears the line. Safe to call more than once.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.done)

	if writerIsTTY(s.writer) {
		fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.line())+4))
	}
}

// StopWithMessage stops the spinner and prints a final line.
func (s *Spinner) StopWithMessage(message string) {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.writer, message)
}
