package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/matzehuels/xwire/pkg/observability"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner draws a one-line activity indicator on w until stopped or until
// its context ends. The message may change while it runs.
type Spinner struct {
	w       io.Writer
	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	started atomic.Bool
	once    sync.Once

	mu      sync.Mutex
	message string
	width   int // widest line drawn, for clearing
}

// newSpinner creates a spinner bound to ctx. It draws nothing until Start.
func newSpinner(ctx context.Context, w io.Writer, message string) *Spinner {
	sctx, cancel := context.WithCancel(ctx)
	return &Spinner{
		w:       w,
		parent:  ctx,
		ctx:     sctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
		message: message,
	}
}

// Start begins drawing frames every 80ms.
func (s *Spinner) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-ticker.C:
				s.draw(spinnerFrames[i%len(spinnerFrames)])
			}
		}
	}()
}

// SetMessage replaces the text shown next to the frame.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Message returns the current text.
func (s *Spinner) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

func (s *Spinner) draw(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line := styleIconSpinner.Render(frame) + " " + StyleDim.Render(s.message)
	s.width = max(s.width, len(s.message)+2)
	fmt.Fprintf(s.w, "\r%s%s", line, strings.Repeat(" ", s.width-len(s.message)-2))
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width+2))
	}
}

// Stop ends the animation and clears the line. It is safe to call more than
// once. Stop on a spinner that was never started only cancels it.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		if s.started.Load() {
			<-s.stopped
		}
	})
}

// StopWithSuccess stops the spinner and prints a success line.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and prints an error line.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the parent context ended, as opposed to a
// plain Stop.
func (s *Spinner) Cancelled() bool {
	return s.parent.Err() != nil
}

// =============================================================================
// Import progress
// =============================================================================

// importHooks turns pipeline events into spinner messages while an import
// runs. Allocation events arrive from concurrent goroutines.
type importHooks struct {
	observability.NoopPipelineHooks
	spinner *Spinner
	total   int
	done    atomic.Int32
}

func (h *importHooks) OnExtractStart(_ context.Context, networksPath string) {
	h.spinner.SetMessage(fmt.Sprintf("Reading %s...", filepath.Base(networksPath)))
}

func (h *importHooks) OnExtractComplete(_ context.Context, controllers, models int, _ time.Duration, err error) {
	if err == nil {
		h.spinner.SetMessage(fmt.Sprintf("Found %d controllers, %d models", controllers, models))
	}
}

func (h *importHooks) OnAllocateStart(_ context.Context, controller, strategy string, models int) {
	h.spinner.SetMessage(fmt.Sprintf("Allocating %s (%d models, %s)...", controller, models, strategy))
}

func (h *importHooks) OnAllocateComplete(_ context.Context, controller string, receivers int, _ time.Duration, err error) {
	if err != nil {
		return
	}
	n := h.done.Add(1)
	if h.total > 0 {
		h.spinner.SetMessage(fmt.Sprintf("Allocated %s: %d receivers (%d/%d)", controller, receivers, n, h.total))
		return
	}
	h.spinner.SetMessage(fmt.Sprintf("Allocated %s: %d receivers", controller, receivers))
}

// trackImport routes pipeline events to s until the returned func is
// called, which restores the previous hooks.
func trackImport(s *Spinner, controllers int) func() {
	prev := observability.Pipeline()
	observability.SetPipelineHooks(&importHooks{spinner: s, total: controllers})
	return func() { observability.SetPipelineHooks(prev) }
}
