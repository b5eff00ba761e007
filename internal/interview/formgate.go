// SPDX-License-Identifier: MIT

package interview

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/voxhire/voxhire/internal/documents"
)

// DefaultMaxAttachmentBytes is the per-file size ceiling for the two
// required documents.
const DefaultMaxAttachmentBytes = 10 << 20

// DefaultDebounce is the trailing-edge delay that coalesces rapid form
// edits into one validation pass.
const DefaultDebounce = 300 * time.Millisecond

// Attachment is one file the candidate attached to the form.
type Attachment struct {
	Filename string
	Content  []byte
}

// FormInput is the raw state of the candidate form. Nil attachments mean
// "not attached yet".
type FormInput struct {
	Name     string
	Email    string
	Position string
	JD       *Attachment
	Resume   *Attachment
}

// Validity is the outcome of one validation pass. SubmitEnabled mirrors
// Valid; it exists so frontends bind the submit control to the gate's
// decision rather than re-deriving it.
type Validity struct {
	Valid         bool
	SubmitEnabled bool
	Problems      []string
}

// ValidateForm checks input against the gate rules and returns the possibly
// cleaned input alongside the verdict. An attachment over maxBytes is
// cleared from the returned input and reported as a problem; it never
// raises an error.
func ValidateForm(input FormInput, maxBytes int64) (FormInput, Validity) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAttachmentBytes
	}

	var problems []string
	if strings.TrimSpace(input.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(input.Position) == "" {
		problems = append(problems, "target position is required")
	}
	if _, err := documents.ValidateEmail(input.Email); err != nil {
		problems = append(problems, "a valid email address is required")
	}

	input.JD, problems = checkAttachment(input.JD, "job description", maxBytes, problems)
	input.Resume, problems = checkAttachment(input.Resume, "resume", maxBytes, problems)

	v := Validity{Valid: len(problems) == 0, Problems: problems}
	v.SubmitEnabled = v.Valid
	return input, v
}

func checkAttachment(a *Attachment, label string, maxBytes int64, problems []string) (*Attachment, []string) {
	if a == nil {
		return nil, append(problems, label+" file is required")
	}
	if int64(len(a.Content)) > maxBytes {
		// Oversize clears the attachment; the user picks a smaller file.
		return nil, append(problems, fmt.Sprintf("%s file exceeds the %d MiB limit and was removed", label, maxBytes>>20))
	}
	return a, problems
}

// FormGate revalidates the candidate form on every edit, debounced so a
// burst of keystrokes produces one trailing validation pass.
type FormGate struct {
	clock    Clock
	delay    time.Duration
	maxBytes int64
	onResult func(FormInput, Validity)

	mu      sync.Mutex
	pending FormInput
	timer   Timer
}

// NewFormGate builds a gate that reports each validation outcome through
// onResult. delay and maxBytes fall back to the package defaults when zero.
func NewFormGate(clock Clock, delay time.Duration, maxBytes int64, onResult func(FormInput, Validity)) *FormGate {
	if clock == nil {
		clock = RealClock()
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAttachmentBytes
	}
	return &FormGate{clock: clock, delay: delay, maxBytes: maxBytes, onResult: onResult}
}

// Update records the latest form state and schedules a trailing-edge
// validation. Only the final state of a rapid edit burst is validated.
func (g *FormGate) Update(input FormInput) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pending = input
	if g.timer != nil {
		g.timer.Stop()
	}
	g.timer = g.clock.AfterFunc(g.delay, g.fire)
}

func (g *FormGate) fire() {
	g.mu.Lock()
	input := g.pending
	g.timer = nil
	g.mu.Unlock()

	cleaned, verdict := ValidateForm(input, g.maxBytes)

	g.mu.Lock()
	// Persist the cleaning (dropped oversize attachments) unless a newer
	// edit superseded this pass.
	if g.timer == nil {
		g.pending = cleaned
	}
	g.mu.Unlock()

	if g.onResult != nil {
		g.onResult(cleaned, verdict)
	}
}

// Flush validates the current form state immediately, cancelling any
// pending debounce pass. Submission uses this so the verdict is never
// stale.
func (g *FormGate) Flush() (FormInput, Validity) {
	g.mu.Lock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	input := g.pending
	g.mu.Unlock()

	cleaned, verdict := ValidateForm(input, g.maxBytes)

	g.mu.Lock()
	if g.timer == nil {
		g.pending = cleaned
	}
	g.mu.Unlock()
	return cleaned, verdict
}

// Stop cancels any pending validation pass.
func (g *FormGate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}
