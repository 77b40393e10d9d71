// Package report provides the shared diagnostics channel used across a
// compilation session.
//
// A Reporter is append-only: the compiler and its orchestration layers record
// errors and warnings but never clear them. Callers take a Checkpoint before
// starting a piece of work and later ask whether errors accumulated since.
package report

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Reporter accumulates diagnostics for a compilation session. It is safe for
// concurrent use.
type Reporter struct {
	mu    sync.Mutex
	diags []Diagnostic
}

// NewReporter returns an empty Reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Checkpoint returns a marker identifying the current end of the diagnostic
// stream. Pass it to HasErrorsSince or AggregateSince to scope a query to
// diagnostics recorded after this point.
func (r *Reporter) Checkpoint() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.diags)
}

// Errorf records a user-visible template error at the given location.
func (r *Reporter) Errorf(loc SourceLocation, format string, args ...any) {
	r.record(Diagnostic{
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	})
}

// TemplateErrorf records a user-visible error attributed to a template.
func (r *Reporter) TemplateErrorf(template string, loc SourceLocation, format string, args ...any) {
	r.record(Diagnostic{
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
		Template: template,
	})
}

// Warnf records a warning at the given location.
func (r *Reporter) Warnf(loc SourceLocation, format string, args ...any) {
	r.record(Diagnostic{
		Severity: SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	})
}

// Internal records an internal compiler failure. The cause is wrapped with a
// stack trace at the point of capture so the compiler's own execution context
// is preserved alongside the user-facing template location.
func (r *Reporter) Internal(template string, loc SourceLocation, cause error) {
	r.record(Diagnostic{
		Severity: SeverityError,
		Message:  fmt.Sprintf("unexpected failure compiling template: %v", cause),
		Location: loc,
		Template: template,
		Internal: true,
		Cause:    errors.WithStack(cause),
	})
}

func (r *Reporter) record(d Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diags = append(r.diags, d)
}

// HasErrors returns true if any error has been recorded.
func (r *Reporter) HasErrors() bool {
	return r.HasErrorsSince(0)
}

// HasErrorsSince returns true if any error (not warning) was recorded after
// the given checkpoint.
func (r *Reporter) HasErrorsSince(checkpoint int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.diags[min(checkpoint, len(r.diags)):] {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns a copy of all recorded error diagnostics.
func (r *Reporter) Errors() []Diagnostic {
	return r.filter(SeverityError)
}

// Warnings returns a copy of all recorded warning diagnostics.
func (r *Reporter) Warnings() []Diagnostic {
	return r.filter(SeverityWarning)
}

func (r *Reporter) filter(sev Severity) []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Diagnostic
	for _, d := range r.diags {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// DiagnosticsSince returns a copy of all diagnostics recorded after the
// given checkpoint, in recording order.
func (r *Reporter) DiagnosticsSince(checkpoint int) []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	tail := r.diags[min(checkpoint, len(r.diags)):]
	out := make([]Diagnostic, len(tail))
	copy(out, tail)
	return out
}

// AggregateSince combines every diagnostic recorded after the checkpoint,
// warnings included, into a single error. It returns nil if no errors were
// recorded since the checkpoint: warnings alone never constitute a failure,
// but they ride along in the bundle when a failure is raised.
func (r *Reporter) AggregateSince(checkpoint int) error {
	diags := r.DiagnosticsSince(checkpoint)
	hasError := false
	var result *multierror.Error
	for _, d := range diags {
		if d.Severity == SeverityError {
			hasError = true
		}
		result = multierror.Append(result, d)
	}
	if !hasError {
		return nil
	}
	return result.ErrorOrNil()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
