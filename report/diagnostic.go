package report

import (
	"fmt"
	"strings"
)

// Severity categorizes a diagnostic.
type Severity uint8

const (
	// SeverityError indicates a problem that makes the template unusable.
	SeverityError Severity = iota
	// SeverityWarning indicates a problem that does not block compilation.
	SeverityWarning
)

// String returns the name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic is one recorded error or warning. User errors carry only the
// template source location; internal compiler failures additionally carry the
// compiler's own execution trace in Cause, so template authors are never
// shown compiler internals as if they were their mistake.
type Diagnostic struct {
	Severity Severity
	Message  string
	Location SourceLocation
	Template string // Fully-qualified template name, if known

	// Internal is true when the diagnostic records a compiler bug rather
	// than a problem in the template source.
	Internal bool

	// Cause carries the underlying error for internal failures, wrapped
	// with a stack trace at the point of capture.
	Cause error
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	var b strings.Builder
	if d.Internal {
		b.WriteString("internal compiler error")
	} else {
		b.WriteString(d.Severity.String())
	}
	b.WriteString(": ")
	b.WriteString(d.Message)
	if !d.Location.IsZero() {
		fmt.Fprintf(&b, " (%s)", d.Location.String())
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (d Diagnostic) Unwrap() error {
	return d.Cause
}

// FriendlyErrorMessage returns a human-friendly rendering of the diagnostic
// with a source snippet and caret when the location carries source text.
func (d Diagnostic) FriendlyErrorMessage() string {
	var msg strings.Builder
	msg.WriteString(d.Error())
	msg.WriteString("\n")
	if d.Template != "" {
		fmt.Fprintf(&msg, "  in template %s\n", d.Template)
	}
	if d.Location.Source != "" {
		msg.WriteString(" | ")
		msg.WriteString(d.Location.Source)
		msg.WriteString("\n")
		if d.Location.Column > 0 {
			msg.WriteString(" | ")
			msg.WriteString(strings.Repeat(" ", d.Location.Column-1))
			msg.WriteString("^\n")
		}
	}
	if d.Internal && d.Cause != nil {
		fmt.Fprintf(&msg, "  compiler trace: %+v\n", d.Cause)
	}
	return msg.String()
}
