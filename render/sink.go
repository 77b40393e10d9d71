package render

import (
	"io"
	"strings"
)

// Sink receives rendered output. SoftLimited is the backpressure signal: a
// true return asks the producer to pause at its next suspension point.
// Writes always succeed regardless of the signal; the limit is advisory.
type Sink interface {
	io.StringWriter

	// SoftLimited reports whether the consumer wants rendering to pause.
	SoftLimited() bool
}

// BufferSink accumulates output in memory and never signals backpressure.
type BufferSink struct {
	buf strings.Builder
}

// NewBufferSink returns an empty buffer sink.
func NewBufferSink() *BufferSink {
	return &BufferSink{}
}

// WriteString appends to the buffer.
func (b *BufferSink) WriteString(s string) (int, error) {
	return b.buf.WriteString(s)
}

// SoftLimited always returns false.
func (b *BufferSink) SoftLimited() bool {
	return false
}

// String returns the accumulated output.
func (b *BufferSink) String() string {
	return b.buf.String()
}

// Len returns the number of bytes accumulated.
func (b *BufferSink) Len() int {
	return b.buf.Len()
}

// Reset clears the buffer.
func (b *BufferSink) Reset() {
	b.buf.Reset()
}

// LimitSink forwards writes to an underlying writer and signals backpressure
// once the byte count since the last reset reaches the threshold.
type LimitSink struct {
	w       io.StringWriter
	limit   int
	written int
}

// NewLimitSink wraps a writer with a soft byte limit.
func NewLimitSink(w io.StringWriter, limit int) *LimitSink {
	return &LimitSink{w: w, limit: limit}
}

// WriteString forwards to the underlying writer. Writes are never truncated:
// the limit only affects the SoftLimited signal.
func (l *LimitSink) WriteString(s string) (int, error) {
	n, err := l.w.WriteString(s)
	l.written += n
	return n, err
}

// SoftLimited reports whether the soft limit has been reached.
func (l *LimitSink) SoftLimited() bool {
	return l.limit > 0 && l.written >= l.limit
}

// ResetBudget restarts the byte count, typically after the consumer drained
// its buffer and resumed the producer.
func (l *LimitSink) ResetBudget() {
	l.written = 0
}
