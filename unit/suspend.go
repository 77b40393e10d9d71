package unit

// SuspendKind identifies why a suspension point exists.
type SuspendKind uint8

const (
	// SuspendData marks a point that waits for a lazy input value.
	SuspendData SuspendKind = iota
	// SuspendOutput marks a point that yields to output backpressure.
	SuspendOutput
	// SuspendCall marks a point that propagates a callee's suspension.
	SuspendCall
)

// String returns the name of the suspend kind.
func (k SuspendKind) String() string {
	switch k {
	case SuspendData:
		return "data"
	case SuspendOutput:
		return "output"
	case SuspendCall:
		return "call"
	default:
		return "invalid"
	}
}

// SuspensionPoint describes one location in a unit's instruction stream
// where rendering may pause. When an instance suspends at a point, it saves
// its live locals and operand stack; resuming restores that state and
// continues from ResumeIP.
type SuspensionPoint struct {
	// ResumeIP is the instruction offset execution restarts from.
	ResumeIP int

	// Kind records why the point exists. Advisory: the runtime treats all
	// points uniformly when restoring state.
	Kind SuspendKind
}
