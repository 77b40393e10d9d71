package unit

// Status is the sentinel returned by one invocation of a compiled unit. It
// distinguishes a completed render from the two suspension conditions.
type Status uint8

const (
	// StatusDone indicates the unit finished rendering.
	StatusDone Status = 0

	// StatusDataUnavailable indicates the unit suspended waiting for a lazy
	// input that has not resolved yet.
	StatusDataUnavailable Status = 1

	// StatusOutputLimited indicates the unit suspended because the output
	// sink signaled backpressure.
	StatusOutputLimited Status = 2
)

// String returns the name of the status.
func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusDataUnavailable:
		return "data_unavailable"
	case StatusOutputLimited:
		return "output_limited"
	default:
		return "invalid"
	}
}
