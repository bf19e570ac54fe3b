package notation

// Status is the resolution stage of a segment.
type Status int

const (
	StatusUnknown Status = iota
	StatusPendingRoll
	StatusPendingEvaluation
	StatusResolved
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusPendingRoll:
		return "PENDING_ROLL"
	case StatusPendingEvaluation:
		return "PENDING_EVALUATION"
	case StatusResolved:
		return "RESOLVED"
	default:
		return "UNKNOWN"
	}
}
