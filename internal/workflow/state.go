package workflow

// State is the externally observable workflow state. It is derived from the
// controller's selection/result fields and only changes through controller
// operations.
type State int

const (
	StateIdle State = iota
	StateFileSelected
	StateCompressing
	StateCompleted
	StateFailed
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFileSelected:
		return "file_selected"
	case StateCompressing:
		return "compressing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AnalysisState tracks the best-effort assessment of the selected file. It is
// orthogonal to State and never blocks a main-state transition.
type AnalysisState int

const (
	AnalysisUnstarted AnalysisState = iota
	AnalysisPending
	AnalysisAvailable
	AnalysisUnavailable
)

// String returns the wire name of the analysis state.
func (s AnalysisState) String() string {
	switch s {
	case AnalysisUnstarted:
		return "unstarted"
	case AnalysisPending:
		return "pending"
	case AnalysisAvailable:
		return "available"
	case AnalysisUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}
