package pipeline

// State is a record's position in the acquire, process, classify sequence.
type State int

const (
	Queued State = iota
	Acquiring
	Processing
	Classifying
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Queued:
		return "queued"
	case Acquiring:
		return "acquiring"
	case Processing:
		return "processing"
	case Classifying:
		return "classifying"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Done || s == Failed
}
