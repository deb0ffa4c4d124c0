package ingestor

// State is a step of the per-message ingestion machine.
type State int

const (
	StateIdle State = iota
	StateReceiving
	StateValidating
	StatePersisting
	StateAcked
	StateRejectedDiscard
	StateRejectedRequeue
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReceiving:
		return "receiving"
	case StateValidating:
		return "validating"
	case StatePersisting:
		return "persisting"
	case StateAcked:
		return "acked"
	case StateRejectedDiscard:
		return "rejected_discard"
	case StateRejectedRequeue:
		return "rejected_requeue"
	default:
		return "unknown"
	}
}

// Terminal reports whether s settles the delivery.
func (s State) Terminal() bool {
	return s == StateAcked || s == StateRejectedDiscard || s == StateRejectedRequeue
}

// Outcome is the result of running one delivery through the machine.
type Outcome struct {
	// State is the terminal state reached.
	State State
	// Stage is the last non-terminal state, where a rejection was decided.
	Stage     State
	EventID   string
	ShortCode string
	// Duplicate marks an ack for an event an earlier delivery already persisted.
	Duplicate bool
	Err       error
}

// label is the metrics label for the outcome.
func (o Outcome) label() string {
	if o.State == StateAcked && o.Duplicate {
		return "duplicate"
	}
	return o.State.String()
}
