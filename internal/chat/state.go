// ABOUTME: Exchange state and submit outcomes for the conversation controller
// ABOUTME: Idle and Dispatching are the only exchange states; Outcome reports what Submit did

package chat

// ExchangeState is the lifecycle of the single in-flight exchange.
type ExchangeState int

const (
	// Idle means no exchange is in flight and a new one may start.
	Idle ExchangeState = iota
	// Dispatching means a call to the assistant is outstanding.
	Dispatching
)

func (s ExchangeState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dispatching:
		return "dispatching"
	default:
		return "unknown"
	}
}

// Outcome reports how a Submit call was handled.
type Outcome int

const (
	// OutcomeIgnored: the trimmed text was empty. Nothing changed.
	OutcomeIgnored Outcome = iota
	// OutcomeBusy: an exchange was already in flight. Nothing changed.
	OutcomeBusy
	// OutcomeNotReady: the assistant is not available yet; a notice was appended.
	OutcomeNotReady
	// OutcomeReplied: the assistant answered and the reply was appended.
	OutcomeReplied
	// OutcomeFailed: the assistant call failed and an error message was appended.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeBusy:
		return "busy"
	case OutcomeNotReady:
		return "not_ready"
	case OutcomeReplied:
		return "replied"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Dispatched reports whether the outcome involved a call to the assistant.
func (o Outcome) Dispatched() bool {
	return o == OutcomeReplied || o == OutcomeFailed
}
