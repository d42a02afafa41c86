package agent

// Event is one element of a turn's event stream. Streams are finite and
// possibly empty; consumers stop at the first event with Final set.
type Event struct {
	// Author names the agent that produced the event.
	Author string

	// Text is the event content. For the terminal event it is the turn's
	// answer; for intermediate events it is a sub-agent's finding.
	Text string

	// Escalated marks agent-reported failure. The runner substitutes an
	// escalation message for the answer instead of surfacing an error code.
	Escalated bool

	// ErrMessage carries the failure detail when Escalated is set.
	ErrMessage string

	// Final marks the terminal event of the turn. Events after the first
	// terminal one are ignored by consumers.
	Final bool
}

// Role values for conversation history handed to an Executor.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prior conversation turn.
type Message struct {
	Role string
	Text string
}
