package agent

import "context"

// Executor runs an agent graph for one turn and emits its event stream.
//
// The channel is closed when the turn's stream ends. A well-behaved executor
// emits the terminal event last, so consumers that stop at the first Final
// event never strand the producer. An executor that never emits a terminal
// event yields an empty answer upstream; that is the documented behavior, not
// something implementations should paper over.
type Executor interface {
	Execute(ctx context.Context, root *Agent, history []Message, query string) (<-chan Event, error)
}
