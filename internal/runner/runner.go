// Package runner drives one conversational turn end to end: resolve the
// session, build a fresh agent graph, consume the event stream, and persist
// the exchange.
package runner

import (
	"context"
	"fmt"

	"github.com/talentops/cv-advisor/internal/agent"
	"github.com/talentops/cv-advisor/internal/log"
	"github.com/talentops/cv-advisor/internal/session"
)

// escalationPrefix prefixes the user-facing answer when an agent escalates.
const escalationPrefix = "Agent escalated: "

// escalationFallback stands in when the escalating agent gave no detail.
const escalationFallback = "No specific message."

// GraphFunc builds the agent graph for one turn. Graphs carry no state
// between turns, so a fresh build per query keeps tool bindings current.
type GraphFunc func() (*agent.Agent, error)

// Runner executes turns against a session store.
type Runner struct {
	executor agent.Executor
	sessions *session.Store
	graph    GraphFunc
	logger   log.Logger
}

// New creates a Runner.
func New(executor agent.Executor, sessions *session.Store, graph GraphFunc, logger log.Logger) (*Runner, error) {
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if graph == nil {
		return nil, fmt.Errorf("graph builder is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Runner{executor: executor, sessions: sessions, graph: graph, logger: logger}, nil
}

// Result is the outcome of one turn.
type Result struct {
	// SessionID identifies the conversation, echoing or minting the id.
	SessionID string

	// Answer is the user-facing reply. Empty when the stream ended without
	// a terminal event.
	Answer string

	// Escalated reports that the answer is an escalation message.
	Escalated bool
}

// Run executes one turn in the user's session. The session is fetched or
// created, the graph answers with the session's history as context, and both
// sides of the exchange are appended to the transcript afterwards.
func (r *Runner) Run(ctx context.Context, userID, sessionID, query string) (Result, error) {
	sess := r.sessions.GetOrCreate(userID, sessionID)

	answer, escalated, err := r.RunWith(ctx, r.graph, sess.History, query)
	if err != nil {
		return Result{}, err
	}

	if err := r.sessions.Append(sess.UserID, sess.ID,
		agent.Message{Role: agent.RoleUser, Text: query},
		agent.Message{Role: agent.RoleAssistant, Text: answer},
	); err != nil {
		// The session vanished mid-turn. The answer is still good.
		r.logger.Warn("failed to persist turn", "session_id", sess.ID, "error", err)
	}

	return Result{SessionID: sess.ID, Answer: answer, Escalated: escalated}, nil
}

// RunWith executes one turn of an arbitrary graph without touching any
// session. Used for one-shot queries against standalone graphs.
func (r *Runner) RunWith(ctx context.Context, graph GraphFunc, history []agent.Message, query string) (answer string, escalated bool, err error) {
	root, err := graph()
	if err != nil {
		return "", false, fmt.Errorf("build agent graph: %w", err)
	}

	events, err := r.executor.Execute(ctx, root, history, query)
	if err != nil {
		return "", false, fmt.Errorf("execute agent graph: %w", err)
	}

	answer, escalated = r.consume(events, root.Name)
	return answer, escalated, nil
}

// consume drains the stream up to the first terminal event and derives the
// answer from it. Intermediate events are logged, not surfaced.
func (r *Runner) consume(events <-chan agent.Event, rootName string) (string, bool) {
	for ev := range events {
		if !ev.Final {
			r.logger.Debug("intermediate agent event", "author", ev.Author, "text", ev.Text)
			continue
		}
		if ev.Escalated {
			msg := ev.ErrMessage
			if msg == "" {
				msg = escalationFallback
			}
			r.logger.Warn("agent escalated", "author", ev.Author, "message", msg)
			return escalationPrefix + msg, true
		}
		return ev.Text, false
	}

	r.logger.Warn("event stream ended without a terminal event", "agent", rootName)
	return "", false
}
