// Package agent models the advisor's agent graph as data.
//
// An Agent is a configuration object: a role name, an immutable natural-language
// instruction, a model identifier, and either tool bindings (specialist) or an
// ordered list of sub-agents to delegate to (coordinator). The reasoning that
// interprets the instruction lives behind the Executor interface, so it can be
// replaced with a deterministic stub in tests.
//
// Graphs are rebuilt from scratch for every query; nothing here carries state
// between turns.
package agent

import (
	"context"
	"errors"
	"fmt"
)

// Kind discriminates the two agent variants.
type Kind int

const (
	// KindSpecialist responds itself, using its own tool bindings.
	KindSpecialist Kind = iota

	// KindCoordinator delegates to its sub-agents in configured order and
	// synthesizes their findings into one reply.
	KindCoordinator
)

// ToolBinding is a single callable capability handed to a specialist.
// Implementations wrap a remote service (corpus retrieval, web search) with
// fixed parameters; every Call re-issues a fresh remote request.
type ToolBinding interface {
	// Name is the tool identifier the model calls.
	Name() string

	// Description tells the model when to use the tool.
	Description() string

	// Call executes the capability. Remote errors propagate to the calling
	// agent, which narrates them in natural language.
	Call(ctx context.Context, input string) (string, error)
}

// Agent is one node of the graph. Immutable once constructed.
type Agent struct {
	Kind        Kind
	Name        string
	Description string
	Instruction string
	Model       string

	// Tools are the specialist's bindings. Empty for coordinators.
	Tools []ToolBinding

	// SubAgents is the coordinator's ordered delegation list.
	// Empty for specialists.
	SubAgents []*Agent
}

// Validate checks structural invariants of the graph rooted at a.
func (a *Agent) Validate() error {
	if a == nil {
		return errors.New("agent is nil")
	}
	if a.Name == "" {
		return errors.New("agent name is required")
	}
	if a.Instruction == "" {
		return fmt.Errorf("agent %q: instruction is required", a.Name)
	}
	if a.Model == "" {
		return fmt.Errorf("agent %q: model is required", a.Name)
	}

	switch a.Kind {
	case KindSpecialist:
		if len(a.SubAgents) > 0 {
			return fmt.Errorf("specialist %q must not have sub-agents", a.Name)
		}
	case KindCoordinator:
		if len(a.Tools) > 0 {
			return fmt.Errorf("coordinator %q must not hold tools directly", a.Name)
		}
		if len(a.SubAgents) == 0 {
			return fmt.Errorf("coordinator %q needs at least one sub-agent", a.Name)
		}
		for _, sub := range a.SubAgents {
			if sub.Kind != KindSpecialist {
				return fmt.Errorf("coordinator %q: nested coordinators are not supported", a.Name)
			}
			if err := sub.Validate(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("agent %q: unknown kind %d", a.Name, a.Kind)
	}

	return nil
}

// SubAgent returns the sub-agent with the given name, or nil.
func (a *Agent) SubAgent(name string) *Agent {
	for _, sub := range a.SubAgents {
		if sub.Name == name {
			return sub
		}
	}
	return nil
}

// Tool returns the binding with the given name, or nil.
func (a *Agent) Tool(name string) ToolBinding {
	for _, t := range a.Tools {
		if t.Name() == name {
			return t
		}
	}
	return nil
}
