package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/talentops/cv-advisor/internal/log"
)

// eventBuffer sizes the per-turn event channel. Intermediate events are few
// (one per delegation) and the consumer drains until the terminal event.
const eventBuffer = 16

// defaultMaxTurns bounds the tool-calling loop of one generate call.
const defaultMaxTurns = 5

// GenkitConfig contains all required parameters for the Genkit executor.
type GenkitConfig struct {
	Genkit *genkit.Genkit

	// ModelPrefix namespaces model identifiers for the configured plugin,
	// e.g. "googleai" or "vertexai".
	ModelPrefix string

	Logger log.Logger

	// MaxTurns bounds the agentic loop per generate call (0 = default).
	MaxTurns int

	// RateLimiter optionally throttles generate calls (nil = disabled).
	RateLimiter *rate.Limiter
}

func (cfg GenkitConfig) validate() error {
	if cfg.Genkit == nil {
		return fmt.Errorf("genkit instance is required")
	}
	if cfg.ModelPrefix == "" {
		return fmt.Errorf("model prefix is required")
	}
	if cfg.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	return nil
}

// GenkitExecutor runs agent graphs on Genkit models.
//
// Delegation is realized agent-as-tool: each sub-agent is registered as a
// callable tool of the coordinator, in configured order, and a tool call runs
// the sub-agent's own generate loop. Genkit tool names are global per process,
// so registration happens once per name; the implementations resolve the
// per-turn graph node from the context, keeping each request's freshly built
// configuration authoritative.
type GenkitExecutor struct {
	g           *genkit.Genkit
	modelPrefix string
	maxTurns    int
	limiter     *rate.Limiter
	logger      log.Logger

	mu         sync.Mutex
	registered map[string]ai.ToolRef
}

// NewGenkitExecutor creates an executor with the given configuration.
func NewGenkitExecutor(cfg GenkitConfig) (*GenkitExecutor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}

	return &GenkitExecutor{
		g:           cfg.Genkit,
		modelPrefix: cfg.ModelPrefix,
		maxTurns:    maxTurns,
		limiter:     cfg.RateLimiter,
		logger:      cfg.Logger,
		registered:  make(map[string]ai.ToolRef),
	}, nil
}

// turn carries one request's graph and event sink through tool callbacks.
type turn struct {
	root   *Agent
	scope  *Agent // agent whose tools are in effect for the current generate
	events chan<- Event
}

type turnKey struct{}

func withTurn(ctx context.Context, t *turn) context.Context {
	return context.WithValue(ctx, turnKey{}, t)
}

func turnFrom(ctx context.Context) (*turn, bool) {
	t, ok := ctx.Value(turnKey{}).(*turn)
	return t, ok
}

// Execute runs the graph and returns its event stream. Errors from the
// reasoning engine become escalation events, not Go errors: the stream is the
// only failure channel once the turn has been dispatched.
func (e *GenkitExecutor) Execute(ctx context.Context, root *Agent, history []Message, query string) (<-chan Event, error) {
	if err := root.Validate(); err != nil {
		return nil, err
	}

	events := make(chan Event, eventBuffer)

	go func() {
		defer close(events)

		t := &turn{root: root, scope: root, events: events}
		tctx := withTurn(ctx, t)

		text, err := e.generate(tctx, root, history, query)
		if err != nil {
			e.logger.Error("agent execution failed", "agent", root.Name, "error", err)
			events <- Event{Author: root.Name, Escalated: true, ErrMessage: err.Error(), Final: true}
			return
		}

		events <- Event{Author: root.Name, Text: text, Final: true}
	}()

	return events, nil
}

// generate runs one agent's generate loop with its tools or delegations.
func (e *GenkitExecutor) generate(ctx context.Context, a *Agent, history []Message, query string) (string, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(e.modelPrefix + "/" + a.Model),
		ai.WithSystem(a.Instruction),
		ai.WithPrompt(query),
		ai.WithMaxTurns(e.maxTurns),
	}
	if len(history) > 0 {
		opts = append(opts, ai.WithMessages(toAIMessages(history)...))
	}
	if refs := e.toolRefs(a); len(refs) > 0 {
		opts = append(opts, ai.WithTools(refs...))
	}

	resp, err := genkit.Generate(ctx, e.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generate failed for agent %q: %w", a.Name, err)
	}
	return resp.Text(), nil
}

// toolRefs resolves an agent's callable surface: delegation tools for a
// coordinator, binding tools for a specialist. Registration is once per name.
func (e *GenkitExecutor) toolRefs(a *Agent) []ai.ToolRef {
	e.mu.Lock()
	defer e.mu.Unlock()

	var refs []ai.ToolRef
	if a.Kind == KindCoordinator {
		for _, sub := range a.SubAgents {
			refs = append(refs, e.delegationToolLocked(sub.Name, sub.Description))
		}
		return refs
	}
	for _, b := range a.Tools {
		refs = append(refs, e.bindingToolLocked(b.Name(), b.Description()))
	}
	return refs
}

// toolInput is the schema shared by all registered tools.
type toolInput struct {
	Query string `json:"query" jsonschema_description:"The question or request to handle"`
}

func (e *GenkitExecutor) bindingToolLocked(name, description string) ai.ToolRef {
	if ref, ok := e.registered[name]; ok {
		return ref
	}

	tool := genkit.DefineTool(e.g, name, description,
		func(tctx *ai.ToolContext, input toolInput) (string, error) {
			t, ok := turnFrom(tctx)
			if !ok {
				return "", fmt.Errorf("tool %q called outside a turn", name)
			}
			binding := t.scope.Tool(name)
			if binding == nil {
				return "", fmt.Errorf("agent %q holds no tool %q", t.scope.Name, name)
			}
			return binding.Call(tctx, input.Query)
		})

	e.registered[name] = tool
	return tool
}

func (e *GenkitExecutor) delegationToolLocked(name, description string) ai.ToolRef {
	if ref, ok := e.registered[name]; ok {
		return ref
	}

	tool := genkit.DefineTool(e.g, name, description,
		func(tctx *ai.ToolContext, input toolInput) (string, error) {
			t, ok := turnFrom(tctx)
			if !ok {
				return "", fmt.Errorf("sub-agent %q called outside a turn", name)
			}
			sub := t.root.SubAgent(name)
			if sub == nil {
				return "", fmt.Errorf("coordinator %q has no sub-agent %q", t.root.Name, name)
			}

			// Scope the nested generate to the sub-agent's own tools.
			// Sub-agents see only the delegated question, not the
			// coordinator's history.
			subTurn := &turn{root: t.root, scope: sub, events: t.events}
			text, err := e.generate(withTurn(tctx, subTurn), sub, nil, input.Query)
			if err != nil {
				return "", err
			}

			t.events <- Event{Author: sub.Name, Text: text}
			return text, nil
		})

	e.registered[name] = tool
	return tool
}

func toAIMessages(history []Message) []*ai.Message {
	msgs := make([]*ai.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case RoleAssistant:
			msgs = append(msgs, ai.NewModelTextMessage(m.Text))
		default:
			msgs = append(msgs, ai.NewUserTextMessage(m.Text))
		}
	}
	return msgs
}
