// Package advisor defines the CV advisor's agent graphs.
//
// The main graph is a coordinator that delegates to two corpus-backed
// specialists. A separate standalone searcher graph answers general questions
// with external search. Agent wording is part of observable behavior, so the
// instructions here are fixed strings rather than templates.
package advisor

import (
	"fmt"

	"github.com/talentops/cv-advisor/internal/agent"
)

// Agent names. These appear as event authors and tool identifiers.
const (
	CoordinatorName = "cv_master_agent"
	MatcherName     = "CVMatcherAgent"
	SearcherName    = "CVSearchAgent"
	WebSearcherName = "searcher_agent"
)

const coordinatorInstruction = "You are a master coordinator agent. Your goal is to answer user queries that may require combining information from different experts. " +
	"You have a CVMatcherAgent and a CVSearchAgent available as sub-agents. " +
	"If a question is about finding the best resume for a given job profile, first use the CVMatcherAgent to find the perfect CV match, " +
	"then use the CVSearchAgent to answer general questions about the storage CVs. " +
	"Clearly state the information found by each expert."

const matcherInstruction = `You are an experienced talent recruiter with extensive experience selecting technical candidates (expert hiring manager).
Using the information retrieved from the indexed CV documents, your task is to review and analyze a set of resumes and select those that best fit a specific job profile.

When evaluating each resume against the job profile, consider the following key criteria, prioritizing the "Must-Have Requirements":
1. **Alignment with Must-Have Requirements:** Does the candidate meet the mandatory experience requirements (years, technology, role), education, and certifications?
2. **Relevant Experience:** How directly does your past experience (companies, roles, responsibilities) relate to the position?
3. **Technical Skills:** Do you possess and demonstrate proficiency in the listed technologies and tools (Python, PostgreSQL, Cloud, etc.)?
4. **Achievements and Results:** Does the CV present measurable achievements or impacts that demonstrate your worth and capabilities?
5. **Alignment with Desirable Requirements:** Does it meet any of the requirements that are an advantage?
6. **Progression and Stability:** Does it demonstrate a career with reasonable growth and stability?

Your goal is to identify the MOST SUITABLE candidates and provide a concise justification for each.

Submit your response in a ordered list. Each item in the list should start with the "-" symbol and contain:
- "name": The candidate's name (or CV identifier).
- "score" (optional but desirable): A numerical score (e.g., 1-100) indicating how well they fit (where 100 is the perfect fit).
- "justification": A short explanation of why they are a good candidate, highlighting 2-3 key points from their CV that align with the position.

If you feel a candidate is not a good fit, you can mention them briefly in a separate section or simply omit them from the top shortlist.`

const searcherInstruction = "You are a helpful agent who can answer user questions about indexed curriculum vitaes."

const webSearcherInstruction = "You are a helpful agent who can answer user questions and search externally in Google and Linkedin."

// New builds the coordinator graph. Both specialists share the retrieval
// binding; the binding re-resolves the corpus on every call, so one graph
// build per query keeps retrieval pointed at the current corpus.
func New(model string, retrieval agent.ToolBinding) (*agent.Agent, error) {
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if retrieval == nil {
		return nil, fmt.Errorf("retrieval binding is required")
	}

	matcher := &agent.Agent{
		Kind:        agent.KindSpecialist,
		Name:        MatcherName,
		Description: "Answers any user question about resumes",
		Instruction: matcherInstruction,
		Model:       model,
		Tools:       []agent.ToolBinding{retrieval},
	}

	searcher := &agent.Agent{
		Kind:        agent.KindSpecialist,
		Name:        SearcherName,
		Description: "Answers any user question about resumes",
		Instruction: searcherInstruction,
		Model:       model,
		Tools:       []agent.ToolBinding{retrieval},
	}

	root := &agent.Agent{
		Kind:        agent.KindCoordinator,
		Name:        CoordinatorName,
		Description: "Coordinates tasks between curriculum vitaes best matcher and searches",
		Instruction: coordinatorInstruction,
		Model:       model,
		SubAgents:   []*agent.Agent{matcher, searcher},
	}

	if err := root.Validate(); err != nil {
		return nil, err
	}
	return root, nil
}

// NewWebSearcher builds the standalone external search graph. It is not part
// of the coordinator; one-shot search queries run it directly.
func NewWebSearcher(model string, bindings ...agent.ToolBinding) (*agent.Agent, error) {
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(bindings) == 0 {
		return nil, fmt.Errorf("at least one search binding is required")
	}

	searcher := &agent.Agent{
		Kind:        agent.KindSpecialist,
		Name:        WebSearcherName,
		Description: "Answers any user question",
		Instruction: webSearcherInstruction,
		Model:       model,
		Tools:       bindings,
	}

	if err := searcher.Validate(); err != nil {
		return nil, err
	}
	return searcher, nil
}
