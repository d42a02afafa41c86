package tools

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/talentops/cv-advisor/internal/log"
)

// WebSearchToolName is the identifier the model uses to call web search.
const WebSearchToolName = "google_search"

const webSearchDescription = "Use this tool to search the web for current information, such as market trends, technologies, or public facts not present in the corpus"

// WebSearch binds grounded web search. The query is answered by a model call
// with the GoogleSearch grounding tool enabled, so the result is already a
// synthesized text rather than a raw hit list.
type WebSearch struct {
	client *genai.Client
	model  string
	logger log.Logger
}

// NewWebSearch creates the web search binding.
func NewWebSearch(client *genai.Client, model string, logger log.Logger) (*WebSearch, error) {
	if client == nil {
		return nil, fmt.Errorf("genai client is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &WebSearch{client: client, model: model, logger: logger}, nil
}

func (w *WebSearch) Name() string        { return WebSearchToolName }
func (w *WebSearch) Description() string { return webSearchDescription }

// Call runs a grounded generation for the query.
func (w *WebSearch) Call(ctx context.Context, query string) (string, error) {
	resp, err := w.client.Models.GenerateContent(ctx, w.model, genai.Text(query), &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	})
	if err != nil {
		return "", fmt.Errorf("grounded search: %w", err)
	}

	text := resp.Text()
	w.logger.Debug("web search", "query", query, "answer_len", len(text))
	if text == "" {
		return "The web search returned no results for this query.", nil
	}
	return text, nil
}
