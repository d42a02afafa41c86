package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/talentops/cv-advisor/internal/log"
)

// ReadPageToolName is the identifier the model uses to fetch a web page.
const ReadPageToolName = "read_web_page"

const readPageDescription = "Use this tool to fetch and read the text content of a specific web page URL, for example a job posting or a company page"

// maxPageRunes caps extracted page text so a single page cannot flood the
// model context.
const maxPageRunes = 8000

const defaultFetchTimeout = 15 * time.Second

// ReadPage fetches a URL and extracts its readable text. Fetches are rate
// limited per binding so an eager model cannot hammer remote sites.
type ReadPage struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  log.Logger
}

// NewReadPage creates the page reading binding. A nil client gets a default
// with a fetch timeout.
func NewReadPage(client *http.Client, limiter *rate.Limiter, logger log.Logger) (*ReadPage, error) {
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &ReadPage{client: client, limiter: limiter, logger: logger}, nil
}

func (p *ReadPage) Name() string        { return ReadPageToolName }
func (p *ReadPage) Description() string { return readPageDescription }

// Call fetches the page and returns its title and visible text.
func (p *ReadPage) Call(ctx context.Context, input string) (string, error) {
	target := strings.TrimSpace(input)
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("input must be an http or https URL, got %q", input)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "cv-advisor/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %d", target, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", target, err)
	}

	doc.Find("script, style, noscript, iframe").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	text := normalizeWhitespace(doc.Find("body").Text())
	if text == "" {
		return "", fmt.Errorf("page %s has no readable text", target)
	}
	if runes := []rune(text); len(runes) > maxPageRunes {
		text = string(runes[:maxPageRunes]) + " [truncated]"
	}

	p.logger.Debug("page read", "url", target, "title", title, "text_len", len(text))

	if title == "" {
		return text, nil
	}
	return title + "\n\n" + text, nil
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
