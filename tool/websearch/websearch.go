// Package websearch provides the web search capability backed by the
// DuckDuckGo Instant Answer API. It is a boundary collaborator: the core
// only sees the uniform tool contract.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hupe1980/concierge/tool"
)

// ToolName is the registry key under which the capability is exposed.
const ToolName = "WEB_SEARCH_TOOL"

const defaultBaseURL = "https://api.duckduckgo.com"

// Result is one search hit returned to the transcript.
type Result struct {
	Title   string `json:"title"`
	Href    string `json:"href"`
	Snippet string `json:"snippet"`
}

// Options configure the search tool.
type Options struct {
	// BaseURL overrides the DuckDuckGo endpoint (tests point it at a local server).
	BaseURL string
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
	// MaxResults caps the number of returned hits.
	MaxResults int
}

// Tool searches DuckDuckGo for the user query and returns the top results.
type Tool struct {
	client     *http.Client
	baseURL    string
	maxResults int
}

var _ tool.Tool = (*Tool)(nil)

// New creates the search tool with optional overrides.
func New(optFns ...func(o *Options)) *Tool {
	opts := Options{
		BaseURL:    defaultBaseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		MaxResults: 5,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Tool{client: opts.HTTPClient, baseURL: opts.BaseURL, maxResults: opts.MaxResults}
}

// Name implements tool.Tool.
func (t *Tool) Name() string { return ToolName }

// Description implements tool.Tool.
func (t *Tool) Description() string {
	return "Searches the web for the user query and returns the top results."
}

// Parameters implements tool.Tool.
func (t *Tool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"userQuery": map[string]any{
				"type":        "string",
				"description": "The raw user query to search for",
			},
		},
		"required": []string{"userQuery"},
	}
}

// apiResponse mirrors the subset of the Instant Answer payload we consume.
type apiResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	RelatedTopics []apiTopic `json:"RelatedTopics"`
}

type apiTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []apiTopic `json:"Topics"`
}

// Call implements tool.Tool. The result is a map with a "results" list so
// the reasoning service sees structured hits in the transcript.
func (t *Tool) Call(ctx context.Context, _ *tool.Context, args map[string]any) (any, error) {
	query, _ := args["userQuery"].(string)
	if query == "" {
		return nil, fmt.Errorf("userQuery must be a non-empty string")
	}

	endpoint := fmt.Sprintf("%s/?q=%s&format=json&no_html=1&no_redirect=1", t.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed: unexpected status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	results := make([]Result, 0, t.maxResults)
	if payload.AbstractText != "" {
		results = append(results, Result{
			Title:   payload.Heading,
			Href:    payload.AbstractURL,
			Snippet: payload.AbstractText,
		})
	}
	results = appendTopics(results, payload.RelatedTopics, t.maxResults)

	return map[string]any{"results": results}, nil
}

// appendTopics flattens nested topic groups until the cap is reached.
func appendTopics(results []Result, topics []apiTopic, maxResults int) []Result {
	for _, topic := range topics {
		if len(results) >= maxResults {
			break
		}
		if len(topic.Topics) > 0 {
			results = appendTopics(results, topic.Topics, maxResults)
			continue
		}
		if topic.Text == "" {
			continue
		}
		results = append(results, Result{Title: topic.Text, Href: topic.FirstURL, Snippet: topic.Text})
	}
	return results
}
