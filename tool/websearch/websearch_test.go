package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTool(t *testing.T, handler http.HandlerFunc) *Tool {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(func(o *Options) {
		o.BaseURL = srv.URL
		o.HTTPClient = srv.Client()
	})
}

func TestCallReturnsResults(t *testing.T) {
	var gotQuery string
	tl := newTestTool(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"Heading":      "Pizza",
			"AbstractText": "Pizza is a dish of Italian origin.",
			"AbstractURL":  "https://example.org/pizza",
			"RelatedTopics": []map[string]any{
				{"Text": "Neapolitan pizza", "FirstURL": "https://example.org/neapolitan"},
				{"Topics": []map[string]any{
					{"Text": "Pizza margherita", "FirstURL": "https://example.org/margherita"},
				}},
			},
		})
	})

	result, err := tl.Call(context.Background(), nil, map[string]any{"userQuery": "pizza recipes"})
	require.NoError(t, err)
	assert.Equal(t, "pizza recipes", gotQuery)

	payload := result.(map[string]any)
	results := payload["results"].([]Result)
	require.Len(t, results, 3)
	assert.Equal(t, "Pizza", results[0].Title)
	assert.Equal(t, "https://example.org/pizza", results[0].Href)
	assert.Equal(t, "Neapolitan pizza", results[1].Title)
	assert.Equal(t, "Pizza margherita", results[2].Title)
}

func TestCallCapsResults(t *testing.T) {
	topics := make([]map[string]any, 10)
	for i := range topics {
		topics[i] = map[string]any{"Text": "hit", "FirstURL": "https://example.org"}
	}
	tl := newTestTool(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"RelatedTopics": topics})
	})

	result, err := tl.Call(context.Background(), nil, map[string]any{"userQuery": "anything"})
	require.NoError(t, err)
	results := result.(map[string]any)["results"].([]Result)
	assert.Len(t, results, 5)
}

func TestCallRejectsEmptyQuery(t *testing.T) {
	tl := New()
	_, err := tl.Call(context.Background(), nil, map[string]any{})
	assert.Error(t, err)
}

func TestCallSurfacesHTTPFailure(t *testing.T) {
	tl := newTestTool(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := tl.Call(context.Background(), nil, map[string]any{"userQuery": "pizza"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
}
