package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	appmodels "github.com/mohammad-safakhou/threader/models"
	"github.com/mohammad-safakhou/threader/tools/web_search/models"
)

const DefaultEndpoint = "https://google.serper.dev/search"

type Search struct {
	ApiKey   string
	Endpoint string
	Client   *http.Client
}

type organic struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
}

// Search posts the query to serper.dev and returns the organic hits together with
// the untouched response body.
func (s *Search) Search(ctx context.Context, q string, k int) (appmodels.SearchResponse, error) {
	// https://serper.dev/ docs
	payload := map[string]any{"q": q}
	if k > 0 {
		payload["num"] = k
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return appmodels.SearchResponse{}, fmt.Errorf("serper: marshal request: %w", err)
	}

	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return appmodels.SearchResponse{}, fmt.Errorf("serper: build request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.ApiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client().Do(req)
	if err != nil {
		return appmodels.SearchResponse{}, fmt.Errorf("serper: send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return appmodels.SearchResponse{}, fmt.Errorf("serper: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return appmodels.SearchResponse{}, &models.StatusError{Provider: "serper", StatusCode: resp.StatusCode, Body: truncate(raw, 512)}
	}

	var parsed struct {
		Organic []organic `json:"organic"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return appmodels.SearchResponse{}, fmt.Errorf("serper: decode response: %w", err)
	}

	out := appmodels.SearchResponse{Query: q, Provider: "serper", Raw: json.RawMessage(raw)}
	for i, it := range parsed.Organic {
		if k > 0 && i >= k {
			break
		}
		out.Results = append(out.Results, appmodels.SearchResult{
			Title: it.Title, URL: it.Link, Snippet: it.Snippet, Position: it.Position,
		})
	}
	return out, nil
}

func (s *Search) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}
