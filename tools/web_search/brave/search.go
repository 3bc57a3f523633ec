package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	appmodels "github.com/mohammad-safakhou/threader/models"
	"github.com/mohammad-safakhou/threader/tools/web_search/models"
)

const DefaultEndpoint = "https://api.search.brave.com/res/v1/web/search"

type Search struct {
	ApiKey   string
	Endpoint string
	Client   *http.Client
}

func (s *Search) Search(ctx context.Context, q string, k int) (appmodels.SearchResponse, error) {
	// https://api.search.brave.com/app/documentation/web-search
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return appmodels.SearchResponse{}, fmt.Errorf("brave: invalid endpoint: %w", err)
	}
	query := u.Query()
	query.Set("q", q)
	if k > 0 {
		query.Set("count", strconv.Itoa(k))
	}
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return appmodels.SearchResponse{}, fmt.Errorf("brave: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.ApiKey)

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return appmodels.SearchResponse{}, fmt.Errorf("brave: send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return appmodels.SearchResponse{}, fmt.Errorf("brave: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := raw
		if len(body) > 512 {
			body = body[:512]
		}
		return appmodels.SearchResponse{}, &models.StatusError{Provider: "brave", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return appmodels.SearchResponse{}, fmt.Errorf("brave: decode response: %w", err)
	}

	out := appmodels.SearchResponse{Query: q, Provider: "brave", Raw: json.RawMessage(raw)}
	for i, r := range parsed.Web.Results {
		if k > 0 && i >= k {
			break
		}
		out.Results = append(out.Results, appmodels.SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Snippet, Position: i + 1})
	}
	return out, nil
}
