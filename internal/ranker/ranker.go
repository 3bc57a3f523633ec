package ranker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/threader/internal/helpers"
	"github.com/mohammad-safakhou/threader/internal/structured"
	"github.com/mohammad-safakhou/threader/models"
)

var (
	ErrInvalidURL = errors.New("not an absolute http(s) url")
	ErrNoResults  = errors.New("search returned no results")
)

type reply struct {
	URLs []string `json:"urls"`
}

// Ranker asks the model to pick the most relevant search results.
type Ranker struct {
	llm     structured.Generator
	topK    int
	retries int
	schema  *structured.Schema
}

func New(llm structured.Generator, topK, parseRetries int) (*Ranker, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("top_k must be > 0, got %d", topK)
	}
	schema, err := structured.Compile("ranked_urls", "URLs of the most relevant articles, best first", fmt.Sprintf(schemaTemplate, topK))
	if err != nil {
		return nil, err
	}
	schema.Wrap = "urls"
	schema.Check = checkURLs
	return &Ranker{llm: llm, topK: topK, retries: parseRetries, schema: schema}, nil
}

func checkURLs(out any) error {
	r := out.(*reply)
	for _, u := range r.URLs {
		if !helpers.IsWebURL(u) {
			return fmt.Errorf("%w: %q", ErrInvalidURL, u)
		}
	}
	return nil
}

// Rank returns at most topK URLs in the model's order with duplicates removed.
// A reply that is not a list of absolute URLs, or lists more than topK of them,
// fails with *structured.ParseError once the stricter retry is spent.
func (r *Ranker) Rank(ctx context.Context, topic string, search models.SearchResponse) (models.RankedURLs, error) {
	if len(search.Results) == 0 && len(search.Raw) == 0 {
		return nil, ErrNoResults
	}
	serialized, err := serialize(search)
	if err != nil {
		return nil, err
	}
	prompt := models.Prompt{
		System: systemPrompt,
		User:   fmt.Sprintf(userTemplate, serialized, topic, r.topK),
	}

	var out reply
	if _, err := structured.Generate(ctx, r.llm, prompt, r.schema, r.retries, &out); err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(out.URLs))
	for _, u := range out.URLs {
		urls = append(urls, strings.TrimSpace(u))
	}
	return models.RankedURLs(helpers.DedupeURLs(urls)), nil
}

// serialize prefers the provider's own payload, which is what the model would see
// from any other client.
func serialize(search models.SearchResponse) (string, error) {
	if len(search.Raw) > 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, search.Raw); err == nil {
			return buf.String(), nil
		}
	}
	b, err := json.Marshal(search.Results)
	if err != nil {
		return "", fmt.Errorf("serialize search results: %w", err)
	}
	return string(b), nil
}
