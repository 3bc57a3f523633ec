package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/mohammad-safakhou/threader/config"
	"github.com/mohammad-safakhou/threader/internal/composer"
	"github.com/mohammad-safakhou/threader/internal/events"
	"github.com/mohammad-safakhou/threader/internal/ranker"
	"github.com/mohammad-safakhou/threader/internal/summarizer"
	"github.com/mohammad-safakhou/threader/internal/telemetry"
	"github.com/mohammad-safakhou/threader/internal/textsplit"
	"github.com/mohammad-safakhou/threader/provider"
	"github.com/mohammad-safakhou/threader/tools/web_fetch"
	"github.com/mohammad-safakhou/threader/tools/web_search"
)

// Build wires every stage from configuration. The returned cleanup closes the
// event sink connections. Missing credentials fail here, before any request is made.
func Build(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics, logger *log.Logger) (*Pipeline, func() error, error) {
	noop := func() error { return nil }

	searcher, err := web_search.NewWebSearcher(web_search.Provider(cfg.Search.Provider), cfg.Search.APIKey(), web_search.Options{
		Endpoint: cfg.Search.Endpoint,
		Timeout:  cfg.Search.Timeout,
	})
	if err != nil {
		return nil, noop, fmt.Errorf("search client: %w", err)
	}

	llm, err := provider.NewProvider(provider.OpenAI, cfg.LLM)
	if err != nil {
		return nil, noop, fmt.Errorf("llm client: %w", err)
	}

	rk, err := ranker.New(metrics.Instrument(llm, string(StageRank)), cfg.Pipeline.TopK, cfg.Pipeline.ParseRetries)
	if err != nil {
		return nil, noop, fmt.Errorf("ranker: %w", err)
	}

	fetcher, err := web_fetch.NewWebFetcher(web_fetch.FetcherType(cfg.Fetch.Backend), cfg.Fetch.Timeout, cfg.Fetch.MaxChars, cfg.Fetch.UserAgent)
	if err != nil {
		return nil, noop, fmt.Errorf("fetcher: %w", err)
	}

	splitter, err := textsplit.New(cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap)
	if err != nil {
		return nil, noop, fmt.Errorf("splitter: %w", err)
	}
	sum := summarizer.New(metrics.Instrument(llm, string(StageSummarize)), splitter, cfg.Pipeline.SummarizeConcurrency)
	comp := composer.New(metrics.Instrument(llm, string(StageCompose)), cfg.Pipeline.ParseRetries)

	var sinks events.Multi
	sinks = append(sinks, events.NewLogPublisher(nil))
	cleanup := noop
	if cfg.Events.Redis.Enabled {
		client, err := events.Conn(ctx, cfg.Events.Redis)
		if err != nil {
			return nil, noop, fmt.Errorf("events: %w", err)
		}
		rp := events.NewRedisPublisher(client, cfg.Events.Redis.Channel)
		sinks = append(sinks, rp)
		cleanup = rp.Close
	}

	return New(Options{
		Searcher:   searcher,
		Ranker:     rk,
		Fetcher:    fetcher,
		Summarizer: sum,
		Composer:   comp,
		Events:     sinks,
		Metrics:    metrics,
		Logger:     logger,
		MaxResults: cfg.Search.MaxResults,
		TopK:       cfg.Pipeline.TopK,
		RunTimeout: cfg.Pipeline.RunTimeout,
	}), cleanup, nil
}
