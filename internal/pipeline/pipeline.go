package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/threader/internal/events"
	"github.com/mohammad-safakhou/threader/internal/telemetry"
	"github.com/mohammad-safakhou/threader/models"
)

type Searcher interface {
	Search(ctx context.Context, q string, k int) (models.SearchResponse, error)
}

type Ranker interface {
	Rank(ctx context.Context, topic string, search models.SearchResponse) (models.RankedURLs, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (models.FetchedDocument, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, topic string, docs []models.FetchedDocument) ([]models.TextChunk, []models.ChunkSummary, error)
}

type Composer interface {
	Compose(ctx context.Context, topic string, summaries []models.ChunkSummary) (models.Thread, error)
}

type Options struct {
	Searcher   Searcher
	Ranker     Ranker
	Fetcher    Fetcher
	Summarizer Summarizer
	Composer   Composer

	Events  events.Publisher
	Metrics *telemetry.Metrics
	Logger  *log.Logger

	// MaxResults is passed to the search provider; TopK caps fetch attempts.
	MaxResults int
	TopK       int
	RunTimeout time.Duration
}

// Pipeline runs one topic through search, rank, fetch, summarize and compose.
// It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	opts Options
	log  *log.Logger
}

func New(opts Options) *Pipeline {
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	}
	return &Pipeline{opts: opts, log: logger}
}

func (p *Pipeline) Searcher() Searcher { return p.opts.Searcher }

func (p *Pipeline) Fetcher() Fetcher { return p.opts.Fetcher }

// Run executes the stages in order. The returned run is never nil: on failure it
// carries every artifact produced before the failing stage, and the error is a
// *StageError.
func (p *Pipeline) Run(ctx context.Context, topic string) (*models.Run, error) {
	run := &models.Run{ID: uuid.NewString(), Topic: strings.TrimSpace(topic), StartedAt: time.Now().UTC()}
	if run.Topic == "" {
		return p.finish(run, &StageError{Stage: StageInput, Kind: KindInput, Err: ErrEmptyTopic})
	}
	if p.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.RunTimeout)
		defer cancel()
	}
	p.log.Printf("run %s: topic %q", run.ID, run.Topic)

	err := p.stage(ctx, run, StageSearch, func() (any, error) {
		res, err := p.opts.Searcher.Search(ctx, run.Topic, p.opts.MaxResults)
		if err != nil {
			return nil, err
		}
		run.Search = &res
		return map[string]int{"results": len(res.Results)}, nil
	})
	if err != nil {
		return p.finish(run, err)
	}

	err = p.stage(ctx, run, StageRank, func() (any, error) {
		urls, err := p.opts.Ranker.Rank(ctx, run.Topic, *run.Search)
		if err != nil {
			return nil, err
		}
		run.URLs = urls
		return map[string]any{"urls": urls}, nil
	})
	if err != nil {
		return p.finish(run, err)
	}

	err = p.stage(ctx, run, StageFetch, func() (any, error) {
		if err := p.fetchAll(ctx, run); err != nil {
			return nil, err
		}
		return map[string]int{"documents": len(run.Documents), "failures": len(run.Failures)}, nil
	})
	if err != nil {
		return p.finish(run, err)
	}

	err = p.stage(ctx, run, StageSummarize, func() (any, error) {
		chunks, summaries, err := p.opts.Summarizer.Summarize(ctx, run.Topic, run.Documents)
		run.Chunks = chunks
		p.opts.Metrics.ObserveChunks(len(chunks))
		if err != nil {
			return nil, err
		}
		run.Summaries = summaries
		return map[string]int{"chunks": len(chunks), "summaries": len(summaries)}, nil
	})
	if err != nil {
		return p.finish(run, err)
	}

	err = p.stage(ctx, run, StageCompose, func() (any, error) {
		thread, err := p.opts.Composer.Compose(ctx, run.Topic, run.Summaries)
		if err != nil {
			return nil, err
		}
		run.Thread = &thread
		return map[string]int{"posts": len(thread.Posts)}, nil
	})
	return p.finish(run, err)
}

// fetchAll downloads the ranked URLs one at a time. A failed URL is recorded and
// skipped; only a run without any document fails.
func (p *Pipeline) fetchAll(ctx context.Context, run *models.Run) error {
	urls := run.URLs
	if p.opts.TopK > 0 && len(urls) > p.opts.TopK {
		urls = urls[:p.opts.TopK]
	}
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc, err := p.opts.Fetcher.Fetch(ctx, u)
		p.opts.Metrics.ObserveFetch(err)
		if err != nil {
			p.log.Printf("run %s: skip %s: %v", run.ID, u, err)
			run.Failures = append(run.Failures, models.FetchFailure{URL: u, Reason: err.Error()})
			continue
		}
		run.Documents = append(run.Documents, doc)
	}
	if len(run.Documents) == 0 {
		return fmt.Errorf("%w: %d of %d urls failed", ErrNoDocuments, len(run.Failures), len(urls))
	}
	return nil
}

func (p *Pipeline) stage(ctx context.Context, run *models.Run, stage Stage, fn func() (any, error)) error {
	p.publish(ctx, events.Event{RunID: run.ID, Topic: run.Topic, Stage: string(stage), Status: events.StatusStarted})
	start := time.Now()
	data, err := fn()
	p.opts.Metrics.ObserveStage(string(stage), time.Since(start), err)
	if err != nil {
		se := stageError(stage, err)
		p.publish(ctx, events.Event{RunID: run.ID, Topic: run.Topic, Stage: string(stage), Status: events.StatusFailed, Kind: string(se.Kind), Message: se.Err.Error()})
		return se
	}
	e := events.Event{RunID: run.ID, Topic: run.Topic, Stage: string(stage), Status: events.StatusCompleted}
	if raw, mErr := json.Marshal(data); mErr == nil {
		e.Data = raw
	}
	p.publish(ctx, e)
	return nil
}

func (p *Pipeline) publish(ctx context.Context, e events.Event) {
	// a cancelled run still reports how it ended
	if err := p.opts.Events.Publish(context.WithoutCancel(ctx), e); err != nil {
		p.log.Printf("run %s: publish %s/%s: %v", e.RunID, e.Stage, e.Status, err)
	}
}

func (p *Pipeline) finish(run *models.Run, err error) (*models.Run, error) {
	run.FinishedAt = time.Now().UTC()
	if err == nil {
		p.opts.Metrics.ObserveRun("")
		p.log.Printf("run %s: done in %s", run.ID, run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
		return run, nil
	}
	se := stageError(StageInput, err)
	run.Error = se.RunError()
	p.opts.Metrics.ObserveRun(string(se.Kind))
	if se.Kind != KindInput {
		p.log.Printf("run %s: %v", run.ID, se)
	}
	return run, se
}
