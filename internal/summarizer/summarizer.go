package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/threader/internal/structured"
	"github.com/mohammad-safakhou/threader/internal/textsplit"
	"github.com/mohammad-safakhou/threader/models"
)

var ErrEmptySummary = errors.New("model returned an empty summary")

type Summarizer struct {
	llm         structured.Generator
	splitter    *textsplit.Splitter
	concurrency int
}

func New(llm structured.Generator, splitter *textsplit.Splitter, concurrency int) *Summarizer {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Summarizer{llm: llm, splitter: splitter, concurrency: concurrency}
}

// Chunk splits every document independently. Chunks are numbered per document.
func (s *Summarizer) Chunk(docs []models.FetchedDocument) []models.TextChunk {
	var out []models.TextChunk
	for di, d := range docs {
		for ci, c := range s.splitter.Split(d.Text) {
			out = append(out, models.TextChunk{DocIndex: di, URL: d.URL, Index: ci, Text: c.Text, Overlap: c.Overlap})
		}
	}
	return out
}

// Summarize chunks the documents and asks the model for one summary per chunk.
// Calls run concurrently up to the configured limit and the summaries come back in
// chunk order. The first failure cancels the outstanding calls. Chunks are
// returned even when summarising fails.
func (s *Summarizer) Summarize(ctx context.Context, topic string, docs []models.FetchedDocument) ([]models.TextChunk, []models.ChunkSummary, error) {
	chunks := s.Chunk(docs)
	results := make([]string, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range chunks {
		i := i
		if strings.TrimSpace(chunks[i].Text) == "" {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := s.summarizeChunk(gctx, topic, chunks[i].Text)
			if err != nil {
				return fmt.Errorf("chunk %d of %s: %w", chunks[i].Index, chunks[i].URL, err)
			}
			results[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return chunks, nil, err
	}
	if err := ctx.Err(); err != nil {
		return chunks, nil, err
	}

	summaries := make([]models.ChunkSummary, 0, len(chunks))
	for i, c := range chunks {
		if results[i] == "" {
			continue
		}
		summaries = append(summaries, models.ChunkSummary{
			Position:   len(summaries),
			URL:        c.URL,
			ChunkIndex: c.Index,
			Text:       results[i],
		})
	}
	return chunks, summaries, nil
}

func (s *Summarizer) summarizeChunk(ctx context.Context, topic, text string) (string, error) {
	raw, err := s.llm.Generate(ctx, models.Prompt{
		System: systemPrompt,
		User:   fmt.Sprintf(userTemplate, text, topic, topic),
	})
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(raw)
	if summary == "" {
		return "", &structured.ParseError{Raw: raw, Cause: ErrEmptySummary}
	}
	return summary, nil
}
