package models

import (
	"encoding/json"
	"time"
)

// SearchResult is a single organic hit returned by a search provider.
type SearchResult struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position,omitempty"`
}

// SearchResponse keeps the provider payload verbatim next to the parsed hits.
type SearchResponse struct {
	Query    string          `json:"query"`
	Provider string          `json:"provider"`
	Results  []SearchResult  `json:"results"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// RankedURLs is the ordered selection produced by the ranker.
type RankedURLs []string

type FetchedDocument struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Byline    string    `json:"byline,omitempty"`
	SiteName  string    `json:"site_name,omitempty"`
	Text      string    `json:"text"`
	HTMLHash  string    `json:"html_hash,omitempty"`
	Status    int       `json:"status"`
	Backend   string    `json:"backend"`
	FetchedAt time.Time `json:"fetched_at"`
}

// FetchFailure records a URL that could not be fetched or extracted.
type FetchFailure struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// TextChunk is a bounded slice of one document's text. Overlap is the number of
// leading bytes repeated from the previous chunk of the same document.
type TextChunk struct {
	DocIndex int    `json:"doc_index"`
	URL      string `json:"url"`
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Overlap  int    `json:"overlap"`
}

type ChunkSummary struct {
	Position   int    `json:"position"`
	URL        string `json:"url"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

// Thread is the terminal artifact of a run.
type Thread struct {
	Posts []string `json:"posts"`
	Text  string   `json:"text"`
}

// Run collects every artifact produced by one topic submission.
type Run struct {
	ID         string            `json:"id"`
	Topic      string            `json:"topic"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Search     *SearchResponse   `json:"search,omitempty"`
	URLs       RankedURLs        `json:"urls,omitempty"`
	Documents  []FetchedDocument `json:"documents,omitempty"`
	Failures   []FetchFailure    `json:"failures,omitempty"`
	Chunks     []TextChunk       `json:"chunks,omitempty"`
	Summaries  []ChunkSummary    `json:"summaries,omitempty"`
	Thread     *Thread           `json:"thread,omitempty"`
	Error      *RunError         `json:"error,omitempty"`
}

// RunError is the serialisable view of a failed stage.
type RunError struct {
	Stage   string `json:"stage"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Raw     string `json:"raw,omitempty"`
}
