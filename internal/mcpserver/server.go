// Package mcpserver exposes the thread pipeline and its search and fetch tools
// over the Model Context Protocol. Logs go to stderr; stdout carries the protocol.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mohammad-safakhou/threader/models"
)

const (
	serverName    = "threader"
	serverVersion = "1.0.0"
	maxSearchK    = 25
)

type Runner interface {
	Run(ctx context.Context, topic string) (*models.Run, error)
}

type Searcher interface {
	Search(ctx context.Context, q string, k int) (models.SearchResponse, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (models.FetchedDocument, error)
}

// Server holds the shared deps. Searcher and Fetcher are optional; their tools are
// only advertised when set.
type Server struct {
	Runner   Runner
	Searcher Searcher
	Fetcher  Fetcher
}

type GenerateThreadInput struct {
	Topic string `json:"topic" jsonschema:"Topic to research and turn into a thread"`
}

type DocumentRef struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Chars int    `json:"chars"`
}

type GenerateThreadOutput struct {
	RunID     string                `json:"run_id"`
	Topic     string                `json:"topic"`
	URLs      []string              `json:"urls"`
	Documents []DocumentRef         `json:"documents"`
	Failures  []models.FetchFailure `json:"failures,omitempty"`
	Chunks    int                   `json:"chunks"`
	Summaries []string              `json:"summaries"`
	Posts     []string              `json:"posts"`
	Thread    string                `json:"thread"`
}

type WebSearchInput struct {
	Query string `json:"query" jsonschema:"Search query"`
	K     int    `json:"k,omitempty" jsonschema:"Number of results (optional, defaults to 10, max 25)"`
}

type WebSearchOutput struct {
	Query   string                `json:"query"`
	Results []models.SearchResult `json:"results"`
}

type WebFetchInput struct {
	URL string `json:"url" jsonschema:"Absolute http(s) URL of the article"`
}

type WebFetchOutput struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Byline   string `json:"byline,omitempty"`
	Text     string `json:"text"`
	HTMLHash string `json:"html_hash,omitempty"`
	Status   int    `json:"status"`
}

// New returns an MCP server with every available tool registered.
func (s *Server) New() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	if s.Runner != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "generate_thread",
			Description: "Search the web for a topic, pick the best articles, summarise them and write a social media thread.",
		}, s.generateThread)
	}
	if s.Searcher != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "web_search",
			Description: "Search the web and return the organic results.",
		}, s.webSearch)
	}
	if s.Fetcher != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "web_fetch",
			Description: "Fetch an article and extract its readable text.",
		}, s.webFetch)
	}
	return server
}

// Serve runs the server on stdio until the client disconnects or ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	return s.New().Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) generateThread(ctx context.Context, _ *mcp.CallToolRequest, in GenerateThreadInput) (*mcp.CallToolResult, GenerateThreadOutput, error) {
	if strings.TrimSpace(in.Topic) == "" {
		return nil, GenerateThreadOutput{}, errors.New("topic is required")
	}
	run, err := s.Runner.Run(ctx, in.Topic)
	if err != nil {
		if run != nil && run.Error != nil {
			msg := fmt.Sprintf("%s stage failed (%s): %s", run.Error.Stage, run.Error.Kind, run.Error.Message)
			if run.Error.Raw != "" {
				msg += "\nmodel output: " + run.Error.Raw
			}
			return nil, GenerateThreadOutput{}, errors.New(msg)
		}
		return nil, GenerateThreadOutput{}, err
	}
	return nil, threadOutput(run), nil
}

func threadOutput(run *models.Run) GenerateThreadOutput {
	out := GenerateThreadOutput{
		RunID:     run.ID,
		Topic:     run.Topic,
		URLs:      append([]string{}, run.URLs...),
		Documents: make([]DocumentRef, 0, len(run.Documents)),
		Failures:  run.Failures,
		Chunks:    len(run.Chunks),
		Summaries: make([]string, 0, len(run.Summaries)),
		Posts:     []string{},
	}
	for _, d := range run.Documents {
		out.Documents = append(out.Documents, DocumentRef{URL: d.URL, Title: d.Title, Chars: len(d.Text)})
	}
	for _, sm := range run.Summaries {
		out.Summaries = append(out.Summaries, sm.Text)
	}
	if run.Thread != nil {
		out.Posts = append(out.Posts, run.Thread.Posts...)
		out.Thread = run.Thread.Text
	}
	return out
}

func (s *Server) webSearch(ctx context.Context, _ *mcp.CallToolRequest, in WebSearchInput) (*mcp.CallToolResult, WebSearchOutput, error) {
	q := strings.TrimSpace(in.Query)
	if q == "" {
		return nil, WebSearchOutput{}, errors.New("query is required")
	}
	k := in.K
	if k < 1 || k > maxSearchK {
		k = 10
	}
	resp, err := s.Searcher.Search(ctx, q, k)
	if err != nil {
		return nil, WebSearchOutput{}, err
	}
	results := resp.Results
	if results == nil {
		results = []models.SearchResult{}
	}
	return nil, WebSearchOutput{Query: q, Results: results}, nil
}

func (s *Server) webFetch(ctx context.Context, _ *mcp.CallToolRequest, in WebFetchInput) (*mcp.CallToolResult, WebFetchOutput, error) {
	if strings.TrimSpace(in.URL) == "" {
		return nil, WebFetchOutput{}, errors.New("url is required")
	}
	doc, err := s.Fetcher.Fetch(ctx, in.URL)
	if err != nil {
		return nil, WebFetchOutput{}, err
	}
	return nil, WebFetchOutput{URL: doc.URL, Title: doc.Title, Byline: doc.Byline, Text: doc.Text, HTMLHash: doc.HTMLHash, Status: doc.Status}, nil
}
