package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mohammad-safakhou/threader/models"
)

type stubRunner struct {
	run *models.Run
	err error
}

func (s stubRunner) Run(_ context.Context, topic string) (*models.Run, error) {
	if s.run != nil {
		s.run.Topic = topic
	}
	return s.run, s.err
}

type stubSearcher struct{ k int }

func (s *stubSearcher) Search(_ context.Context, q string, k int) (models.SearchResponse, error) {
	s.k = k
	return models.SearchResponse{Query: q, Results: []models.SearchResult{{Title: "EVs", URL: "https://news.example/ev"}}}, nil
}

func connect(t *testing.T, srv *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	t1, t2 := mcp.NewInMemoryTransports()
	if _, err := srv.New().Connect(ctx, t1, nil); err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func decode(t *testing.T, res *mcp.CallToolResult, out any) {
	t.Helper()
	if res.StructuredContent != nil {
		b, err := json.Marshal(res.StructuredContent)
		if err != nil {
			t.Fatalf("marshal structured content: %v", err)
		}
		if err := json.Unmarshal(b, out); err != nil {
			t.Fatalf("decode structured content: %v", err)
		}
		return
	}
	if len(res.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content %T", res.Content[0])
	}
	if err := json.Unmarshal([]byte(text.Text), out); err != nil {
		t.Fatalf("decode text content: %v", err)
	}
}

func TestGenerateThreadTool(t *testing.T) {
	t.Parallel()
	run := &models.Run{
		ID:        "run-1",
		URLs:      models.RankedURLs{"https://news.example/ev"},
		Documents: []models.FetchedDocument{{URL: "https://news.example/ev", Title: "EVs", Text: "abc"}},
		Chunks:    []models.TextChunk{{Text: "abc"}},
		Summaries: []models.ChunkSummary{{Text: "summary"}},
		Thread:    &models.Thread{Posts: []string{"1/ hi", "2/ bye"}, Text: "1/ hi\n\n2/ bye"},
	}
	session := connect(t, &Server{Runner: stubRunner{run: run}})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "generate_thread",
		Arguments: map[string]any{"topic": "electric vehicles"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %+v", res.Content)
	}
	var out GenerateThreadOutput
	decode(t, res, &out)
	if out.RunID != "run-1" || out.Topic != "electric vehicles" || out.Chunks != 1 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if len(out.Posts) != 2 || out.Thread != "1/ hi\n\n2/ bye" || out.Documents[0].Chars != 3 {
		t.Fatalf("unexpected thread output: %+v", out)
	}
}

func TestGenerateThreadToolReportsStageFailure(t *testing.T) {
	t.Parallel()
	run := &models.Run{Error: &models.RunError{Stage: "rank", Kind: "parse", Message: "no JSON", Raw: "sorry"}}
	session := connect(t, &Server{Runner: stubRunner{run: run, err: errors.New("rank stage failed")}})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "generate_thread",
		Arguments: map[string]any{"topic": "evs"},
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error")
	}
	text := res.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, "rank stage failed (parse)") || !strings.Contains(text, "sorry") {
		t.Fatalf("unexpected error text %q", text)
	}
}

func TestWebSearchToolClampsK(t *testing.T) {
	t.Parallel()
	searcher := &stubSearcher{}
	session := connect(t, &Server{Searcher: searcher})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "web_search",
		Arguments: map[string]any{"query": "evs", "k": 500},
	})
	if err != nil || res.IsError {
		t.Fatalf("CallTool: %v %+v", err, res)
	}
	var out WebSearchOutput
	decode(t, res, &out)
	if searcher.k != 10 || len(out.Results) != 1 || out.Results[0].URL != "https://news.example/ev" {
		t.Fatalf("unexpected search: k=%d out=%+v", searcher.k, out)
	}
}

func TestToolsAreOnlyAdvertisedWhenWired(t *testing.T) {
	t.Parallel()
	session := connect(t, &Server{Runner: stubRunner{}})
	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(res.Tools) != 1 || res.Tools[0].Name != "generate_thread" {
		t.Fatalf("unexpected tools: %+v", res.Tools)
	}
}
