package structured

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mohammad-safakhou/threader/models"
)

const urlsDoc = `{
	"type": "object",
	"properties": {
		"urls": {"type": "array", "items": {"type": "string"}, "maxItems": 3}
	},
	"required": ["urls"],
	"additionalProperties": false
}`

type urlsReply struct {
	URLs []string `json:"urls"`
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain object", `{"a": 1}`, `{"a":1}`, false},
		{"fenced", "```json\n{\"a\": [1, 2]}\n```", `{"a":[1,2]}`, false},
		{"tilde fence", "~~~\n[1]\n~~~", `[1]`, false},
		{"prose around", `Sure! Here you go: ["x", "y"] hope that helps`, `["x","y"]`, false},
		{"braces in strings", `{"a": "}{]["}`, `{"a":"}{]["}`, false},
		{"skips broken candidate", `{broken [1,2]`, `[1,2]`, false},
		{"no json", "I cannot help with that.", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ExtractJSON(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSchemaDecode(t *testing.T) {
	t.Parallel()
	s := MustCompile("urls", "ranked urls", urlsDoc)
	s.Wrap = "urls"

	var out urlsReply
	if err := s.Decode(`{"urls": ["https://a.example", "https://b.example"]}`, &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out.URLs) != 2 {
		t.Fatalf("unexpected urls %v", out.URLs)
	}

	out = urlsReply{}
	if err := s.Decode(`["https://c.example"]`, &out); err != nil || len(out.URLs) != 1 {
		t.Fatalf("bare array not accepted: %v %v", out.URLs, err)
	}

	for _, bad := range []string{
		`not json`,
		`{"urls": "https://a.example"}`,
		`{"urls": ["a", "b", "c", "d"]}`,
		`{"links": []}`,
	} {
		err := s.Decode(bad, &out)
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("Decode(%q): expected ParseError, got %v", bad, err)
		}
		if pe.Raw != bad {
			t.Fatalf("raw not preserved: %q", pe.Raw)
		}
	}
}

func TestSchemaDecodeSkipsCitationBrackets(t *testing.T) {
	t.Parallel()
	s := MustCompile("urls", "ranked urls", urlsDoc)
	s.Wrap = "urls"

	raw := "Based on sources [1] and [2], here are the picks:\n[\"https://a.example/1\",\"https://b.example/2\"]"
	var out urlsReply
	if err := s.Decode(raw, &out); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []string{"https://a.example/1", "https://b.example/2"}
	if strings.Join(out.URLs, ",") != strings.Join(want, ",") {
		t.Fatalf("Decode() = %v, want %v", out.URLs, want)
	}

	err := s.Decode("see [1] and [2]", &out)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError when no value fits, got %v", err)
	}
}

func TestFormatStripsLocalOnlyKeywords(t *testing.T) {
	t.Parallel()
	s := MustCompile("urls", "ranked urls", urlsDoc)
	f := s.Format()
	props := f.Schema["properties"].(map[string]any)
	urls := props["urls"].(map[string]any)
	if _, ok := urls["maxItems"]; ok {
		t.Fatalf("maxItems must not be sent to the model")
	}
	if f.Schema["additionalProperties"] != false {
		t.Fatalf("additionalProperties lost: %v", f.Schema)
	}
}

type scripted struct {
	replies []string
	prompts []models.Prompt
	err     error
}

func (s *scripted) Generate(_ context.Context, p models.Prompt) (string, error) {
	s.prompts = append(s.prompts, p)
	if s.err != nil {
		return "", s.err
	}
	r := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return r, nil
}

func TestGenerateRetriesOnceWithStricterPrompt(t *testing.T) {
	t.Parallel()
	s := MustCompile("urls", "ranked urls", urlsDoc)
	gen := &scripted{replies: []string{"here are some links", `{"urls": ["https://a.example"]}`}}

	var out urlsReply
	raw, err := Generate(context.Background(), gen, models.Prompt{User: "rank"}, s, 1, &out)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(gen.prompts) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[1].User, "here are some links") {
		t.Fatalf("retry prompt does not quote the rejected reply: %q", gen.prompts[1].User)
	}
	if gen.prompts[0].Format == nil || gen.prompts[0].Format.Name != "urls" {
		t.Fatalf("structured format not requested")
	}
	if raw != `{"urls": ["https://a.example"]}` || out.URLs[0] != "https://a.example" {
		t.Fatalf("unexpected result raw=%q out=%v", raw, out)
	}
}

func TestGenerateGivesUpAfterRetries(t *testing.T) {
	t.Parallel()
	s := MustCompile("urls", "ranked urls", urlsDoc)
	gen := &scripted{replies: []string{"nope", "still nope"}}

	var out urlsReply
	raw, err := Generate(context.Background(), gen, models.Prompt{User: "rank"}, s, 1, &out)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if raw != "still nope" || pe.Raw != "still nope" {
		t.Fatalf("expected last raw reply, got %q / %q", raw, pe.Raw)
	}
	if len(gen.prompts) != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", len(gen.prompts))
	}
}

func TestGenerateDoesNotRetryTransportErrors(t *testing.T) {
	t.Parallel()
	s := MustCompile("urls", "ranked urls", urlsDoc)
	boom := errors.New("connection refused")
	gen := &scripted{err: boom}

	var out urlsReply
	_, err := Generate(context.Background(), gen, models.Prompt{User: "rank"}, s, 3, &out)
	if !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		t.Fatalf("transport error must not be a ParseError")
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("transport errors must not be retried, got %d calls", len(gen.prompts))
	}
}
