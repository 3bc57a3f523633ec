package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/threader/internal/structured"
	"github.com/mohammad-safakhou/threader/models"
)

var (
	ErrNoSummaries = errors.New("nothing to compose: no summaries")
	ErrBlankThread = errors.New("thread has no non-blank post")

	threadSchema = structured.MustCompile("thread", "The posts of the thread in publishing order", schemaDoc)
)

func init() {
	threadSchema.Wrap = "posts"
	threadSchema.Check = checkPosts
}

func checkPosts(out any) error {
	r, ok := out.(*reply)
	if !ok {
		return fmt.Errorf("unexpected thread value %T", out)
	}
	for _, p := range r.Posts {
		if strings.TrimSpace(p) != "" {
			return nil
		}
	}
	return ErrBlankThread
}

type reply struct {
	Posts []string `json:"posts"`
}

type Composer struct {
	llm     structured.Generator
	retries int
}

func New(llm structured.Generator, parseRetries int) *Composer {
	return &Composer{llm: llm, retries: parseRetries}
}

// Compose turns chunk summaries into the final thread.
func (c *Composer) Compose(ctx context.Context, topic string, summaries []models.ChunkSummary) (models.Thread, error) {
	if len(summaries) == 0 {
		return models.Thread{}, ErrNoSummaries
	}
	prompt := models.Prompt{
		System: systemPrompt,
		User:   fmt.Sprintf(userTemplate, formatSummaries(summaries), topic, topic, topic),
	}
	var out reply
	if _, err := structured.Generate(ctx, c.llm, prompt, threadSchema, c.retries, &out); err != nil {
		return models.Thread{}, err
	}
	posts := make([]string, 0, len(out.Posts))
	for _, p := range out.Posts {
		if p = strings.TrimSpace(p); p != "" {
			posts = append(posts, p)
		}
	}
	return models.Thread{Posts: posts, Text: strings.Join(posts, "\n\n")}, nil
}

func formatSummaries(summaries []models.ChunkSummary) string {
	var b strings.Builder
	for i, s := range summaries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Summary %d (source: %s):\n%s", i+1, s.URL, s.Text)
	}
	return b.String()
}
