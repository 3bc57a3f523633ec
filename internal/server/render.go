package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"

	"github.com/mohammad-safakhou/threader/internal/helpers"
	"github.com/mohammad-safakhou/threader/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).ParseFS(templateFS, "templates/*.html"))

// pageData is the view model behind the five result panels.
type pageData struct {
	Topic      string
	Ran        bool
	SearchJSON string
	URLs       []string
	Documents  []models.FetchedDocument
	Failures   []models.FetchFailure
	Chunks     int
	Summaries  []models.ChunkSummary
	Thread     template.HTML
	ThreadText string
	Error      *models.RunError
}

func newPageData(run *models.Run) pageData {
	if run == nil {
		return pageData{Ran: true}
	}
	d := pageData{
		Topic:     run.Topic,
		Ran:       true,
		URLs:      run.URLs,
		Documents: run.Documents,
		Failures:  run.Failures,
		Chunks:    len(run.Chunks),
		Summaries: run.Summaries,
		Error:     run.Error,
	}
	if run.Search != nil {
		d.SearchJSON = prettyJSON(run.Search)
	}
	if run.Thread != nil {
		d.ThreadText = run.Thread.Text
		html, err := helpers.RenderMarkdown(run.Thread.Text)
		if err != nil {
			html = template.HTML(template.HTMLEscapeString(run.Thread.Text))
		}
		d.Thread = html
	}
	return d
}

// prettyJSON indents the provider payload when present, falling back to the parsed hits.
func prettyJSON(s *models.SearchResponse) string {
	var buf bytes.Buffer
	if len(s.Raw) > 0 && json.Indent(&buf, s.Raw, "", "  ") == nil {
		return buf.String()
	}
	b, err := json.MarshalIndent(s.Results, "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}
