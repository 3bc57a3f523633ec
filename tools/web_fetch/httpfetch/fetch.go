package httpfetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	appmodels "github.com/mohammad-safakhou/threader/models"
	"github.com/mohammad-safakhou/threader/tools/web_fetch/extract"
	"github.com/mohammad-safakhou/threader/tools/web_fetch/models"
)

// maxBodyBytes bounds how much of a page is read before extraction.
const maxBodyBytes = 5 << 20

type Fetch struct {
	Timeout   time.Duration
	MaxChars  int
	UserAgent string
	Client    *http.Client
}

func (f Fetch) Fetch(ctx context.Context, rawURL string) (appmodels.FetchedDocument, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return appmodels.FetchedDocument{}, models.ErrInvalidURL
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return appmodels.FetchedDocument{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.8")
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return appmodels.FetchedDocument{}, fmt.Errorf("get %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return appmodels.FetchedDocument{}, &models.StatusError{URL: u.String(), StatusCode: resp.StatusCode}
	}
	kind := bodyKind(resp.Header.Get("Content-Type"))
	if kind == "" {
		return appmodels.FetchedDocument{}, fmt.Errorf("%w: %s", models.ErrNotHTML, resp.Header.Get("Content-Type"))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return appmodels.FetchedDocument{}, fmt.Errorf("read body: %w", err)
	}

	var content extract.Content
	if kind == "text" {
		content, err = extract.FromText(string(body), f.MaxChars)
	} else {
		content, err = extract.FromHTML(string(body), u.String(), f.MaxChars)
	}
	if err != nil {
		return appmodels.FetchedDocument{}, err
	}
	return appmodels.FetchedDocument{
		URL:       u.String(),
		Title:     content.Title,
		Byline:    content.Byline,
		SiteName:  content.SiteName,
		Text:      content.Text,
		HTMLHash:  content.HTMLHash,
		Status:    resp.StatusCode,
		Backend:   "http",
		FetchedAt: time.Now().UTC(),
	}, nil
}

// bodyKind reports "html" or "text" for content types that can be extracted and
// "" for everything else. A missing header is treated as html.
func bodyKind(contentType string) string {
	if contentType == "" {
		return "html"
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mt {
	case "text/html", "application/xhtml+xml":
		return "html"
	case "text/plain":
		return "text"
	}
	return ""
}
