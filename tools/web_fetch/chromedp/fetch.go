package chromedp

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	appmodels "github.com/mohammad-safakhou/threader/models"
	"github.com/mohammad-safakhou/threader/tools/web_fetch/extract"
	"github.com/mohammad-safakhou/threader/tools/web_fetch/models"
)

// Fetch renders pages in headless Chrome before extraction, for sites that build
// their article body in JavaScript.
type Fetch struct {
	Timeout   time.Duration
	MaxChars  int
	UserAgent string
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

	html, err := f.fetchHTML(ctx, u.String())
	if err != nil {
		return appmodels.FetchedDocument{}, fmt.Errorf("render %s: %w", u, err)
	}
	content, err := extract.FromHTML(html, u.String(), f.MaxChars)
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
		Status:    200,
		Backend:   "chromedp",
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (f Fetch) fetchHTML(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
	)
	if f.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.UserAgent))
	}
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}
