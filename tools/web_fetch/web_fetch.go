package web_fetch

import (
	"context"
	"errors"
	"net/http"
	"time"

	appmodels "github.com/mohammad-safakhou/threader/models"
	"github.com/mohammad-safakhou/threader/tools/web_fetch/chromedp"
	"github.com/mohammad-safakhou/threader/tools/web_fetch/httpfetch"
)

const (
	DefaultTimeout  = 15 * time.Second
	MaxCharsDefault = 20000
)

type WebFetcher interface {
	Fetch(ctx context.Context, url string) (appmodels.FetchedDocument, error)
}

type FetcherType string

const (
	HTTPFetcherType     FetcherType = "http"
	ChromedpFetcherType FetcherType = "chromedp"
)

var ErrUnsupportedFetcher = errors.New("unsupported fetcher type")

func NewWebFetcher(fetcherType FetcherType, timeout time.Duration, maxChars int, userAgent string) (WebFetcher, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = MaxCharsDefault
	}

	switch fetcherType {
	case HTTPFetcherType, "":
		return httpfetch.Fetch{
			Timeout:   timeout,
			MaxChars:  maxChars,
			UserAgent: userAgent,
			Client:    &http.Client{Timeout: timeout},
		}, nil
	case ChromedpFetcherType:
		return chromedp.Fetch{Timeout: timeout, MaxChars: maxChars, UserAgent: userAgent}, nil
	default:
		return nil, ErrUnsupportedFetcher
	}
}
