package web_search

import (
	"context"
	"errors"
	"net/http"
	"time"

	appmodels "github.com/mohammad-safakhou/threader/models"
	"github.com/mohammad-safakhou/threader/tools/web_search/brave"
	"github.com/mohammad-safakhou/threader/tools/web_search/models"
	"github.com/mohammad-safakhou/threader/tools/web_search/serper"
)

const DefaultTimeout = 15 * time.Second

type WebSearcher interface {
	Search(ctx context.Context, q string, k int) (appmodels.SearchResponse, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

var ErrUnsupportedProvider = errors.New("unsupported search provider")

// Re-exported so callers can classify failures without importing the models package.
var ErrMissingAPIKey = models.ErrMissingAPIKey

type StatusError = models.StatusError

// Options carries the optional knobs shared by every provider.
type Options struct {
	Endpoint string
	Timeout  time.Duration
}

func NewWebSearcher(provider Provider, apiKey string, opts Options) (WebSearcher, error) {
	if apiKey == "" {
		return nil, models.ErrMissingAPIKey
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}

	switch provider {
	case SerperProvider:
		return &serper.Search{ApiKey: apiKey, Endpoint: opts.Endpoint, Client: client}, nil
	case BraveProvider:
		return &brave.Search{ApiKey: apiKey, Endpoint: opts.Endpoint, Client: client}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
