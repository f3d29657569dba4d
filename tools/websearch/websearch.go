package websearch

import (
	"context"
	"net/http"
	"time"

	"github.com/dmsharma/researcher/tools/websearch/brave"
	"github.com/dmsharma/researcher/tools/websearch/models"
	"github.com/dmsharma/researcher/tools/websearch/serper"
)

// Searcher runs a single web search and returns up to k hits.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.Result, error)
}

type Provider string

const (
	SerperProvider Provider = "serper"
	BraveProvider  Provider = "brave"
)

type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

var ErrUnsupportedProvider = &Error{"unsupported provider"}

// NewSearcher builds a search backend for the given provider.
func NewSearcher(provider Provider, apiKey string, timeout time.Duration) (Searcher, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	httpc := &http.Client{Timeout: timeout}
	switch provider {
	case SerperProvider:
		return &serper.Search{APIKey: apiKey, HTTP: httpc}, nil
	case BraveProvider:
		return &brave.Search{APIKey: apiKey, HTTP: httpc}, nil
	default:
		return nil, ErrUnsupportedProvider
	}
}
