package webfetch

import (
	"context"
	"time"

	"github.com/dmsharma/researcher/tools/webfetch/chromedp"
	"github.com/dmsharma/researcher/tools/webfetch/models"
	"github.com/dmsharma/researcher/tools/webfetch/readable"
)

const (
	DefaultTimeout  = 15 * time.Second
	MaxCharsDefault = 8000
)

// Fetcher retrieves a page and extracts its readable text.
type Fetcher interface {
	Exec(ctx context.Context, url string) (models.Result, error)
}

type FetcherType string

const (
	// ReadableFetcherType fetches over plain HTTP and runs readability
	// extraction. Cheap, no browser required.
	ReadableFetcherType FetcherType = "readability"
	// ChromedpFetcherType renders the page in headless Chrome first, for
	// JS-heavy sites.
	ChromedpFetcherType FetcherType = "chromedp"
)

type Error struct{ Msg string }

func (e *Error) Error() string { return e.Msg }

func NewFetcher(fetcherType FetcherType, timeout time.Duration, maxChars int) (Fetcher, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxChars <= 0 {
		maxChars = MaxCharsDefault
	}

	switch fetcherType {
	case ReadableFetcherType:
		return &readable.Fetch{Timeout: timeout, MaxChars: maxChars}, nil
	case ChromedpFetcherType:
		return &chromedp.Fetch{Timeout: timeout, MaxChars: maxChars}, nil
	default:
		return nil, &Error{"unsupported fetcher type"}
	}
}
