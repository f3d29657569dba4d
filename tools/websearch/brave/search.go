package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmsharma/researcher/tools/websearch/models"
)

const endpoint = "https://api.search.brave.com/res/v1/web/search"

// Search queries the Brave web-search API.
type Search struct {
	APIKey  string
	HTTP    *http.Client
	BaseURL string // overridable for tests
}

func (s *Search) Search(ctx context.Context, query string, k int) ([]models.Result, error) {
	// https://api.search.brave.com/app/documentation/web-search
	base := s.BaseURL
	if base == "" {
		base = endpoint
	}
	u := fmt.Sprintf("%s?q=%s&count=%d", base, url.QueryEscape(query), k)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.APIKey)

	httpc := s.HTTP
	if httpc == nil {
		httpc = http.DefaultClient
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave status %d", resp.StatusCode)
	}

	var raw struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	var out []models.Result
	for i, r := range raw.Web.Results {
		if i >= k {
			break
		}
		out = append(out, models.Result{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return out, nil
}
