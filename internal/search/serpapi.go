package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/TobiSchelling/cyberbrief/internal/news"
)

const DefaultBaseURL = "https://serpapi.com/search"

// Result is one raw entry of a news search response. Fields the upstream
// omits are left empty.
type Result struct {
	Title  string `json:"title"`
	Source struct {
		Name string `json:"name"`
		Icon string `json:"icon"`
	} `json:"source"`
	Link      string `json:"link"`
	Thumbnail string `json:"thumbnail"`
	Date      string `json:"date"`
}

// Request is a single news search.
type Request struct {
	Query  string
	Locale string
}

// Client queries the SerpAPI search endpoint.
type Client struct {
	baseURL string
	engine  string
	apiKey  string
	client  *http.Client
}

// NewClient creates a new search client.
func NewClient(baseURL, engine, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if engine == "" {
		engine = "google_news"
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		engine:  engine,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Search runs one news search and returns the raw results in upstream order.
func (c *Client) Search(ctx context.Context, r Request) ([]Result, error) {
	params := url.Values{
		"engine":  {c.engine},
		"api_key": {c.apiKey},
		"q":       {r.Query},
		"gl":      {r.Locale},
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &news.UpstreamError{Service: "serpapi", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &news.UpstreamError{
			Service:    "serpapi",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", body),
		}
	}

	var result struct {
		Error       string   `json:"error"`
		NewsResults []Result `json:"news_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &news.UpstreamError{Service: "serpapi", Err: fmt.Errorf("decoding response: %w", err)}
	}
	if result.Error != "" {
		return nil, &news.UpstreamError{Service: "serpapi", Err: fmt.Errorf("%s", result.Error)}
	}

	return result.NewsResults, nil
}
