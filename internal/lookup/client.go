package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	"github.com/musiclite/musiclite/internal/config"
	"github.com/musiclite/musiclite/pkg/types"
)

// Client talks to the metadata backend. All calls are best-effort; the
// resolver treats any error as "this tier produced nothing".
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
	limiter    *rate.Limiter
	userAgent  string
	debug      bool
}

func NewClient(cfg *config.Config) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Lookup.Retries
	retryClient.HTTPClient.Timeout = time.Duration(cfg.Lookup.Timeout) * time.Second
	retryClient.Logger = nil

	if cfg.Debug {
		retryClient.Logger = &debugLogger{}
	}

	limiter := rate.NewLimiter(
		rate.Limit(cfg.Lookup.RateLimit.RequestsPerSecond),
		cfg.Lookup.RateLimit.BurstSize,
	)

	client := &Client{
		baseURL:    cfg.Lookup.BaseURL,
		httpClient: retryClient,
		limiter:    limiter,
		userAgent:  cfg.Lookup.UserAgent,
		debug:      cfg.Debug,
	}

	client.debugLog("Lookup client initialized - Base URL: %s", cfg.Lookup.BaseURL)

	return client
}

// Enabled reports whether a backend is configured at all. A disabled client
// still satisfies the lookup contract; both calls fail fast.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

type debugLogger struct{}

func (d *debugLogger) Printf(format string, args ...interface{}) {
	log.Printf("[HTTP] "+format, args...)
}

func (c *Client) debugLog(format string, args ...interface{}) {
	if !c.debug {
		return
	}
	log.Printf("[LOOKUP] "+format, args...)
}

func (c *Client) makeRequest(ctx context.Context, method, path string, params url.Values, body interface{}) ([]byte, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("lookup backend not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(bodyBytes)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	responseBody, readErr := io.ReadAll(resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil {
		c.debugLog("Failed to close response body: %v", closeErr)
	}

	if readErr != nil {
		return nil, fmt.Errorf("read response body: %w", readErr)
	}

	if resp.StatusCode >= 400 {
		var apiError struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}

		errorMsg := resp.Status
		if json.Unmarshal(responseBody, &apiError) == nil {
			if apiError.Error != "" {
				errorMsg = apiError.Error
			} else if apiError.Message != "" {
				errorMsg = apiError.Message
			}
		}

		err := fmt.Errorf("lookup error %d: %s", resp.StatusCode, errorMsg)
		c.debugLog("%s %s failed: %v", method, fullURL, err)
		return responseBody, err
	}

	return responseBody, nil
}

// ExtractMetadata asks the backend to analyze the audio file. The second
// return is false when the backend answered but could not identify the file.
func (c *Client) ExtractMetadata(ctx context.Context, filePath string) (*types.PartialSong, bool, error) {
	c.debugLog("Extracting metadata for: %s", filePath)

	body := map[string]string{"filePath": filePath}
	responseBody, err := c.makeRequest(ctx, "POST", "/metadata/extract", nil, body)
	if err != nil {
		return nil, false, fmt.Errorf("extract metadata: %w", err)
	}

	var result struct {
		Success  bool    `json:"success"`
		Title    string  `json:"title"`
		Artist   string  `json:"artist"`
		Album    string  `json:"album"`
		Genre    string  `json:"genre"`
		Duration float64 `json:"duration"`
		CoverArt string  `json:"coverArt"`
	}
	if err := json.Unmarshal(responseBody, &result); err != nil {
		return nil, false, fmt.Errorf("decode extract response: %w", err)
	}

	if !result.Success {
		c.debugLog("Backend could not identify: %s", filePath)
		return nil, false, nil
	}

	return &types.PartialSong{
		Title:    result.Title,
		Artist:   result.Artist,
		Album:    result.Album,
		Genre:    result.Genre,
		Duration: result.Duration,
		CoverArt: result.CoverArt,
	}, true, nil
}

func (c *Client) Search(ctx context.Context, query string, limit int) ([]*types.SearchResult, error) {
	c.debugLog("Searching for: '%s'", query)

	params := url.Values{}
	params.Set("query", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	responseBody, err := c.makeRequest(ctx, "GET", "/search", params, nil)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var result struct {
		Results []*types.SearchResult `json:"results"`
	}
	if err := json.Unmarshal(responseBody, &result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	c.debugLog("Search returned %d results", len(result.Results))
	return result.Results, nil
}
