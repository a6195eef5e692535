package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"estatemap/internal/logging"
)

const (
	// DefaultBaseURL is the Places API (New) endpoint
	DefaultBaseURL = "https://places.googleapis.com/v1"

	// MaxPhotoPx caps both photo dimensions
	MaxPhotoPx = 500

	searchPageSize = 20
)

type Config struct {
	BaseURL string
	APIKey  string

	// Timeout bounds every request (default: 10s)
	Timeout time.Duration

	// Custom HTTP client (for testing or special configs)
	HTTPClient *http.Client
}

// Validate checks required fields only.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("places API key is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid places base URL: %w", err)
	}
	return nil
}

// WithDefaults returns a copy of Config with defaults applied.
func (c *Config) WithDefaults() Config {
	cfg := *c
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return cfg
}

// Client issues Places API calls. It does no caching and no quota
// accounting; every method call is one billable request.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *logrus.Logger
}

func NewClient(cfg Config, logger *logrus.Logger) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logging.OrDiscard(logger),
	}, nil
}

// Autocomplete returns place and query predictions for partial input
func (c *Client) Autocomplete(ctx context.Context, opts AutocompleteOptions) (json.RawMessage, error) {
	return c.postJSON(ctx, "autocomplete", "/places:autocomplete", opts, nil)
}

// TextSearch searches places by free text, returning only the masked fields
func (c *Client) TextSearch(ctx context.Context, opts TextSearchOptions, fields []string) (json.RawMessage, error) {
	body := struct {
		TextSearchOptions
		PageSize int `json:"pageSize"`
	}{opts, searchPageSize}
	return c.postJSON(ctx, "text_search", "/places:searchText", body, fields)
}

// NearbySearch searches places inside a circle
func (c *Client) NearbySearch(ctx context.Context, opts NearbySearchOptions, fields []string) (json.RawMessage, error) {
	body := struct {
		NearbySearchOptions
		MaxResultCount int `json:"maxResultCount"`
	}{opts, searchPageSize}
	return c.postJSON(ctx, "nearby_search", "/places:searchNearby", body, fields)
}

// PlaceDetails fetches a single place by id
func (c *Client) PlaceDetails(ctx context.Context, opts PlaceDetailsOptions, fields []string) (json.RawMessage, error) {
	if opts.PlaceID == "" {
		return nil, errors.New("place id is required")
	}

	params := url.Values{}
	if opts.LanguageCode != "" {
		params.Set("languageCode", opts.LanguageCode)
	}
	if opts.RegionCode != "" {
		params.Set("regionCode", opts.RegionCode)
	}

	endpoint := c.cfg.BaseURL + "/places/" + url.PathEscape(opts.PlaceID)
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, fields)

	body, _, err := c.do(req, "place_details")
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// PlaceImage downloads one photo. Dimensions default to and are capped at MaxPhotoPx.
func (c *Client) PlaceImage(ctx context.Context, opts PlaceImageOptions) (*PhotoMedia, error) {
	if opts.Name == "" {
		return nil, errors.New("photo name is required")
	}

	params := url.Values{}
	params.Set("maxHeightPx", strconv.Itoa(ClampPhotoPx(opts.MaxHeightPx)))
	params.Set("maxWidthPx", strconv.Itoa(ClampPhotoPx(opts.MaxWidthPx)))

	endpoint := c.cfg.BaseURL + "/" + strings.TrimLeft(opts.Name, "/") + "/media?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)

	body, header, err := c.do(req, "place_image")
	if err != nil {
		return nil, err
	}

	return &PhotoMedia{
		Data:        body,
		ContentType: header.Get("Content-Type"),
	}, nil
}

func (c *Client) postJSON(ctx context.Context, operation, path string, payload any, fields []string) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req, fields)

	body, _, err := c.do(req, operation)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (c *Client) setHeaders(req *http.Request, fields []string) {
	req.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)
	if len(fields) > 0 {
		req.Header.Set("X-Goog-FieldMask", strings.Join(fields, ","))
	}
}

func (c *Client) do(req *http.Request, operation string) ([]byte, http.Header, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("operation", operation).Error("Places request failed")
		return nil, nil, fmt.Errorf("%w: %s request: %w", ErrTransport, operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read %s response: %w", ErrTransport, operation, err)
	}

	c.logger.WithFields(logrus.Fields{
		"operation": operation,
		"status":    resp.StatusCode,
		"duration":  time.Since(start).String(),
	}).Debug("Places request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, &APIError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	return body, resp.Header, nil
}

// ClampPhotoPx maps a requested photo size into (0, MaxPhotoPx]
func ClampPhotoPx(px int) int {
	if px <= 0 || px > MaxPhotoPx {
		return MaxPhotoPx
	}
	return px
}
