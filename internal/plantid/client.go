package plantid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Identifier sends encoded photos to a classification service.
type Identifier interface {
	Identify(ctx context.Context, imageBase64 string) (*Response, error)
}

// Config holds plant.id configuration parameters.
type Config struct {
	APIKey    string
	BaseURL   string
	Language  string
	Timeout   time.Duration
	Modifiers []string
	Details   []string
}

// Client implements Identifier against the plant.id v2 API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	language   string
	modifiers  []string
	details    []string
}

const (
	DefaultBaseURL  = "https://api.plant.id/v2"
	DefaultLanguage = "en"
	DefaultTimeout  = 30 * time.Second

	maxErrorBody = 4 << 10
)

// DefaultModifiers are the processing modifiers sent with every request.
var DefaultModifiers = []string{"crops_fast", "similar_images"}

// DefaultDetails are the plant_details fields requested for every suggestion.
var DefaultDetails = []string{"common_names", "url", "wiki_description", "taxonomy", "synonyms"}

// ErrMissingCredentials is returned when no API key is configured.
var ErrMissingCredentials = errors.New("plant.id client missing api key")

// ErrEmptyImage is returned when Identify is called without image data.
var ErrEmptyImage = errors.New("plant.id identify requires an image")

// StatusError reports a non-2xx answer from the service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("plant.id status %d", e.StatusCode)
	}
	return fmt.Sprintf("plant.id status %d: %s", e.StatusCode, e.Body)
}

// NewClient constructs a Client if the supplied configuration is valid.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingCredentials
	}
	cfg = cfg.withDefaults()
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiKey:     apiKey,
		baseURL:    cfg.BaseURL,
		language:   cfg.Language,
		modifiers:  cfg.Modifiers,
		details:    cfg.Details,
	}, nil
}

func (cfg Config) withDefaults() Config {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.Language = strings.TrimSpace(cfg.Language)
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if len(cfg.Modifiers) == 0 {
		cfg.Modifiers = append([]string(nil), DefaultModifiers...)
	}
	if len(cfg.Details) == 0 {
		cfg.Details = append([]string(nil), DefaultDetails...)
	}
	return cfg
}

// Endpoint returns the identify URL the client posts to.
func (c *Client) Endpoint() string {
	return c.baseURL + "/identify"
}

// Language returns the plant_language sent with requests.
func (c *Client) Language() string {
	return c.language
}

// Modifiers returns a copy of the configured modifiers.
func (c *Client) Modifiers() []string {
	return append([]string(nil), c.modifiers...)
}

// Details returns a copy of the requested detail fields.
func (c *Client) Details() []string {
	return append([]string(nil), c.details...)
}

// Identify posts one base64 encoded photo and decodes the suggestions.
func (c *Client) Identify(ctx context.Context, imageBase64 string) (*Response, error) {
	if c == nil {
		return nil, errors.New("plant.id client is nil")
	}
	if strings.TrimSpace(imageBase64) == "" {
		return nil, ErrEmptyImage
	}

	body, err := json.Marshal(c.buildPayload(imageBase64))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("plant.id request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var decoded Response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &decoded, nil
}

func (c *Client) buildPayload(imageBase64 string) identifyRequest {
	return identifyRequest{
		APIKey:        c.apiKey,
		Images:        []string{imageBase64},
		Modifiers:     c.modifiers,
		PlantLanguage: c.language,
		PlantDetails:  c.details,
	}
}
