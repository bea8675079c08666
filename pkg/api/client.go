// Package api is the client for the dilemma analysis service: scenario
// listing and retrieval, per-step decision submission, and scenario authoring.
//
// The service does not expose a structured error contract. Every transport
// failure and non-2xx response surfaces as ErrRequestFailed.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ormasoftchile/dilemma/pkg/scenario"
)

// DefaultBaseURL is the analysis service of a local development stack.
const DefaultBaseURL = "http://localhost:8000/api"

var (
	// ErrRequestFailed is the single boundary failure signal.
	ErrRequestFailed = errors.New("request failed")
	// ErrInvalidRequest is returned before any I/O when a request fails validation.
	ErrInvalidRequest = errors.New("invalid request")
)

// Client talks JSON over HTTP to the analysis service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	logger   *zap.Logger
	validate *validator.Validate
}

// New creates a client for baseURL. A nil logger disables logging.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL for analysis service: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("api"),
		validate:   newValidator(),
	}, nil
}

// ListScenarios returns the scenario library in server order.
func (c *Client) ListScenarios(ctx context.Context) ([]scenario.Summary, error) {
	body, err := c.do(ctx, http.MethodGet, "/scenarios", nil)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	var out []scenario.Summary
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("list scenarios: %w: parse response: %w", ErrRequestFailed, err)
	}
	return out, nil
}

// GetScenario fetches one complete scenario. The returned scenario is
// prepared; a payload that violates the step invariants is a failure.
func (c *Client) GetScenario(ctx context.Context, id string) (*scenario.Scenario, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("get scenario: %w: empty id", ErrInvalidRequest)
	}
	body, err := c.do(ctx, http.MethodGet, "/scenarios/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("get scenario %q: %w", id, err)
	}
	s, err := scenario.DecodeJSON(body)
	if err != nil {
		return nil, fmt.Errorf("get scenario %q: %w: %w", id, ErrRequestFailed, err)
	}
	return s, nil
}

// SubmitDecision posts one choice and returns the service's analysis.
func (c *Client) SubmitDecision(ctx context.Context, req SubmitRequest) (*DecisionResponse, error) {
	body, err := c.do(ctx, http.MethodPost, "/decisions/submit", req)
	if err != nil {
		return nil, fmt.Errorf("submit decision (step %d): %w", req.Step, err)
	}
	var resp DecisionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("submit decision (step %d): %w: parse response: %w", req.Step, ErrRequestFailed, err)
	}
	return &resp, nil
}

// GenerateScenario asks the authoring service for a new scenario. The request
// is validated locally first and always saved to the library.
func (c *Client) GenerateScenario(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	req.SaveToLibrary = true
	if err := ValidateGenerate(c.validate, req); err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodPost, "/generate/generate", req)
	if err != nil {
		return nil, fmt.Errorf("generate scenario: %w", err)
	}
	var out GenerateResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("generate scenario: %w: parse response: %w", ErrRequestFailed, err)
	}
	if out.Scenario == nil {
		return nil, fmt.Errorf("generate scenario: %w: response has no scenario", ErrRequestFailed)
	}
	if err := out.Scenario.Prepare(); err != nil {
		return nil, fmt.Errorf("generate scenario: %w: %w", ErrRequestFailed, err)
	}
	return &out, nil
}

// ValidateGenerate checks the authoring form constraints.
func ValidateGenerate(v *validator.Validate, req GenerateRequest) error {
	if v == nil {
		v = newValidator()
	}
	if err := v.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// do performs one JSON request and returns the raw response body.
func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.logger.Warn("request error", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrRequestFailed, err)
	}

	c.logger.Debug("request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("non-success response",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(data, 300)),
		)
		return nil, fmt.Errorf("%w: HTTP %d", ErrRequestFailed, resp.StatusCode)
	}
	return data, nil
}

func truncate(b []byte, max int) string {
	s := string(b)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
