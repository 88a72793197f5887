package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/remedystack/remedy-engine/internal/models"
)

// Request carries the incident context submitted to the advisory service.
// Only candidate identifiers and diagnosis context cross the wire; the
// service may reorder, never add, remove, or rescore.
type Request struct {
	IncidentID   string          `json:"incident_id"`
	CandidateIDs []string        `json:"candidate_ids"`
	Cause        models.Cause    `json:"cause"`
	Confidence   float64         `json:"confidence"`
	HotPath      string          `json:"hot_path"`
	Deltas       models.DeltaSet `json:"deltas"`
}

// Result is the advisory service's answer: the same candidate identifiers
// in preferred order, plus an optional free-text rationale.
type Result struct {
	OrderedIDs []string `json:"ordered_ids"`
	Rationale  string   `json:"rationale,omitempty"`
}

// Reranker reorders a ranked candidate list. Implementations must respect
// the context deadline; callers treat any error as advisory-unavailable
// and keep the original order.
type Reranker interface {
	Rerank(ctx context.Context, req Request) (Result, error)
}

// HTTPReranker calls an external advisory endpoint over HTTP.
type HTTPReranker struct {
	baseURL    string
	rerankPath string
	timeout    time.Duration
	httpClient *http.Client
}

// NewHTTPReranker constructs a client targeting the configured advisory
// service. The timeout bounds every call regardless of the caller's context.
func NewHTTPReranker(baseURL, rerankPath string, timeout time.Duration) *HTTPReranker {
	return &HTTPReranker{
		baseURL:    strings.TrimRight(baseURL, "/"),
		rerankPath: rerankPath,
		timeout:    timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Rerank submits the candidate list and returns the advisory ordering.
func (c *HTTPReranker) Rerank(ctx context.Context, req Request) (Result, error) {
	if c == nil {
		return Result{}, fmt.Errorf("advisory client not initialised")
	}
	if c.baseURL == "" {
		return Result{}, fmt.Errorf("advisory base URL not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result Result
	if err := c.postJSON(ctx, c.rerankURL(), req, &result); err != nil {
		return Result{}, fmt.Errorf("advisory rerank request failed: %w", err)
	}
	if len(result.OrderedIDs) == 0 {
		return Result{}, fmt.Errorf("advisory rerank returned no ordering")
	}
	return result, nil
}

func (c *HTTPReranker) rerankURL() string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(c.rerankPath, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *HTTPReranker) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("advisory service returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
