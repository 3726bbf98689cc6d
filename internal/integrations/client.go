package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/modelaudit/modelaudit/pkg/errors"
	"github.com/modelaudit/modelaudit/pkg/probe"
)

// scannerClient talks to one scanner sidecar service (garak, counterfit, ART
// or SecureTopTen runner) over its probe API. The resilience pipeline sits
// above this client; it only performs the raw calls.
type scannerClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

func newScannerClient(name, baseURL string, httpClient *http.Client) *scannerClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}

	return &scannerClient{
		name:       name,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// rawProbeResult is the wire shape returned by the scanner services
type rawProbeResult struct {
	Passed   bool         `json:"passed"`
	Severity string       `json:"severity"`
	Score    float64      `json:"score"`
	Detail   string       `json:"detail,omitempty"`
	Findings []rawFinding `json:"findings"`
}

type rawFinding struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	Evidence    string   `json:"evidence,omitempty"`
	Confidence  float64  `json:"confidence"`
	References  []string `json:"references,omitempty"`
}

type probeListResponse struct {
	Probes []probe.ProbeInfo `json:"probes"`
}

type runProbeRequest struct {
	Model    string            `json:"model"`
	Provider string            `json:"provider"`
	Config   map[string]string `json:"config,omitempty"`
}

// ListProbes returns the identifiers of every probe the scanner offers
func (c *scannerClient) ListProbes(ctx context.Context) ([]string, error) {
	var response probeListResponse
	if err := c.get(ctx, "/api/v1/probes", &response); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(response.Probes))
	for _, info := range response.Probes {
		ids = append(ids, info.ID)
	}

	return ids, nil
}

// GetProbeInfo returns descriptive metadata for one probe
func (c *scannerClient) GetProbeInfo(ctx context.Context, probeID string) (*probe.ProbeInfo, error) {
	var info probe.ProbeInfo
	if err := c.get(ctx, "/api/v1/probes/"+probeID, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// InvokeProbe performs one raw probe run against the scanner service
func (c *scannerClient) InvokeProbe(ctx context.Context, inv probe.Invocation) (*rawProbeResult, error) {
	body, err := json.Marshal(runProbeRequest{
		Model:    inv.Target.Name,
		Provider: inv.Target.Provider,
		Config:   inv.Target.Config,
	})
	if err != nil {
		return nil, errors.NewInternalError("failed to encode probe request").WithCause(err)
	}

	url := c.baseURL + "/api/v1/probes/" + inv.ProbeID + "/run"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewInternalError("failed to build probe request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewExternalError(c.name, fmt.Sprintf("probe %s invocation failed", inv.ProbeID)).WithCause(err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, "probe "+inv.ProbeID); err != nil {
		return nil, err
	}

	var raw rawProbeResult
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errors.NewExternalError(c.name, "failed to decode probe response").WithCause(err)
	}

	return &raw, nil
}

func (c *scannerClient) get(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.NewInternalError("failed to build request").WithCause(err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewExternalError(c.name, fmt.Sprintf("request to %s failed", path)).WithCause(err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, path); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return errors.NewExternalError(c.name, "failed to decode response").WithCause(err)
	}

	return nil
}

// checkStatus normalizes scanner HTTP statuses into the typed error taxonomy
// the retry policy understands
func (c *scannerClient) checkStatus(resp *http.Response, operation string) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.NewAuthenticationError(c.name)
	case resp.StatusCode == http.StatusNotFound:
		return errors.NewNotFoundError(operation)
	case resp.StatusCode == http.StatusTooManyRequests:
		// The scanner's own throttle, distinct from our admission control;
		// transient and safe to retry
		return errors.NewExternalError(c.name, fmt.Sprintf("%s throttled by scanner", operation))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return errors.NewValidationError(fmt.Sprintf("%s rejected by %s with status %d", operation, c.name, resp.StatusCode))
	default:
		return errors.NewExternalError(c.name, fmt.Sprintf("%s failed with status %d", operation, resp.StatusCode))
	}
}
