package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/jobin2005/roadgaurd-dark/internal/models"
)

// FlagResult is the backend's verdict on a flag submission. Removed reports
// whether the hazard crossed the community-flag threshold server-side; the
// engine surfaces the distinction but never decides removal itself.
type FlagResult struct {
	FlagCount    int  `json:"total_flags"`
	PassageCount int  `json:"total_passages"`
	Removed      bool `json:"pothole_removed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type nearbyResponse struct {
	Potholes []models.Hazard `json:"potholes"`
}

// Client talks to the hazard backend service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NearbyHazards fetches hazards around a point. The backend excludes
// hazards already marked removed.
func (c *Client) NearbyHazards(ctx context.Context, center models.Coordinate, radiusKM float64) ([]models.Hazard, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", center.Latitude))
	q.Set("lng", fmt.Sprintf("%f", center.Longitude))
	q.Set("radius_km", fmt.Sprintf("%g", radiusKM))

	endpoint := fmt.Sprintf("%s/potholes/nearby?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	var body nearbyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("error decoding nearby hazards: %w", err)
	}
	return body.Potholes, nil
}

// ReportPassage posts a passage record. Best-effort telemetry: callers log
// failures and move on, nothing is retried.
func (c *Client) ReportPassage(ctx context.Context, hazardID, travelerID string) error {
	endpoint := fmt.Sprintf("%s/potholes/%s/passage", c.baseURL, url.PathEscape(hazardID))
	resp, err := c.post(ctx, endpoint, travelerID)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("passage report rejected: %s", readError(resp.Body, resp.Status))
	}
	return nil
}

// SubmitFlag posts a falsely-reported-hazard flag. Failures are returned to
// the caller so they can be surfaced; a malformed success body is also a
// failure for user-visible messaging purposes.
func (c *Client) SubmitFlag(ctx context.Context, hazardID, travelerID string) (FlagResult, error) {
	endpoint := fmt.Sprintf("%s/potholes/%s/flag", c.baseURL, url.PathEscape(hazardID))
	resp, err := c.post(ctx, endpoint, travelerID)
	if err != nil {
		return FlagResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FlagResult{}, fmt.Errorf("flag rejected: %s", readError(resp.Body, resp.Status))
	}

	var result FlagResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return FlagResult{}, fmt.Errorf("error decoding flag response: %w", err)
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, endpoint, travelerID string) (*http.Response, error) {
	payload, err := json.Marshal(map[string]string{"user_id": travelerID})
	if err != nil {
		return nil, fmt.Errorf("error encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while doing request: %w", err)
	}
	return resp, nil
}

// readError extracts the backend's error string, falling back to the HTTP
// status line.
func readError(r io.Reader, status string) string {
	var body errorResponse
	if err := json.NewDecoder(r).Decode(&body); err == nil && body.Error != "" {
		return body.Error
	}
	return status
}
