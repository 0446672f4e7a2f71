// Package api implements the remote Backend over the managed backend's
// HTTP/JSON API, authenticated with a bearer token.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crewclock/crewclock/internal/remote"
	"golang.org/x/oauth2"
)

// Client talks to the managed backend's REST API.
type Client struct {
	base string
	http *http.Client
}

// New creates a Client for the given endpoint. The token authenticates every
// request via an oauth2 static token source.
func New(endpoint, token string) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Client{
		base: endpoint,
		http: oauth2.NewClient(context.Background(), src),
	}
}

// StartSession implements remote.Backend.
func (c *Client) StartSession(ctx context.Context, workerID, remoteShiftID, kind string, loc remote.LocationRef) (*remote.StartResult, error) {
	body := map[string]interface{}{
		"shiftId":  remoteShiftID,
		"kind":     kind,
		"location": loc,
	}
	var result remote.StartResult
	path := fmt.Sprintf("/v1/workers/%s/sessions/start", workerID)
	if err := c.post(ctx, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CompleteSession implements remote.Backend.
func (c *Client) CompleteSession(ctx context.Context, workerID, kind string) (*remote.CompleteResult, error) {
	var result remote.CompleteResult
	path := fmt.Sprintf("/v1/workers/%s/sessions/complete", workerID)
	if err := c.post(ctx, path, map[string]string{"kind": kind}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ManualClose implements remote.Backend.
func (c *Client) ManualClose(ctx context.Context, workerID, localSessionID string, closedAt time.Time) error {
	body := map[string]interface{}{
		"localSessionId": localSessionID,
		"closedAt":       closedAt.UTC().Format(time.RFC3339),
	}
	path := fmt.Sprintf("/v1/workers/%s/sessions/manual-close", workerID)
	return c.post(ctx, path, body, nil)
}

// AutoClose implements remote.Backend.
func (c *Client) AutoClose(ctx context.Context, remoteShiftID, workerID string, closedAt time.Time) error {
	body := map[string]interface{}{
		"workerId": workerID,
		"closedAt": closedAt.UTC().Format(time.RFC3339),
	}
	path := fmt.Sprintf("/v1/shifts/%s/auto-close", remoteShiftID)
	return c.post(ctx, path, body, nil)
}

// DirectInsert implements remote.Backend. The PUT is keyed by the local
// session id, so a repeated attempt whose earlier response was lost lands on
// the same remote record.
func (c *Client) DirectInsert(ctx context.Context, snap remote.Snapshot) (string, error) {
	var result struct {
		RemoteID string `json:"remoteId"`
	}
	path := fmt.Sprintf("/v1/sessions/%s", snap.LocalID)
	if err := c.do(ctx, http.MethodPut, path, snap, &result); err != nil {
		return "", err
	}
	return result.RemoteID, nil
}

// FetchBuildings implements remote.ReferenceSource.
func (c *Client) FetchBuildings(ctx context.Context) ([]remote.BuildingRecord, error) {
	var result struct {
		Buildings []remote.BuildingRecord `json:"buildings"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/buildings", nil, &result); err != nil {
		return nil, err
	}
	return result.Buildings, nil
}

// FetchUnits implements remote.ReferenceSource.
func (c *Client) FetchUnits(ctx context.Context, buildingID string) ([]remote.UnitRecord, error) {
	var result struct {
		Units []remote.UnitRecord `json:"units"`
	}
	path := fmt.Sprintf("/v1/buildings/%s/units", buildingID)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Units, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: marshal %s: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("api: build request %s: %w", path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Connection refused, DNS failure, timeout: all "try again later".
		return fmt.Errorf("api: %s %s: %w: %v", method, path, remote.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read response %s: %w: %v", path, remote.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("api: %s %s: status %d: %w", method, path, resp.StatusCode, remote.ErrUnavailable)
	case resp.StatusCode >= 400:
		// Business rejections come back 200 with accepted=false; a 4xx here
		// is a definitive application failure.
		return fmt.Errorf("api: %s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("api: decode response %s: %w", path, err)
	}
	return nil
}
