// Package directory talks to the external team directory: the source of
// truth for which team spaces exist.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dkeye/Presence/internal/core"
)

type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string) *Client {
	return &Client{
		url:  url,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

// ListTeams fetches the current team list. The endpoint returns either a
// bare array or an object with a "teams" field; both shapes are accepted.
func (c *Client) ListTeams(ctx context.Context) ([]core.TeamInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("directory request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory fetch: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("directory read: %w", err)
	}

	var teams []core.TeamInfo
	if err := json.Unmarshal(body, &teams); err == nil {
		return teams, nil
	}

	var wrapped struct {
		Teams []core.TeamInfo `json:"teams"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("directory decode: %w", err)
	}
	return wrapped.Teams, nil
}
