package names

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

	"github.com/google/uuid"
)

// DefaultProfileURL is the Mojang session server profile endpoint.
const DefaultProfileURL = "https://sessionserver.mojang.com/session/minecraft/profile"

var errNoProfile = errors.New("no profile for id")

// MojangClient looks player names up on the Mojang profile API.
type MojangClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

// NewMojangClient creates a client for baseURL; an empty baseURL uses DefaultProfileURL.
func NewMojangClient(baseURL string, timeout time.Duration) *MojangClient {
	if baseURL == "" {
		baseURL = DefaultProfileURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MojangClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "mc-exporter/1.0",
	}
}

type nameEntry struct {
	Name        string `json:"name"`
	ChangedToAt *int64 `json:"changedToAt,omitempty"`
}

// LookupName fetches the most recent name for a player id.
func (c *MojangClient) LookupName(ctx context.Context, id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("invalid player id %q: %w", id, err)
	}
	undashed := strings.ReplaceAll(parsed.String(), "-", "")

	url := fmt.Sprintf("%s/%s", c.baseURL, undashed)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound:
		return "", errNoProfile
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("profile API error: status=%d, body=%s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	return parseName(body)
}

// parseName accepts a profile object ({"id":..,"name":..}) or a legacy name
// history array, in which case the last entry is the current name.
func parseName(body []byte) (string, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return "", errNoProfile
	}

	if body[0] == '[' {
		var history []nameEntry
		if err := json.Unmarshal(body, &history); err != nil {
			return "", fmt.Errorf("decoding name history: %w", err)
		}
		if len(history) == 0 || history[len(history)-1].Name == "" {
			return "", errNoProfile
		}
		return history[len(history)-1].Name, nil
	}

	var profile nameEntry
	if err := json.Unmarshal(body, &profile); err != nil {
		return "", fmt.Errorf("decoding profile: %w", err)
	}
	if profile.Name == "" {
		return "", errNoProfile
	}
	return profile.Name, nil
}
