package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultCDPURL is where a Chrome started with --remote-debugging-port=9222 listens.
const DefaultCDPURL = "http://localhost:9222"

const cdpProbeTimeout = 2 * time.Second

// CDPVersion is the subset of /json/version the engine uses.
type CDPVersion struct {
	Browser              string `json:"Browser"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// ProbeCDP checks whether a Chrome DevTools endpoint answers at baseURL.
// The probe gives up after two seconds.
func ProbeCDP(ctx context.Context, client *http.Client, baseURL string) (*CDPVersion, error) {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, cdpProbeTimeout)
	defer cancel()

	url := strings.TrimRight(baseURL, "/") + "/json/version"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build CDP probe: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("probe %s: status %d", url, resp.StatusCode)
	}
	var v CDPVersion
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return nil, fmt.Errorf("decode CDP version: %w", err)
	}
	return &v, nil
}
