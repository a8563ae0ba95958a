package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// request is the verification request body.
type request struct {
	Action            string `json:"action"`
	EntityID          string `json:"entityId"`
	CandidatePassword string `json:"candidatePassword"`
}

// response is the verification response body.
type response struct {
	IsValid bool `json:"isValid"`
}

// Client calls the verification endpoint. It satisfies gate.Verifier.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a Client for the given endpoint URL. The timeout
// bounds each call in addition to any caller-supplied context deadline.
func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Verify checks a candidate password for a graduation. The error is
// non-nil only for transport-level failures; a wrong password is
// (false, nil).
func (c *Client) Verify(ctx context.Context, entityID, candidate string) (bool, error) {
	body, err := json.Marshal(request{
		Action:            "verify",
		EntityID:          entityID,
		CandidatePassword: candidate,
	})
	if err != nil {
		return false, fmt.Errorf("verify: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("verify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Surface the context error so callers can tell a timeout from
		// other transport failures with errors.Is.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, fmt.Errorf("verify: %w", ctxErr)
		}
		return false, fmt.Errorf("verify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("verify: unexpected status %d", resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("verify: decode response: %w", err)
	}
	return out.IsValid, nil
}
