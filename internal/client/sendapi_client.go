package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SendAPIClient calls the main application's internal send endpoint, one
// request per (message, recipient) pair. The background sweeper uses it
// instead of talking to the chat provider directly so the main app stays the
// single writer of chat state.
type SendAPIClient struct {
	url    string
	secret string
	client *http.Client
}

func NewSendAPIClient(url, secret string) *SendAPIClient {
	return &SendAPIClient{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendRequest struct {
	CoachID  string `json:"coachId"`
	ClientID string `json:"clientId"`
	Message  string `json:"message"`
}

type sendResponse struct {
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
}

func (c *SendAPIClient) Send(ctx context.Context, coachID, recipientID uuid.UUID, text string) (string, error) {
	reqBody, err := json.Marshal(sendRequest{
		CoachID:  coachID.String(),
		ClientID: recipientID.String(),
		Message:  text,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d body=%q", resp.StatusCode, string(body))
	}

	var sr sendResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("failed to decode json: %w body=%q", err, string(body))
	}
	if sr.MessageID == "" {
		return "", fmt.Errorf("missing messageId in response body=%q", string(body))
	}

	return sr.MessageID, nil
}
