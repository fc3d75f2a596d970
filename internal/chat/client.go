package chat

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

// Client talks to the hosted chat provider's REST API. Messages between a
// coach and a client travel on a deterministic two-party channel; the
// provider requires both identities to exist before the first message, so
// every send is preceded by an identity upsert (idempotent on the provider
// side).
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type upsertUsersRequest struct {
	UserIDs []string `json:"userIds"`
}

type sendMessageRequest struct {
	SenderID string `json:"senderId"`
	Text     string `json:"text"`
}

type sendMessageResponse struct {
	MessageID string `json:"messageId"`
}

// Send delivers text from the coach to one recipient and returns the
// provider-assigned message id.
func (c *Client) Send(ctx context.Context, coachID, recipientID uuid.UUID, text string) (string, error) {
	if err := c.upsertUsers(ctx, coachID, recipientID); err != nil {
		return "", fmt.Errorf("upsert chat users: %w", err)
	}

	channel := channelID(coachID, recipientID)
	body, err := c.post(ctx, "/v1/channels/messaging/"+channel+"/message", sendMessageRequest{
		SenderID: coachID.String(),
		Text:     text,
	})
	if err != nil {
		return "", err
	}

	var resp sendMessageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode json: %w body=%q", err, string(body))
	}
	if resp.MessageID == "" {
		return "", fmt.Errorf("missing messageId in response body=%q", string(body))
	}
	return resp.MessageID, nil
}

func (c *Client) upsertUsers(ctx context.Context, coachID, recipientID uuid.UUID) error {
	_, err := c.post(ctx, "/v1/users", upsertUsersRequest{
		UserIDs: []string{coachID.String(), recipientID.String()},
	})
	return err
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status code: %d body=%q", resp.StatusCode, string(body))
	}
	return body, nil
}

// channelID derives the stable two-party channel name. Both sides always
// compute the same name regardless of who messages first.
func channelID(coachID, recipientID uuid.UUID) string {
	return coachID.String() + "_" + recipientID.String()
}
