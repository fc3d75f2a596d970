package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSendAPIClient_Send_Success(t *testing.T) {
	t.Parallel()

	type gotReq struct {
		Method      string
		ContentType string
		Auth        string
		Body        []byte
	}

	var captured gotReq

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Method = r.Method
		captured.ContentType = r.Header.Get("Content-Type")
		captured.Auth = r.Header.Get("Authorization")

		b, _ := io.ReadAll(r.Body)
		captured.Body = b

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Sent","messageId":"abc-123"}`))
	}))
	defer srv.Close()

	coach := uuid.New()
	recipient := uuid.New()
	c := NewSendAPIClient(srv.URL, "sweep-secret")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	msgID, err := c.Send(ctx, coach, recipient, "check in today")
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if msgID != "abc-123" {
		t.Fatalf("expected messageId %q, got %q", "abc-123", msgID)
	}

	if captured.Method != http.MethodPost {
		t.Fatalf("expected method POST, got %q", captured.Method)
	}
	if captured.ContentType != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", captured.ContentType)
	}
	if captured.Auth != "Bearer sweep-secret" {
		t.Fatalf("expected bearer secret, got %q", captured.Auth)
	}

	var req sendRequest
	if err := json.Unmarshal(captured.Body, &req); err != nil {
		t.Fatalf("failed to decode request json: %v body=%q", err, string(captured.Body))
	}
	if req.CoachID != coach.String() {
		t.Fatalf("expected coachId %q, got %q", coach, req.CoachID)
	}
	if req.ClientID != recipient.String() {
		t.Fatalf("expected clientId %q, got %q", recipient, req.ClientID)
	}
	if req.Message != "check in today" {
		t.Fatalf("expected message %q, got %q", "check in today", req.Message)
	}
}

func TestSendAPIClient_Send_Non200_ReturnsErrorWithBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
	}))
	defer srv.Close()

	c := NewSendAPIClient(srv.URL, "wrong")
	_, err := c.Send(context.Background(), uuid.New(), uuid.New(), "hi")
	if err == nil {
		t.Fatalf("expected error on 401")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "Unauthorized") {
		t.Fatalf("expected status and body in error, got %v", err)
	}
}

func TestSendAPIClient_Send_MissingMessageID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"Sent"}`))
	}))
	defer srv.Close()

	c := NewSendAPIClient(srv.URL, "s")
	_, err := c.Send(context.Background(), uuid.New(), uuid.New(), "hi")
	if err == nil || !strings.Contains(err.Error(), "missing messageId") {
		t.Fatalf("expected missing messageId error, got %v", err)
	}
}

func TestSendAPIClient_Send_BadJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway error</html>"))
	}))
	defer srv.Close()

	c := NewSendAPIClient(srv.URL, "s")
	_, err := c.Send(context.Background(), uuid.New(), uuid.New(), "hi")
	if err == nil || !strings.Contains(err.Error(), "failed to decode json") {
		t.Fatalf("expected decode error, got %v", err)
	}
}
