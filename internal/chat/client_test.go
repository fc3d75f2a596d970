package chat

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

func TestClient_Send_UpsertsThenSends(t *testing.T) {
	t.Parallel()

	coach := uuid.New()
	recipient := uuid.New()

	var paths []string
	var upsertBody upsertUsersRequest
	var sendBody sendMessageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)

		if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "Bearer ") {
			t.Errorf("expected bearer auth header, got %q", auth)
		}

		b, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/v1/users":
			_ = json.Unmarshal(b, &upsertBody)
			_, _ = w.Write([]byte(`{}`))
		case strings.HasSuffix(r.URL.Path, "/message"):
			_ = json.Unmarshal(b, &sendBody)
			_, _ = w.Write([]byte(`{"messageId":"chat-msg-1"}`))
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	msgID, err := c.Send(ctx, coach, recipient, "leg day tomorrow")
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if msgID != "chat-msg-1" {
		t.Fatalf("expected messageId %q, got %q", "chat-msg-1", msgID)
	}

	if len(paths) != 2 || paths[0] != "/v1/users" {
		t.Fatalf("expected upsert before send, got paths %v", paths)
	}
	wantChannel := "/v1/channels/messaging/" + coach.String() + "_" + recipient.String() + "/message"
	if paths[1] != wantChannel {
		t.Fatalf("expected send path %q, got %q", wantChannel, paths[1])
	}

	if len(upsertBody.UserIDs) != 2 {
		t.Fatalf("expected both identities upserted, got %v", upsertBody.UserIDs)
	}
	if sendBody.SenderID != coach.String() {
		t.Fatalf("expected sender %s, got %s", coach, sendBody.SenderID)
	}
	if sendBody.Text != "leg day tomorrow" {
		t.Fatalf("unexpected text %q", sendBody.Text)
	}
}

func TestClient_Send_UpsertFailureAbortsSend(t *testing.T) {
	t.Parallel()

	var sends int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/users" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("provider down"))
			return
		}
		sends++
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	_, err := c.Send(context.Background(), uuid.New(), uuid.New(), "hi")
	if err == nil {
		t.Fatalf("expected error when upsert fails")
	}
	if !strings.Contains(err.Error(), "upsert chat users") {
		t.Fatalf("expected upsert error, got %v", err)
	}
	if sends != 0 {
		t.Fatalf("expected no message send after failed upsert, got %d", sends)
	}
}

func TestClient_Send_MissingMessageID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	_, err := c.Send(context.Background(), uuid.New(), uuid.New(), "hi")
	if err == nil || !strings.Contains(err.Error(), "missing messageId") {
		t.Fatalf("expected missing messageId error, got %v", err)
	}
}
