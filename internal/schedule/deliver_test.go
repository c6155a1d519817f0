package schedule

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestWebhookDeliverer_PostsJSON(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	deliver := NewWebhookDeliverer(srv.URL, srv.Client())
	if err := deliver(context.Background(), "ops-room", "**Daily Command Usage Briefing**"); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if got.Target != "ops-room" || !strings.Contains(got.Content, "Daily Command Usage Briefing") {
		t.Fatalf("payload = %+v", got)
	}
}

func TestWebhookDeliverer_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	deliver := NewWebhookDeliverer(srv.URL, srv.Client())
	err := deliver(context.Background(), "ops-room", "text")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestWebhookDeliverer_HonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	deliver := NewWebhookDeliverer(srv.URL, srv.Client())
	if err := deliver(ctx, "ops-room", "text"); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestLogDeliverer_NeverFails(t *testing.T) {
	deliver := NewLogDeliverer(zerolog.Nop())
	if err := deliver(context.Background(), "ops-room", "text"); err != nil {
		t.Fatalf("deliver: %v", err)
	}
}
