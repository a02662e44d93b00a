package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"appforge/internal/ledger"
)

func TestNotify_PostsCompletionPayload(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sha := "abc123"
	rec := ledger.Record{
		Email: "a@b.c", Task: "task-1", Round: 1, Nonce: "n1",
		RepoURL: "https://github.com/u/task-1", CommitSHA: &sha,
	}
	if err := NewNotifier(nil).Notify(context.Background(), srv.URL, rec); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if gotContentType != "application/json" {
		t.Fatalf("content type = %q", gotContentType)
	}

	var payload map[string]any
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["email"] != "a@b.c" || payload["task"] != "task-1" || payload["round"] != float64(1) {
		t.Fatalf("payload = %v", payload)
	}
	if payload["commit_sha"] != "abc123" {
		t.Fatalf("commit_sha = %v", payload["commit_sha"])
	}
	// Degraded fields serialize as explicit nulls, not omissions.
	if v, ok := payload["pages_url"]; !ok || v != nil {
		t.Fatalf("pages_url = %v present=%v, want explicit null", v, ok)
	}
}

func TestNotify_Non2xxIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewNotifier(nil).Notify(context.Background(), srv.URL, ledger.Record{})
	if err == nil {
		t.Fatalf("expected error on 502")
	}
}

func TestNotify_ConnectionRefusedIsAnError(t *testing.T) {
	err := NewNotifier(nil).Notify(context.Background(), "http://127.0.0.1:1/nope", ledger.Record{})
	if err == nil {
		t.Fatalf("expected connection error")
	}
}
