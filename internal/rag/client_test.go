package rag

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChatRelaysStatusAndBody(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat" {
			t.Errorf("upstream got %s %s, want POST /chat", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"response":"A contract requires offer and acceptance."}`))
	}))
	defer upstream.Close()

	client := NewClient(Config{BaseURL: upstream.URL})
	status, body, err := client.Chat(context.Background(), []byte(`{"message":"What makes a contract valid?"}`))
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want %d", status, http.StatusOK)
	}
	want := `{"response":"A contract requires offer and acceptance."}`
	if string(body) != want {
		t.Errorf("body = %s, want %s", body, want)
	}
}

func TestChatRelaysUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"message is required"}`))
	}))
	defer upstream.Close()

	client := NewClient(Config{BaseURL: upstream.URL})
	status, _, err := client.Chat(context.Background(), []byte(`{}`))
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", status, http.StatusUnprocessableEntity)
	}
}

func TestSearchQueryEncoding(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "breach of contract" {
			t.Errorf("q = %q, want %q", got, "breach of contract")
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q, want %q", got, "5")
		}
		w.Write([]byte(`{"results":[]}`))
	}))
	defer upstream.Close()

	client := NewClient(Config{BaseURL: upstream.URL})
	status, _, err := client.Search(context.Background(), "breach of contract", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want %d", status, http.StatusOK)
	}
}

func TestDocumentPathEscaping(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.EscapedPath(); got != "/document/case%2F42" {
			t.Errorf("path = %q, want %q", got, "/document/case%2F42")
		}
		w.Write([]byte(`{"id":"case/42","text":"..."}`))
	}))
	defer upstream.Close()

	client := NewClient(Config{BaseURL: upstream.URL})
	status, _, err := client.Document(context.Background(), "case/42")
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want %d", status, http.StatusOK)
	}
}

func TestRelayDownUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close() // nothing listening

	client := NewClient(Config{BaseURL: upstream.URL, Timeout: time.Second})
	_, _, err := client.Chat(context.Background(), []byte(`{"message":"hi"}`))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestRelayNonJSONUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>502 Bad Gateway</html>`))
	}))
	defer upstream.Close()

	client := NewClient(Config{BaseURL: upstream.URL})
	_, _, err := client.Chat(context.Background(), []byte(`{"message":"hi"}`))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestHealthy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %q, want /health", r.URL.Path)
		}
		w.Write([]byte(`{"status":"healthy"}`))
	}))
	defer upstream.Close()

	client := NewClient(Config{BaseURL: upstream.URL})
	if !client.Healthy(context.Background()) {
		t.Error("healthy upstream reported unhealthy")
	}

	upstream.Close()
	if client.Healthy(context.Background()) {
		t.Error("closed upstream reported healthy")
	}
}
