package stt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dispatchcrew/airdispatch/pkg/config"
)

func TestAssemblyAITranscribe(t *testing.T) {
	// Mock AssemblyAI server: one submit, then a poll that completes.
	polls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/transcript"):
			var payload map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Fatalf("invalid payload: %v", err)
			}
			if payload["audio_url"] != "https://cdn.example.com/seg.wav" {
				t.Fatalf("unexpected audio url %v", payload["audio_url"])
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":     "transcript-123",
				"status": "queued",
			})
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/transcript/transcript-123"):
			polls++
			if polls == 1 {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"id":     "transcript-123",
					"status": "processing",
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{
				"id":            "transcript-123",
				"status":        "completed",
				"text":          "unit 12 requesting backup, code 3",
				"confidence":    0.91,
				"language_code": "en",
			})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer ts.Close()

	client := NewAssemblyAIClient(&config.AssemblyAIConfig{
		APIKey:       "test-key",
		BaseURL:      ts.URL,
		LanguageCode: "en",
		PollInterval: 10 * time.Millisecond,
	}, nil)

	end := time.Now()
	result, err := client.Transcribe(context.Background(), "https://cdn.example.com/seg.wav", end.Add(-20*time.Second), end)
	if err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if result.Text != "unit 12 requesting backup, code 3" {
		t.Fatalf("unexpected text %q", result.Text)
	}
	if result.Confidence != 0.91 {
		t.Fatalf("unexpected confidence %v", result.Confidence)
	}
	if result.LanguageCode != "en" {
		t.Fatalf("unexpected language %q", result.LanguageCode)
	}
	if polls < 2 {
		t.Fatalf("expected at least 2 polls, got %d", polls)
	}
}

func TestAssemblyAITranscribeJobError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]interface{}{"id": "transcript-err", "status": "queued"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "transcript-err",
			"status": "error",
			"error":  "audio file unreadable",
		})
	}))
	defer ts.Close()

	client := NewAssemblyAIClient(&config.AssemblyAIConfig{
		APIKey:       "test-key",
		BaseURL:      ts.URL,
		PollInterval: 10 * time.Millisecond,
	}, nil)

	end := time.Now()
	_, err := client.Transcribe(context.Background(), "https://cdn.example.com/bad.wav", end.Add(-20*time.Second), end)
	if err == nil || !strings.Contains(err.Error(), "audio file unreadable") {
		t.Fatalf("expected job error surfaced, got %v", err)
	}
}
