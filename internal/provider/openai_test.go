package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAI {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAI(OpenAIConfig{
		APIKey:  "sk-test",
		APIBase: srv.URL,
		Logger:  testLogger(),
	})
}

func TestGenerate_SendsTemperatureZero(t *testing.T) {
	var captured map[string]any
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("request not JSON: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hallo"},"finish_reason":"stop"}]}`))
	})

	answer, err := o.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if answer != "hallo" {
		t.Fatalf("answer = %q", answer)
	}

	temp, ok := captured["temperature"]
	if !ok {
		t.Fatal("temperature missing from request body; 0 must be serialized explicitly")
	}
	if temp.(float64) != 0 {
		t.Fatalf("temperature = %v, want 0", temp)
	}
	if captured["max_tokens"].(float64) != 4000 {
		t.Fatalf("max_tokens = %v, want 4000", captured["max_tokens"])
	}
}

func TestGenerate_ErrorStatusSurfaced(t *testing.T) {
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	})
	if _, err := o.Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestEmbedTexts_OrderedByIndex(t *testing.T) {
	// Respond out of order; vectors must land at their declared indexes.
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":[
			{"index":1,"embedding":[0,1]},
			{"index":0,"embedding":[1,0]}
		]}`))
	})

	vectors, err := o.EmbedTexts(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedTexts: %v", err)
	}
	if vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Fatalf("vectors not reordered by index: %v", vectors)
	}
}

func TestEmbedTexts_CountMismatch(t *testing.T) {
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1]}]}`))
	})
	if _, err := o.EmbedTexts(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error for embedding count mismatch")
	}
}

func TestEmbedTexts_EmptyInput(t *testing.T) {
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty input")
	})
	vectors, err := o.EmbedTexts(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("empty input: vectors=%v err=%v", vectors, err)
	}
}
