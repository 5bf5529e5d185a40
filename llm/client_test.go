package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func sseServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, f := range frames {
			fmt.Fprintf(w, "data: %s\n", f)
			if flusher != nil {
				flusher.Flush()
			}
		}
	}))
}

func TestCompleteStreamingAccumulatesContent(t *testing.T) {
	srv := sseServer(t, []string{
		`{"choices":[{"delta":{"content":"he"}}]}`,
		`{"choices":[{"delta":{"content":"ll"}}]}`,
		`{"choices":[{"delta":{"content":"o"}}]}`,
		"[DONE]",
	})
	defer srv.Close()

	d := Descriptor{
		Endpoint: srv.URL + "/v1/chat/completions",
		APIKey:   "k",
		Params:   map[string]any{"stream": true},
	}

	var calls int
	got, err := NewClient().Complete(context.Background(), d, "hi", Options{
		OnChunk: func(text string, kind ChunkKind) {
			calls++
			if kind != Content {
				t.Fatalf("unexpected kind %v", kind)
			}
		},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "hello" {
		t.Fatalf("got %q", got)
	}
	if calls != 3 {
		t.Fatalf("callback invoked %d times, want 3", calls)
	}
}

func TestCompleteStreamingReasoningExcludedFromReturnValue(t *testing.T) {
	srv := sseServer(t, []string{
		`{"choices":[{"delta":{"reasoning":"think"}}]}`,
		`{"choices":[{"delta":{"content":"done"}}]}`,
		"[DONE]",
	})
	defer srv.Close()

	d := Descriptor{
		Endpoint: srv.URL + "/v1/chat/completions",
		APIKey:   "k",
		Params:   map[string]any{"stream": true},
	}

	type call struct {
		text string
		kind ChunkKind
	}
	var calls []call
	got, err := NewClient().Complete(context.Background(), d, "hi", Options{
		OnChunk: func(text string, kind ChunkKind) {
			calls = append(calls, call{text, kind})
		},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "done" {
		t.Fatalf("got %q", got)
	}
	if len(calls) != 2 || calls[0].kind != Reasoning || calls[1].kind != Content {
		t.Fatalf("calls = %+v", calls)
	}
}

func TestCompleteStreamingCancellationMidStream(t *testing.T) {
	srv := sseServer(t, []string{
		`{"choices":[{"delta":{"content":"a"}}]}`,
		`{"choices":[{"delta":{"content":"b"}}]}`,
		`{"choices":[{"delta":{"content":"c"}}]}`,
		`{"choices":[{"delta":{"content":"d"}}]}`,
		`{"choices":[{"delta":{"content":"e"}}]}`,
	})
	defer srv.Close()

	d := Descriptor{
		Endpoint: srv.URL + "/v1/chat/completions",
		APIKey:   "k",
		Params:   map[string]any{"stream": true},
	}

	calls := 0
	_, err := NewClient().Complete(context.Background(), d, "hi", Options{
		OnChunk: func(text string, kind ChunkKind) {
			calls++
		},
		Cancelled: func() bool {
			return calls >= 2
		},
	})
	if err != ErrCancelled {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if calls > 2 {
		t.Fatalf("callback invoked %d times after cancellation", calls)
	}
}

func TestCompleteFailsFastWithoutAPIKey(t *testing.T) {
	d := Descriptor{Endpoint: "http://example.invalid/v1/chat/completions"}
	_, err := NewClient().Complete(context.Background(), d, "hi", Options{})
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestCompleteFailsFastWithBadEndpoint(t *testing.T) {
	d := Descriptor{Endpoint: "http://example.invalid/v1/completions", APIKey: "k"}
	_, err := NewClient().Complete(context.Background(), d, "hi", Options{})
	if err == nil {
		t.Fatal("expected error for non-chat-completions endpoint")
	}
}

func TestCompleteNonStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":"hi there"}}]}`)
	}))
	defer srv.Close()

	d := Descriptor{Endpoint: srv.URL + "/v1/chat/completions", APIKey: "k"}
	got, err := NewClient().Complete(context.Background(), d, "hi", Options{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "hi there" {
		t.Fatalf("got %q", got)
	}
}

func TestCompleteProviderErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"rate limited"}}`)
	}))
	defer srv.Close()

	d := Descriptor{Endpoint: srv.URL + "/v1/chat/completions", APIKey: "k"}
	_, err := NewClient().Complete(context.Background(), d, "hi", Options{})
	if err == nil || err.Error() != "rate limited" {
		t.Fatalf("err = %v, want %q", err, "rate limited")
	}
}
