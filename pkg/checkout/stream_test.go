package checkout

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/conciergelabs/checkout-concierge/pkg/events"
)

func sseHandler(t *testing.T, frames []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("missing event-stream accept header")
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Fatalf("test server must support flushing")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		for _, frame := range frames {
			if _, err := w.Write([]byte(frame)); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func collectEvents(t *testing.T, stream *Stream, want int) []events.Event {
	t.Helper()
	var got []events.Event
	timeout := time.After(2 * time.Second)
	for len(got) < want {
		select {
		case event, open := <-stream.Events():
			if !open {
				return got
			}
			got = append(got, event)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %d of %d", len(got), want)
		}
	}
	return got
}

func TestOpenStatusStreamParsesFrames(t *testing.T) {
	frames := []string{
		": heartbeat\n\n",
		"data: {\"event\":\"interaction.waiting\",\"data\":{\"message\":\"Verification code\"}}\n\n",
		"data: {\"data\":{\"current_step\":\"Start\",\"next_step\":\"Accept cookies\"}}\n\n",
		"data: {\"event\":\"execution.success\",\"payload\":{\"data\":{\"order_number\":\"ORD-7\"}}}\n\n",
	}
	server := httptest.NewServer(sseHandler(t, frames))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	stream, err := client.OpenStatusStream(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer stream.Close()

	got := collectEvents(t, stream, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	if waiting, ok := got[0].(events.Waiting); !ok || waiting.Message != "Verification code" {
		t.Fatalf("unexpected first event %+v", got[0])
	}
	if _, ok := got[1].(events.Progress); !ok {
		t.Fatalf("expected progress event, got %T", got[1])
	}
	if succeeded, ok := got[2].(events.Succeeded); !ok || succeeded.OrderNumber != "ORD-7" {
		t.Fatalf("unexpected terminal event %+v", got[2])
	}
}

func TestOpenStatusStreamSkipsUnknownFrames(t *testing.T) {
	frames := []string{
		"data: {\"event\":\"run.heartbeat\"}\n\n",
		"data: not-json\n\n",
		"data: {\"event\":\"execution.failed\",\"data\":{\"errors\":[{\"error_code\":\"E1\",\"message\":\"boom\"}]}}\n\n",
	}
	server := httptest.NewServer(sseHandler(t, frames))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	stream, err := client.OpenStatusStream(context.Background(), "sess-2")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer stream.Close()

	got := collectEvents(t, stream, 1)
	failed, ok := got[0].(events.Failed)
	if !ok {
		t.Fatalf("expected the failed event to survive the junk frames, got %T", got[0])
	}
	if failed.First().ErrorCode != "E1" {
		t.Fatalf("unexpected error %+v", failed.First())
	}
}

func TestOpenStatusStreamChannelClosesOnEOF(t *testing.T) {
	server := httptest.NewServer(sseHandler(t, []string{
		"data: {\"event\":\"execution.success\",\"payload\":{\"data\":{\"order_number\":\"ORD-1\"}}}\n\n",
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	stream, err := client.OpenStatusStream(context.Background(), "sess-3")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer stream.Close()

	collectEvents(t, stream, 1)

	select {
	case _, open := <-stream.Events():
		if open {
			t.Fatalf("expected channel to close after server EOF")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("channel did not close after server EOF")
	}
}

func TestOpenStatusStreamRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.OpenStatusStream(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	server := httptest.NewServer(sseHandler(t, nil))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	stream, err := client.OpenStatusStream(context.Background(), "sess-4")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	stream.Close()
	stream.Close()
}
