package checkout

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestInterruptReporterFiresOncePerSession(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]int{}
	done := make(chan struct{}, 8)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls[r.URL.Path]++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		done <- struct{}{}
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	reporter := NewInterruptReporter(client)

	payload := AbandonedCheckout("https://shop.test/checkout")
	reporter.Report("sess-1", payload)
	reporter.Report("sess-1", payload)
	reporter.Report("sess-2", payload)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("beacon %d never arrived", i)
		}
	}
	// Give a duplicate beacon a chance to land before asserting.
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls["/run/sess-1/interrupt"] != 1 {
		t.Fatalf("expected exactly one beacon for sess-1, got %d", calls["/run/sess-1/interrupt"])
	}
	if calls["/run/sess-2/interrupt"] != 1 {
		t.Fatalf("expected exactly one beacon for sess-2, got %d", calls["/run/sess-2/interrupt"])
	}
}

func TestInterruptReporterIgnoresEmptySession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no beacon expected for empty session")
	}))
	defer server.Close()

	client, err := NewClient(server.URL)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	NewInterruptReporter(client).Report("", AbandonedCheckout("https://shop.test"))
	time.Sleep(50 * time.Millisecond)
}

func TestAbandonedCheckoutPayload(t *testing.T) {
	payload := AbandonedCheckout("https://shop.test/item")
	if payload.Reasoning != "user interrupted checkout" {
		t.Fatalf("unexpected reasoning %q", payload.Reasoning)
	}
	if payload.ErrorCode != "CHECKOUT-E0005" {
		t.Fatalf("unexpected error code %q", payload.ErrorCode)
	}
	if payload.FullURL != "https://shop.test/item" {
		t.Fatalf("unexpected url %q", payload.FullURL)
	}
}
