package agent

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgerrors "github.com/conciergelabs/checkout-concierge/pkg/errors"
)

const testAPIKey = "test-key"

func newVendorServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, testAPIKey, 5*time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return server, client
}

func TestRunStartsWorkflow(t *testing.T) {
	var capturedPath, capturedKey string
	var capturedBody RunRequest
	_, client := newVendorServer(t, func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedKey = r.Header.Get(authHeader)
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &capturedBody); err != nil {
			t.Errorf("decode run request: %v", err)
		}
		w.Write([]byte(`{"session_id":"sess-1"}`))
	})

	sessionID, err := client.Run(context.Background(), RunRequest{
		WorkflowID: "873b7626-a85d-48fe-834f-a9346e4b6b81",
		Variables:  map[string]any{"$STORED_PRICE": "£10.00"},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sessionID != "sess-1" {
		t.Fatalf("unexpected session id %q", sessionID)
	}
	if capturedPath != "/run" {
		t.Fatalf("unexpected path %q", capturedPath)
	}
	if capturedKey != testAPIKey {
		t.Fatalf("api key header missing, got %q", capturedKey)
	}
	if capturedBody.WorkflowID != "873b7626-a85d-48fe-834f-a9346e4b6b81" || capturedBody.Variables["$STORED_PRICE"] != "£10.00" {
		t.Fatalf("unexpected run payload %+v", capturedBody)
	}
}

func TestRunRequiresSessionID(t *testing.T) {
	_, client := newVendorServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	if _, err := client.Run(context.Background(), RunRequest{}); err == nil {
		t.Fatalf("missing session id must error")
	}
}

func TestRunVendorErrorStatus(t *testing.T) {
	_, client := newVendorServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := client.Run(context.Background(), RunRequest{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if typed.Message() != "agent returned status 502" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestUserInteractionPathAndPassthrough(t *testing.T) {
	var capturedPath string
	_, client := newVendorServer(t, func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		w.Write([]byte(`{"status":"resumed"}`))
	})

	body, err := client.UserInteraction(context.Background(), "sess-1", map[string]any{"accept": true})
	if err != nil {
		t.Fatalf("user interaction: %v", err)
	}
	if capturedPath != "/run/sess-1/user_interaction" {
		t.Fatalf("unexpected path %q", capturedPath)
	}
	if string(body) != `{"status":"resumed"}` {
		t.Fatalf("response must pass through, got %s", body)
	}
}

func TestFailedItemCarriesSessionHeader(t *testing.T) {
	var capturedPath, capturedSession string
	var capturedReport FailureReport
	_, client := newVendorServer(t, func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedSession = r.Header.Get(sessionHeader)
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &capturedReport); err != nil {
			t.Errorf("decode report: %v", err)
		}
		w.Write([]byte(`{"acknowledged":true}`))
	})

	report := FailureReport{
		Reasoning: "user interrupted checkout",
		FullURL:   "https://shop.test/item",
		ErrorCode: "CHECKOUT-E0005",
	}
	if _, err := client.FailedItem(context.Background(), "sess-1", report); err != nil {
		t.Fatalf("failed item: %v", err)
	}
	if capturedPath != "/failed_item" {
		t.Fatalf("unexpected path %q", capturedPath)
	}
	if capturedSession != "sess-1" {
		t.Fatalf("session header missing, got %q", capturedSession)
	}
	if capturedReport.ErrorCode != "CHECKOUT-E0005" {
		t.Fatalf("unexpected report %+v", capturedReport)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("", "key", time.Second); err == nil {
		t.Fatalf("empty endpoint must error")
	}
	if _, err := NewClient("https://vendor.test", "", time.Second); err == nil {
		t.Fatalf("empty api key must error")
	}

	client, err := NewClient("https://vendor.test/", "key", 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.endpoint != "https://vendor.test" {
		t.Fatalf("trailing slash must be trimmed, got %q", client.endpoint)
	}
}
