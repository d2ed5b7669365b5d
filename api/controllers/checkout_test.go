package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/conciergelabs/checkout-concierge/internal/relay"
	pkgerrors "github.com/conciergelabs/checkout-concierge/pkg/errors"
)

type fakeCheckoutService struct {
	req       relay.CheckoutRequest
	sessionID string
	err       error
	calls     int
}

func (f *fakeCheckoutService) Initiate(ctx context.Context, req relay.CheckoutRequest) (string, error) {
	f.calls++
	f.req = req
	if f.err != nil {
		return "", f.err
	}
	return f.sessionID, nil
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode detail body: %v (%s)", err, rec.Body.String())
	}
	return body.Detail
}

func checkoutBody() map[string]any {
	return map[string]any{
		"productLink":         "https://shop.test/item",
		"storedPrice":         "£10.00",
		"merchant":            "boots",
		"firstName":           "Jane",
		"lastName":            "Doe",
		"email":               "jane@example.com",
		"phone":               "07911123456",
		"shippingHouseNumber": "12",
		"shippingStreetName":  "High Street",
		"shippingPostcode":    "SW1A 1AA",
		"shippingCity":        "London",
		"sameAsShipping":      true,
		"cardHolder":          "Jane Doe",
		"cardBin":             "411111",
		"cardNumber":          "4111111111111111",
		"cardExpiryYear":      "2027",
		"cardExpiryMonth":     "09",
		"cardCvv":             "123",
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestCheckoutReturnsSessionID(t *testing.T) {
	svc := &fakeCheckoutService{sessionID: "sess-1"}
	rec := postJSON(t, Checkout(svc, nil), "/checkout", checkoutBody())

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != `{"session_id":"sess-1"}` {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if svc.req.Merchant != "boots" || svc.req.CardNumber != "4111111111111111" {
		t.Fatalf("submission did not reach the service: %+v", svc.req)
	}
}

func TestCheckoutServiceErrorUsesDetailShape(t *testing.T) {
	svc := &fakeCheckoutService{err: pkgerrors.New(pkgerrors.CodeUnsupported, "Merchant not supported")}
	rec := postJSON(t, Checkout(svc, nil), "/checkout", checkoutBody())

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if detail := decodeDetail(t, rec); detail != "Merchant not supported" {
		t.Fatalf("unexpected detail %q", detail)
	}
}

func TestCheckoutRejectsIncompleteSubmission(t *testing.T) {
	svc := &fakeCheckoutService{sessionID: "sess-1"}
	payload := checkoutBody()
	delete(payload, "productLink")
	rec := postJSON(t, Checkout(svc, nil), "/checkout", payload)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if svc.calls != 0 {
		t.Fatalf("invalid submission must not reach the service")
	}
	if detail := decodeDetail(t, rec); detail == "" {
		t.Fatalf("detail must explain the rejection")
	}
}

func TestCheckoutRejectsMalformedBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	Checkout(&fakeCheckoutService{}, nil)(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}

// sessionRouter mounts a handler under the session-scoped route pattern so
// chi.URLParam resolves in tests.
func sessionRouter(pattern string, handler http.HandlerFunc) *chi.Mux {
	router := chi.NewRouter()
	router.Post(pattern, handler)
	return router
}
