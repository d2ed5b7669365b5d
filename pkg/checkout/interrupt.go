package checkout

import (
	"context"
	"sync"
	"time"
)

const beaconTimeout = 5 * time.Second

// InterruptPayload is the diagnostic body sent when the user abandons a
// session mid-processing.
type InterruptPayload struct {
	Reasoning string `json:"reasoning"`
	FullURL   string `json:"full_url"`
	ErrorCode string `json:"error_code"`
}

// AbandonedCheckout is the payload reported when the user leaves during
// processing.
func AbandonedCheckout(fullURL string) InterruptPayload {
	return InterruptPayload{
		Reasoning: "user interrupted checkout",
		FullURL:   fullURL,
		ErrorCode: "CHECKOUT-E0005",
	}
}

// InterruptReporter delivers abandonment beacons. Delivery is best-effort:
// not awaited, not retried, and at most one beacon fires per session.
type InterruptReporter struct {
	client *Client
	fired  sync.Map
}

// NewInterruptReporter builds a reporter on top of an existing backend client.
func NewInterruptReporter(client *Client) *InterruptReporter {
	return &InterruptReporter{client: client}
}

// Report fires the beacon for the session unless one was already sent. The
// caller is never blocked on network I/O; errors are logged and dropped.
func (r *InterruptReporter) Report(sessionID string, payload InterruptPayload) {
	if sessionID == "" {
		return
	}
	if _, alreadyFired := r.fired.LoadOrStore(sessionID, struct{}{}); alreadyFired {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), beaconTimeout)
		defer cancel()

		url := r.client.baseURL + "/run/" + sessionID + "/interrupt"
		resp, err := r.client.postJSON(ctx, url, payload)
		if err != nil {
			if r.client.logger != nil {
				r.client.logger.Warn(r.client.logger.WithSessionID(ctx, sessionID), "interrupt beacon failed")
			}
			return
		}
		drainAndClose(resp.Body)
	}()
}
