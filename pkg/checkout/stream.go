package checkout

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	pkgerrors "github.com/conciergelabs/checkout-concierge/pkg/errors"
	"github.com/conciergelabs/checkout-concierge/pkg/events"
)

// Stream is one open server-push status connection, scoped to a session.
// Events arrive on Events() in emission order. The stream never reconnects:
// a transport error closes the channel and leaves retry policy to the caller.
type Stream struct {
	eventsCh  chan events.Event
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// Events returns the ordered event channel. It is closed when the stream ends
// for any reason.
func (s *Stream) Events() <-chan events.Event {
	return s.eventsCh
}

// Close tears the connection down. Safe to call more than once and after the
// stream has already ended.
func (s *Stream) Close() {
	s.closeOnce.Do(s.cancel)
}

// OpenStatusStream opens the persistent status connection for a session. At
// most one stream should be open per active session; the consumer must Close
// it on every terminal transition.
func (c *Client) OpenStatusStream(ctx context.Context, sessionID string) (*Stream, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	url := fmt.Sprintf("%s/status/%s", c.baseURL, sessionID)
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build status request")
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	// The stream outlives any client-level timeout, so bypass the pooled
	// client's Timeout and rely on context cancellation.
	transport := http.DefaultTransport
	if c.httpClient != nil && c.httpClient.Transport != nil {
		transport = c.httpClient.Transport
	}
	resp, err := transport.RoundTrip(req)
	if err != nil {
		cancel()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open status stream")
	}
	if resp.StatusCode != http.StatusOK {
		drainAndClose(resp.Body)
		cancel()
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("status stream rejected with status %d", resp.StatusCode))
	}

	stream := &Stream{
		eventsCh: make(chan events.Event, 16),
		cancel:   cancel,
	}

	go func() {
		defer close(stream.eventsCh)
		defer resp.Body.Close()
		defer cancel()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 4096), responseBodyReadLimit)

		var data strings.Builder
		flush := func() bool {
			if data.Len() == 0 {
				return true
			}
			raw := data.String()
			data.Reset()

			event, err := events.Decode([]byte(raw))
			if err != nil || event == nil {
				// Unparsable or unrecognized frames are skipped, never fatal.
				return true
			}
			select {
			case stream.eventsCh <- event:
				return true
			case <-streamCtx.Done():
				return false
			}
		}

		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				if !flush() {
					return
				}
			case strings.HasPrefix(line, ":"):
				// heartbeat comment
			case strings.HasPrefix(line, "data:"):
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			}
		}
		// Scanner errors and EOF both end the stream silently; the session
		// keeps its last known state and no retry is attempted here.
		flush()
	}()

	return stream, nil
}
