package controllers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/go-chi/chi/v5"

	"github.com/conciergelabs/checkout-concierge/api/responses"
	"github.com/conciergelabs/checkout-concierge/internal/stream"
	pkgerrors "github.com/conciergelabs/checkout-concierge/pkg/errors"
	"github.com/conciergelabs/checkout-concierge/pkg/logger"
)

const heartbeatInterval = 15 * time.Second

// Status serves the session's live event stream over SSE. Each session has a
// single subscriber; a reconnect displaces the previous stream.
func Status(hub *stream.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sessionID := chi.URLParam(r, "sessionID")
		if sessionID == "" {
			responses.WriteDetail(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id is required"))
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteDetail(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		if logg != nil {
			ctx = logg.WithSessionID(ctx, sessionID)
			logg.Info(ctx, "status stream opened")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		sub := hub.Subscribe(sessionID)
		defer hub.Unsubscribe(sessionID, sub)

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				if logg != nil {
					logg.Info(ctx, "status stream closed")
				}
				return
			case frame, open := <-sub.Events():
				if !open {
					// Replaced by a newer subscription.
					return
				}
				if err := sse.Encode(w, sse.Event{Data: string(frame)}); err != nil {
					if logg != nil {
						logg.Warn(ctx, "status stream write failed")
					}
					return
				}
				flusher.Flush()
			case <-heartbeat.C:
				if _, err := w.Write([]byte(": heartbeat\n\n")); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
