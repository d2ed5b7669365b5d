package middleware

import (
	"fmt"
	"net/http"

	"github.com/conciergelabs/checkout-concierge/api/responses"
	pkgerrors "github.com/conciergelabs/checkout-concierge/pkg/errors"
	"github.com/conciergelabs/checkout-concierge/pkg/logger"
)

type recoverWriter struct {
	http.ResponseWriter
	started bool
}

func (w *recoverWriter) WriteHeader(status int) {
	w.started = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *recoverWriter) Write(b []byte) (int, error) {
	w.started = true
	return w.ResponseWriter.Write(b)
}

func (w *recoverWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Recoverer turns panics into flat detail errors. A panic inside an open
// status stream cannot be answered anymore, so it is only logged.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &recoverWriter{ResponseWriter: w}
			defer func() {
				if rec := recover(); rec != nil {
					err := fmt.Errorf("panic: %v", rec)
					ctx := r.Context()
					if logg != nil {
						ctx = logg.WithFields(ctx, map[string]any{"panic": rec})
						logg.Error(ctx, "panic.recovered", err)
					}
					if !wrapped.started {
						responses.WriteDetail(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
					}
				}
			}()
			next.ServeHTTP(wrapped, r)
		})
	}
}
