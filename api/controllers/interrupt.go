package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/conciergelabs/checkout-concierge/api/responses"
	"github.com/conciergelabs/checkout-concierge/api/validators"
	"github.com/conciergelabs/checkout-concierge/internal/agent"
	pkgerrors "github.com/conciergelabs/checkout-concierge/pkg/errors"
	"github.com/conciergelabs/checkout-concierge/pkg/logger"
)

// InterruptService reports an abandoned run to the automation vendor.
type InterruptService interface {
	Interrupt(ctx context.Context, sessionID string, report agent.FailureReport) (json.RawMessage, error)
}

// Interrupt handles the widget's abandonment beacon: the shopper closed or
// navigated away mid-run.
func Interrupt(svc InterruptService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sessionID := chi.URLParam(r, "sessionID")
		if sessionID == "" {
			responses.WriteDetail(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id is required"))
			return
		}

		var report agent.FailureReport
		if err := validators.DecodeJSONBody(r, &report); err != nil {
			responses.WriteDetail(ctx, logg, w, err)
			return
		}

		body, err := svc.Interrupt(ctx, sessionID, report)
		if err != nil {
			responses.WriteDetail(ctx, logg, w, err)
			return
		}

		responses.WriteRaw(w, http.StatusOK, body)
	}
}
