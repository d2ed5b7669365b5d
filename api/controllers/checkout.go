package controllers

import (
	"context"
	"net/http"

	"github.com/conciergelabs/checkout-concierge/api/responses"
	"github.com/conciergelabs/checkout-concierge/api/validators"
	"github.com/conciergelabs/checkout-concierge/internal/relay"
	pkgerrors "github.com/conciergelabs/checkout-concierge/pkg/errors"
	"github.com/conciergelabs/checkout-concierge/pkg/logger"
)

// CheckoutService starts an automation run from a widget submission.
type CheckoutService interface {
	Initiate(ctx context.Context, req relay.CheckoutRequest) (string, error)
}

// Checkout accepts the widget's full checkout submission and returns the
// session id of the started run. Errors use the flat detail shape the widget
// parses.
func Checkout(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteDetail(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var req relay.CheckoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteDetail(ctx, logg, w, err)
			return
		}

		sessionID, err := svc.Initiate(ctx, req)
		if err != nil {
			responses.WriteDetail(ctx, logg, w, err)
			return
		}

		responses.WriteRaw(w, http.StatusOK, []byte(`{"session_id":"`+sessionID+`"}`))
	}
}
