package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/conciergelabs/checkout-concierge/api/responses"
	"github.com/conciergelabs/checkout-concierge/api/validators"
	pkgerrors "github.com/conciergelabs/checkout-concierge/pkg/errors"
	"github.com/conciergelabs/checkout-concierge/pkg/logger"
)

// InteractionService forwards a mid-run decision to the automation vendor.
type InteractionService interface {
	ForwardUserInput(ctx context.Context, sessionID string, input map[string]any) (json.RawMessage, error)
}

type userInteractionRequest struct {
	UserInput map[string]any `json:"userInput" validate:"required"`
}

// UserInteraction relays a human decision (price acceptance, verification
// code, app confirmation) into the running session. The vendor's response is
// passed back verbatim.
func UserInteraction(svc InteractionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sessionID := chi.URLParam(r, "sessionID")
		if sessionID == "" {
			responses.WriteDetail(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id is required"))
			return
		}

		var req userInteractionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteDetail(ctx, logg, w, err)
			return
		}

		body, err := svc.ForwardUserInput(ctx, sessionID, req.UserInput)
		if err != nil {
			responses.WriteDetail(ctx, logg, w, err)
			return
		}

		responses.WriteRaw(w, http.StatusOK, body)
	}
}
