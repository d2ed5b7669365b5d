package controllers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/conciergelabs/checkout-concierge/api/responses"
	pkgerrors "github.com/conciergelabs/checkout-concierge/pkg/errors"
	"github.com/conciergelabs/checkout-concierge/pkg/logger"
	"github.com/conciergelabs/checkout-concierge/pkg/signature"
)

const (
	signatureHeader      = "X-HMAC-Signature"
	webhookBodyReadLimit = 1 << 20
)

// WebhookService ingests a verified vendor delivery and reports whether it
// reached a live status stream.
type WebhookService interface {
	HandleWebhook(ctx context.Context, raw []byte) (bool, error)
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, deliveryID string) (bool, error)
	Delete(ctx context.Context, deliveryID string) error
}

// Webhook receives status pushes from the automation vendor. Deliveries are
// HMAC-verified, deduplicated on the signature digest, and fanned out to the
// session's status stream.
func Webhook(svc WebhookService, guard webhookGuard, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if secret == "" {
			responses.WriteDetail(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook secret not configured"))
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, webhookBodyReadLimit))
		if err != nil {
			responses.WriteDetail(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		digest, err := signature.ParseHeader(r.Header.Get(signatureHeader))
		if err != nil {
			responses.WriteDetail(ctx, logg, w, verificationError(err))
			return
		}

		if _, err := signature.VerifyMessage(body, digest, secret, time.Now()); err != nil {
			responses.WriteDetail(ctx, logg, w, verificationError(err))
			return
		}

		if guard != nil {
			alreadyProcessed, err := guard.CheckAndMark(ctx, digest)
			if err != nil {
				responses.WriteDetail(ctx, logg, w, err)
				return
			}
			if alreadyProcessed {
				responses.WriteRaw(w, http.StatusOK, []byte(`{"message":"Webhook received successfully."}`))
				return
			}
			delivered, err := svc.HandleWebhook(ctx, body)
			if err != nil {
				_ = guard.Delete(ctx, digest)
				responses.WriteDetail(ctx, logg, w, err)
				return
			}
			if !delivered {
				// Nobody was streaming: unmark the delivery so the vendor's
				// retry is not suppressed once the widget reconnects.
				_ = guard.Delete(ctx, digest)
			}
		} else if _, err := svc.HandleWebhook(ctx, body); err != nil {
			responses.WriteDetail(ctx, logg, w, err)
			return
		}

		responses.WriteRaw(w, http.StatusOK, []byte(`{"message":"Webhook received successfully."}`))
	}
}

func verificationError(err error) error {
	switch {
	case errors.Is(err, signature.ErrInvalidSignature):
		return pkgerrors.Wrap(pkgerrors.CodeSignature, err, "Invalid HMAC signature.")
	case errors.Is(err, signature.ErrEmptyBody):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Received request without body")
	case errors.Is(err, signature.ErrMalformedBody):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Failed to decode json body")
	case errors.Is(err, signature.ErrMissingExpiry):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "No expiration date sent")
	case errors.Is(err, signature.ErrExpired):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Webhook message expired.")
	case errors.Is(err, signature.ErrMissingHeader):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Signature header missing")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook verification failed")
	}
}
