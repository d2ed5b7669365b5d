// Package relay implements the backend that sits between the embedded widget
// and the automation vendor: it starts runs, forwards mid-run decisions,
// reports abandonments, and fans vendor webhooks out to session streams.
package relay

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/conciergelabs/checkout-concierge/internal/agent"
	"github.com/conciergelabs/checkout-concierge/internal/sessions"
	"github.com/conciergelabs/checkout-concierge/internal/stream"
	"github.com/conciergelabs/checkout-concierge/pkg/db/models"
	pkgerrors "github.com/conciergelabs/checkout-concierge/pkg/errors"
	"github.com/conciergelabs/checkout-concierge/pkg/events"
	"github.com/conciergelabs/checkout-concierge/pkg/logger"
	"github.com/conciergelabs/checkout-concierge/pkg/postcodes"
)

const merchantELF = "e.l.f. Cosmetics"

// workflowByMerchant maps supported retailers to their vendor workflow ids.
var workflowByMerchant = map[string]string{
	"boots":     "873b7626-a85d-48fe-834f-a9346e4b6b81",
	merchantELF: "383c77ff-1873-4793-aeab-eeaa112d6b04",
}

// AgentAPI is the vendor surface the service depends on.
type AgentAPI interface {
	Run(ctx context.Context, req agent.RunRequest) (string, error)
	UserInteraction(ctx context.Context, sessionID string, input map[string]any) (json.RawMessage, error)
	FailedItem(ctx context.Context, sessionID string, report agent.FailureReport) (json.RawMessage, error)
}

// CountyResolver resolves a UK postcode to its county.
type CountyResolver interface {
	County(ctx context.Context, postcode string) (string, error)
}

// Service wires the checkout relay together.
type Service struct {
	agent    AgentAPI
	counties CountyResolver
	runs     sessions.Repository
	hub      *stream.Hub
	logger   *logger.Logger
}

// NewService builds the relay service.
func NewService(agentAPI AgentAPI, counties CountyResolver, runs sessions.Repository, hub *stream.Hub, logg *logger.Logger) *Service {
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "relay"})
	}
	return &Service{
		agent:    agentAPI,
		counties: counties,
		runs:     runs,
		hub:      hub,
		logger:   logg,
	}
}

// CheckoutRequest is the widget's full checkout submission.
type CheckoutRequest struct {
	ProductLink string `json:"productLink" validate:"required"`
	StoredPrice string `json:"storedPrice" validate:"required"`
	Merchant    string `json:"merchant" validate:"required"`

	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required"`
	Phone     string `json:"phone" validate:"required"`

	ShippingHouseNumber string `json:"shippingHouseNumber" validate:"required"`
	ShippingStreetName  string `json:"shippingStreetName" validate:"required"`
	ShippingPostcode    string `json:"shippingPostcode" validate:"required"`
	ShippingCity        string `json:"shippingCity" validate:"required"`

	SameAsShipping   bool   `json:"sameAsShipping"`
	BillingFirstName string `json:"billingFirstName"`
	BillingLastName  string `json:"billingLastName"`
	BillingAddress   string `json:"billingAddress"`
	BillingPostcode  string `json:"billingPostcode"`
	BillingCity      string `json:"billingCity"`

	CardHolder      string `json:"cardHolder"`
	CardBin         string `json:"cardBin"`
	CardNumber      string `json:"cardNumber" validate:"required"`
	CardExpiryYear  string `json:"cardExpiryYear" validate:"required"`
	CardExpiryMonth string `json:"cardExpiryMonth" validate:"required"`
	CardCvv         string `json:"cardCvv" validate:"required"`
}

// Initiate validates the submission, enriches it per merchant, starts the
// vendor run, and records the audit row. Error messages are surfaced to the
// widget verbatim.
func (s *Service) Initiate(ctx context.Context, req CheckoutRequest) (string, error) {
	if req.CardHolder == "" || req.CardBin == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Card holder and bin are required")
	}

	workflowID, ok := workflowByMerchant[req.Merchant]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeUnsupported, "Merchant not supported")
	}

	variables := runVariables(req)
	if req.Merchant == merchantELF {
		if err := s.enrichCounties(ctx, req, variables); err != nil {
			return "", err
		}
	}

	ctx = s.logger.WithMerchant(ctx, req.Merchant)
	sessionID, err := s.agent.Run(ctx, agent.RunRequest{
		WorkflowID: workflowID,
		Variables:  variables,
	})
	if err != nil {
		return "", err
	}

	ctx = s.logger.WithSessionID(ctx, sessionID)
	s.logger.Info(ctx, "checkout run started")

	if _, err := s.runs.Create(ctx, &models.CheckoutRun{
		SessionID:   sessionID,
		Merchant:    req.Merchant,
		ProductLink: req.ProductLink,
		StoredPrice: req.StoredPrice,
	}); err != nil {
		// The run is already in flight; a failed audit write must not fail
		// the checkout.
		s.logger.Error(ctx, "failed to record checkout run", err)
	}

	return sessionID, nil
}

func (s *Service) enrichCounties(ctx context.Context, req CheckoutRequest, variables map[string]any) error {
	shippingCounty, err := s.counties.County(ctx, req.ShippingPostcode)
	if err != nil {
		if errors.Is(err, postcodes.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "Please check your shipping postcode")
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Please check your shipping postcode")
	}
	variables["$SHIPPING_COUNTY"] = shippingCounty

	if req.SameAsShipping {
		variables["$BILLING_COUNTY"] = ""
		return nil
	}

	billingCounty, err := s.counties.County(ctx, req.BillingPostcode)
	if err != nil {
		if errors.Is(err, postcodes.ErrNotFound) {
			return pkgerrors.New(pkgerrors.CodeValidation, "Please check your billing postcode")
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "Please check your billing postcode")
	}
	variables["$BILLING_COUNTY"] = billingCounty
	return nil
}

func runVariables(req CheckoutRequest) map[string]any {
	return map[string]any{
		"$BOOTS_LINK":            req.ProductLink,
		"$STORED_PRICE":          req.StoredPrice,
		"$FIRST_NAME":            req.FirstName,
		"$LAST_NAME":             req.LastName,
		"$EMAIL":                 req.Email,
		"$PHONE":                 req.Phone,
		"$SHIPPING_HOUSE_NUMBER": req.ShippingHouseNumber,
		"$SHIPPING_STREET_NAME":  req.ShippingStreetName,
		"$SHIPPING_POSTCODE":     req.ShippingPostcode,
		"$SHIPPING_CITY":         req.ShippingCity,
		"$SAME_AS_SHIPPING":      req.SameAsShipping,
		"$BILLING_FIRST_NAME":    req.BillingFirstName,
		"$BILLING_LAST_NAME":     req.BillingLastName,
		"$BILLING_ADDRESS":       req.BillingAddress,
		"$BILLING_POSTCODE":      req.BillingPostcode,
		"$BILLING_CITY":          req.BillingCity,
		"$CARD_HOLDER":           req.CardHolder,
		"$CARD_BIN":              req.CardBin,
		"$CARD_NUMBER":           req.CardNumber,
		"$CARD_EXPIRY_YEAR":      req.CardExpiryYear,
		"$CARD_EXPIRY_MONTH":     req.CardExpiryMonth,
		"$CARD_CVV":              req.CardCvv,
	}
}

// ForwardUserInput passes a mid-run decision through to the vendor.
func (s *Service) ForwardUserInput(ctx context.Context, sessionID string, input map[string]any) (json.RawMessage, error) {
	ctx = s.logger.WithSessionID(ctx, sessionID)
	s.logger.Info(ctx, "forwarding user interaction")
	return s.agent.UserInteraction(ctx, sessionID, input)
}

// Interrupt reports an abandoned run to the vendor and marks the audit row.
func (s *Service) Interrupt(ctx context.Context, sessionID string, report agent.FailureReport) (json.RawMessage, error) {
	ctx = s.logger.WithSessionID(ctx, sessionID)
	body, err := s.agent.FailedItem(ctx, sessionID, report)
	if err != nil {
		return nil, err
	}

	if err := s.runs.UpdateOutcome(ctx, sessionID, map[string]any{
		"outcome":    models.RunOutcomeInterrupted,
		"error_code": report.ErrorCode,
	}); err != nil {
		s.logger.Error(ctx, "failed to mark run interrupted", err)
	}

	s.logger.Info(ctx, "checkout run interrupted")
	return body, nil
}

type webhookFrame struct {
	Event string `json:"event"`
	Data  struct {
		Errors []struct {
			ErrorCode string `json:"error_code"`
		} `json:"errors"`
	} `json:"data"`
	Payload struct {
		SessionID string `json:"session_id"`
		Data      struct {
			OrderNumber string `json:"order_number"`
		} `json:"data"`
	} `json:"payload"`
}

// HandleWebhook fans a verified vendor delivery out to the session's status
// stream and folds terminal events into the audit trail. It reports whether
// the frame reached a live subscriber; an undelivered frame must not be
// marked processed, so the vendor's retry can re-deliver it once the widget's
// stream is back.
func (s *Service) HandleWebhook(ctx context.Context, raw []byte) (bool, error) {
	var frame webhookFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook payload")
	}
	if frame.Payload.SessionID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload missing session id")
	}

	ctx = s.logger.WithSessionID(ctx, frame.Payload.SessionID)

	delivered := s.hub.Publish(frame.Payload.SessionID, json.RawMessage(raw))
	if !delivered {
		s.logger.Warn(s.logger.WithField(ctx, "event", frame.Event), "status frame dropped, no active stream for session")
	}

	switch frame.Event {
	case events.TagSucceeded:
		s.recordOutcome(ctx, frame.Payload.SessionID, map[string]any{
			"outcome":      models.RunOutcomeSucceeded,
			"order_number": frame.Payload.Data.OrderNumber,
		})
	case events.TagFailed:
		updates := map[string]any{"outcome": models.RunOutcomeFailed}
		if len(frame.Data.Errors) > 0 {
			updates["error_code"] = frame.Data.Errors[0].ErrorCode
		}
		s.recordOutcome(ctx, frame.Payload.SessionID, updates)
	}

	return delivered, nil
}

func (s *Service) recordOutcome(ctx context.Context, sessionID string, updates map[string]any) {
	if err := s.runs.UpdateOutcome(ctx, sessionID, updates); err != nil {
		s.logger.Error(ctx, "failed to record run outcome", err)
	}
}
