package concierge

import (
	"context"
	"strings"
	"sync"

	"github.com/conciergelabs/checkout-concierge/pkg/checkout"
	pkgerrors "github.com/conciergelabs/checkout-concierge/pkg/errors"
	"github.com/conciergelabs/checkout-concierge/pkg/events"
	"github.com/conciergelabs/checkout-concierge/pkg/forms"
)

// Config carries the per-embed settings. The interrupt marker texts are
// configuration, not contract: retail automations phrase their pauses
// differently.
type Config struct {
	ProductLink  string
	Merchant     string
	InitialPrice string

	CurrencyMarker        string
	PriceChangeMarker     string
	VerificationMarker    string
	AppConfirmationMarker string
}

func (c Config) withDefaults() Config {
	if c.CurrencyMarker == "" {
		c.CurrencyMarker = "£"
	}
	if c.PriceChangeMarker == "" {
		c.PriceChangeMarker = "New price:"
	}
	if c.VerificationMarker == "" {
		c.VerificationMarker = "Verification code"
	}
	if c.AppConfirmationMarker == "" {
		c.AppConfirmationMarker = "App confirmation"
	}
	return c
}

// Orchestrator is the checkout step state machine. All user actions and all
// status events funnel through one mutex, so each is applied atomically and
// in order; a decision sent by the user can never be overwritten by an event
// applied halfway.
type Orchestrator struct {
	mu sync.Mutex

	cfg       Config
	backend   Backend
	presenter Presenter
	notifier  Notifier
	interrupt InterruptSink

	session  Session
	state    State
	decision DecisionKind

	contact    forms.ContactShippingInfo
	billing    forms.BillingInfo
	nameOnCard string
	card       forms.CardDetails

	submitting   bool
	stream       EventStream
	pendingPrice string
}

// New builds an orchestrator. Presenter, notifier, and interrupt sink may be
// nil for headless use.
func New(cfg Config, backend Backend, presenter Presenter, notifier Notifier, interrupt InterruptSink) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg.withDefaults(),
		backend:   backend,
		presenter: presenter,
		notifier:  notifier,
		interrupt: interrupt,
	}
	o.session = Session{Step: StepNone, Price: o.cfg.InitialPrice, FormErrors: map[string]string{}}
	o.billing.SameAsShipping = true
	return o
}

// Open starts a fresh collection pass at the contact step.
func (o *Orchestrator) Open() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.session.Step = StepContact
	o.state = StateCollecting
	o.render()
}

// SetContact stores the contact/shipping fields as the user types. Entered
// data survives session resets.
func (o *Orchestrator) SetContact(info forms.ContactShippingInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.contact = info
}

// SetBilling stores the billing section state.
func (o *Orchestrator) SetBilling(info forms.BillingInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.billing = info
}

// SetCard stores the tokenization widget's current card representation and the
// cardholder name. Held only until submission.
func (o *Orchestrator) SetCard(nameOnCard string, card forms.CardDetails) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nameOnCard = nameOnCard
	o.card = card
}

// SubmitContact advances Contact -> Payment when validation passes. The error
// map is replaced wholesale either way.
func (o *Orchestrator) SubmitContact() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateCollecting || o.session.Step != StepContact {
		return
	}
	errs, ok := forms.ValidateContact(o.contact)
	o.session.FormErrors = errs
	if ok {
		o.session.Step = StepPayment
	}
	o.render()
}

// SubmitPayment validates the payment step and, when clean, issues the
// initiate-checkout request. At most one submission is in flight: a re-entrant
// call while one is pending is a no-op.
func (o *Orchestrator) SubmitPayment(ctx context.Context) {
	o.mu.Lock()
	if o.submitting || o.state == StateSubmitting {
		o.mu.Unlock()
		return
	}
	if o.state != StateCollecting && o.state != StateFailed {
		o.mu.Unlock()
		return
	}

	errs, ok := forms.ValidatePayment(o.nameOnCard, o.card)
	billingErrs, billingOK := forms.ValidateBilling(o.billing)
	for field, msg := range billingErrs {
		errs[field] = msg
	}
	o.session.FormErrors = errs
	if !ok || !billingOK {
		o.render()
		o.mu.Unlock()
		return
	}

	o.submitting = true
	o.state = StateSubmitting
	req := o.buildInitiateRequest()
	o.render()
	o.mu.Unlock()

	go func() {
		sessionID, err := o.backend.InitiateCheckout(ctx, req)

		o.mu.Lock()
		defer o.mu.Unlock()
		o.submitting = false
		if err != nil {
			o.applyInitiateFailure(err)
			return
		}
		o.applyInitiateSuccess(ctx, sessionID)
	}()
}

func (o *Orchestrator) buildInitiateRequest() checkout.InitiateRequest {
	houseNumber, streetName := forms.SplitAddress(o.contact.Address)
	return checkout.InitiateRequest{
		ProductLink: o.cfg.ProductLink,
		StoredPrice: o.cfg.CurrencyMarker + o.session.Price,
		Merchant:    o.cfg.Merchant,

		FirstName: o.contact.FirstName,
		LastName:  o.contact.LastName,
		Email:     o.contact.Email,
		Phone:     o.contact.Phone,

		ShippingHouseNumber: houseNumber,
		ShippingStreetName:  streetName,
		ShippingPostcode:    forms.NormalizePostcode(o.contact.Postcode),
		ShippingCity:        o.contact.City,

		SameAsShipping:   o.billing.SameAsShipping,
		BillingFirstName: o.billing.FirstName,
		BillingLastName:  o.billing.LastName,
		BillingAddress:   o.billing.Address,
		BillingPostcode:  forms.NormalizePostcode(o.billing.Postcode),
		BillingCity:      o.billing.City,

		CardHolder:      o.nameOnCard,
		CardBin:         fallback(o.card.Bin, "0"),
		CardNumber:      fallback(o.card.Number, "0"),
		CardExpiryYear:  fallback(checkout.ExpandExpiryYear(o.card.ExpiryYear), "0"),
		CardExpiryMonth: fallback(o.card.ExpiryMonth, "0"),
		CardCvv:         fallback(o.card.CVC, "0"),
	}
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

// applyInitiateFailure routes to the address step when the server message
// mentions the postcode; otherwise the user stays on payment to retry. The
// error surfaces as a transient notification, never as form state.
func (o *Orchestrator) applyInitiateFailure(err error) {
	msg := errorMessage(err)
	if o.notifier != nil {
		o.notifier.Error("Failed to place order", msg)
	}
	o.state = StateCollecting
	if strings.Contains(msg, "postcode") {
		o.session.Step = StepContact
	} else {
		o.session.Step = StepPayment
	}
	o.render()
}

func (o *Orchestrator) applyInitiateSuccess(ctx context.Context, sessionID string) {
	o.session.ID = sessionID
	o.session.Step = StepProcessing
	o.state = StateProcessing
	o.render()

	stream, err := o.backend.OpenStatusStream(ctx, sessionID)
	if err != nil {
		// Stream errors never take the session down; it stays Processing in
		// its last known state.
		if o.notifier != nil {
			o.notifier.Error("Connection problem", "Live status updates are unavailable")
		}
		return
	}
	o.stream = stream

	go func() {
		for event := range stream.Events() {
			o.handleEvent(event)
		}
	}()
}

// handleEvent applies one status event atomically. Events that arrive after a
// terminal transition (the channel may still hold buffered frames when the
// stream closes) are dropped.
func (o *Orchestrator) handleEvent(event events.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateProcessing && o.state != StateAwaitingDecision {
		return
	}

	switch ev := event.(type) {
	case events.Progress:
		o.session.StatusLog = Narrate(o.session.StatusLog, ev)
	case events.Waiting:
		o.applyWaiting(ev)
	case events.Succeeded:
		o.applySuccess(ev)
	case events.Failed:
		o.applyFailure(ev)
	}
	o.render()
}

func (o *Orchestrator) applyWaiting(ev events.Waiting) {
	if o.decision != DecisionNone {
		// One decision at a time; the stream stays authoritative for the rest.
		return
	}

	switch {
	case strings.HasPrefix(ev.Message, o.cfg.PriceChangeMarker):
		newPrice, parsed := parsePriceMessage(ev.Message, o.cfg.CurrencyMarker)
		if parsed {
			if decreased, ok := priceDecreased(newPrice, o.session.Price); ok && decreased {
				// Price went down: accept on the user's behalf and narrate it.
				o.session.StatusLog = append(o.session.StatusLog,
					"Found a lower price! New price is "+o.cfg.CurrencyMarker+newPrice)
				o.session.Price = newPrice
				o.submitInputAsync(checkout.PriceDecision(true))
				return
			}
		}
		o.pendingPrice = newPrice
		o.decision = DecisionPriceChange
		o.state = StateAwaitingDecision
	case strings.HasPrefix(ev.Message, o.cfg.VerificationMarker):
		o.decision = DecisionVerificationCode
		o.state = StateAwaitingDecision
	case strings.HasPrefix(ev.Message, o.cfg.AppConfirmationMarker):
		o.decision = DecisionAppConfirmation
		o.state = StateAwaitingDecision
	}
}

func (o *Orchestrator) applySuccess(ev events.Succeeded) {
	o.session.Outcome = OutcomeSuccess
	o.session.Confirmation = OrderConfirmation{
		OrderNumber: ev.OrderNumber,
		DeliverBy:   ev.DeliverBy,
		OrderTotal:  ev.OrderTotal,
	}
	o.terminalCleanup()
	o.session.Step = StepConfirmation
	o.state = StateSucceeded
	if o.notifier != nil {
		o.notifier.Success("Order made successfully!", "Your order has been placed and is being processed.")
	}
}

func (o *Orchestrator) applyFailure(ev events.Failed) {
	first := ev.First()
	o.session.Outcome = OutcomeFailure
	o.session.Failure = FailureInfo{ErrorCode: first.ErrorCode, Message: first.Message}
	o.terminalCleanup()
	o.session.Step = StepPayment
	o.state = StateFailed
}

// AcceptPrice resolves an open price-change dialog in favor of the new price.
func (o *Orchestrator) AcceptPrice() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.decision != DecisionPriceChange {
		return
	}
	if o.pendingPrice != "" {
		o.session.Price = o.pendingPrice
	}
	o.pendingPrice = ""
	o.decision = DecisionNone
	o.state = StateProcessing
	o.submitInputAsync(checkout.PriceDecision(true))
	o.render()
}

// DeclinePrice cancels the purchase. The stream is closed before any further
// event can be processed.
func (o *Orchestrator) DeclinePrice() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.decision != DecisionPriceChange {
		return
	}
	o.pendingPrice = ""
	o.decision = DecisionNone
	o.submitInputAsync(checkout.PriceDecision(false))
	o.session.Outcome = OutcomeFailure
	o.session.Failure = FailureInfo{Message: "Purchase cancelled due to price change"}
	o.terminalCleanup()
	o.session.Step = StepPayment
	o.state = StateFailed
	o.render()
}

// SubmitVerificationCode resolves an open verification dialog.
func (o *Orchestrator) SubmitVerificationCode(code string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.decision != DecisionVerificationCode {
		return
	}
	o.decision = DecisionNone
	o.state = StateProcessing
	o.submitInputAsync(checkout.VerificationCode(code))
	o.render()
}

// CancelVerification abandons the purchase from the verification dialog.
func (o *Orchestrator) CancelVerification() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.decision != DecisionVerificationCode {
		return
	}
	o.decision = DecisionNone
	o.session.Outcome = OutcomeFailure
	o.session.Failure = FailureInfo{Message: "Purchase cancelled due to verification"}
	o.terminalCleanup()
	o.session.Step = StepPayment
	o.state = StateFailed
	o.render()
}

// ConfirmApp acknowledges the banking-app approval interstitial.
func (o *Orchestrator) ConfirmApp() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.decision != DecisionAppConfirmation {
		return
	}
	o.decision = DecisionNone
	o.state = StateProcessing
	o.submitInputAsync(checkout.Confirmation())
	o.render()
}

// ContinueShopping dismisses the confirmation and resets session-scoped state.
// Entered contact/shipping data is retained.
func (o *Orchestrator) ContinueShopping() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateSucceeded {
		return
	}
	o.session = Session{Step: StepContact, Price: o.cfg.InitialPrice, FormErrors: map[string]string{}}
	o.card = forms.CardDetails{}
	o.nameOnCard = ""
	o.state = StateCollecting
	o.render()
}

// HandleUnload fires the abandonment beacon when the user leaves during
// processing. The returned flag tells the host whether to request a
// cancelable-unload confirmation prompt.
func (o *Orchestrator) HandleUnload(fullURL string) (promptRequested bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.session.Step != StepProcessing || o.session.ID == "" {
		return false
	}
	if o.interrupt != nil {
		o.interrupt.Report(o.session.ID, checkout.AbandonedCheckout(fullURL))
	}
	return true
}

// Teardown closes the live stream on component unmount.
func (o *Orchestrator) Teardown() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closeStream()
}

// Snapshot returns the current render view.
func (o *Orchestrator) Snapshot() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.view()
}

// terminalCleanup enforces the invariant shared by every transition into
// Succeeded or Failed: the stream is closed and the status log reset.
func (o *Orchestrator) terminalCleanup() {
	o.closeStream()
	o.session.StatusLog = nil
}

func (o *Orchestrator) closeStream() {
	if o.stream != nil {
		o.stream.Close()
		o.stream = nil
	}
}

func (o *Orchestrator) submitInputAsync(input checkout.UserInput) {
	sessionID := o.session.ID
	notifier := o.notifier
	o.backend.SubmitUserInputAsync(sessionID, input, func(err error) {
		if notifier != nil {
			notifier.Error("Failed to update workflow", err.Error())
		}
	})
}

func (o *Orchestrator) view() View {
	v := View{
		State:      o.state,
		Step:       o.session.Step,
		Decision:   o.decision,
		Price:      o.session.Price,
		FormErrors: o.session.FormErrors,
		StatusLog:  append([]string(nil), o.session.StatusLog...),

		Confirmation: o.session.Confirmation,
		Failure:      o.session.Failure,

		CollectionOpen:   o.state == StateCollecting || o.state == StateSubmitting || o.state == StateFailed,
		ProgressOpen:     o.state == StateProcessing || o.state == StateAwaitingDecision,
		ConfirmationOpen: o.state == StateSucceeded,
	}
	switch o.decision {
	case DecisionPriceChange:
		v.PriceChange = &PriceChangeView{OldPrice: o.session.Price, NewPrice: o.pendingPrice}
	case DecisionVerificationCode:
		v.VerificationOpen = true
	case DecisionAppConfirmation:
		v.AppConfirmOpen = true
	}
	return v
}

func (o *Orchestrator) render() {
	if o.presenter != nil {
		o.presenter.Render(o.view())
	}
}

// errorMessage prefers the server-supplied message over the coded wrapper so
// substring routing sees the verbatim text.
func errorMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
