// Package concierge implements the checkout orchestration state machine: it
// sequences data collection, submission, asynchronous execution tracking,
// mid-flow human-input interrupts, and terminal success/failure presentation.
package concierge

// Step identifies which wizard surface is shown. Step numbering matches the
// widget's wire/UI contract; slot 3 is a reserved hole.
type Step int

const (
	StepNone Step = iota
	StepContact
	StepPayment
	stepReserved // unused slot in the step numbering
	StepProcessing
	StepConfirmation
)

// State is the orchestrator's explicit machine state. Dialog visibility is
// derived from it, never stored independently.
type State int

const (
	StateCollecting State = iota
	StateSubmitting
	StateProcessing
	StateAwaitingDecision
	StateSucceeded
	StateFailed
)

// DecisionKind names the human decision blocking forward progress while the
// orchestrator is in StateAwaitingDecision.
type DecisionKind int

const (
	DecisionNone DecisionKind = iota
	DecisionPriceChange
	DecisionVerificationCode
	DecisionAppConfirmation
)

// Outcome is the terminal result of an execution run.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

// OrderConfirmation carries the success details shown on the confirmation step.
type OrderConfirmation struct {
	OrderNumber string
	DeliverBy   string
	OrderTotal  string
}

// FailureInfo carries the terminal failure reported by the backend, or a local
// cancellation reason.
type FailureInfo struct {
	ErrorCode string
	Message   string
}

// Session consolidates all per-checkout state. It is created when the widget
// dialog opens and reset on continue-shopping.
type Session struct {
	ID           string
	Step         Step
	Price        string
	FormErrors   map[string]string
	StatusLog    []string
	Outcome      Outcome
	Confirmation OrderConfirmation
	Failure      FailureInfo
}

// PriceChangeView is the data behind an open price-change dialog.
type PriceChangeView struct {
	OldPrice string
	NewPrice string
}

// View is a render snapshot. Every visible surface is derived from the
// machine state, so impossible combinations (two interrupt dialogs at once)
// cannot be expressed.
type View struct {
	State    State
	Step     Step
	Decision DecisionKind

	CollectionOpen   bool
	ProgressOpen     bool
	ConfirmationOpen bool

	PriceChange      *PriceChangeView
	VerificationOpen bool
	AppConfirmOpen   bool

	Price        string
	FormErrors   map[string]string
	StatusLog    []string
	Confirmation OrderConfirmation
	Failure      FailureInfo
}
