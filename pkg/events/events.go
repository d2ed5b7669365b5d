// Package events defines the status-event wire protocol pushed by the backend
// while a checkout run is executing. Raw payloads decode into a tagged union
// so consumers dispatch with a type switch instead of scattering string
// comparisons on the event tag.
package events

import "encoding/json"

// Event tags on the wire.
const (
	TagWaiting   = "interaction.waiting"
	TagSucceeded = "execution.success"
	TagFailed    = "execution.failed"
)

// Event is one decoded status event. Concrete types: Waiting, Succeeded,
// Failed, Progress.
type Event interface {
	isStatusEvent()
}

// Waiting signals the backend paused for a human decision. The message text
// carries the decision kind (price change, verification code, app approval).
type Waiting struct {
	Message string
}

// Succeeded is the terminal success event.
type Succeeded struct {
	OrderNumber string
	DeliverBy   string
	OrderTotal  string
}

// Failed is the terminal failure event. The first entry is the error shown to
// the user.
type Failed struct {
	Errors []ExecutionError
}

// ExecutionError is one structured failure reported by the automation run.
type ExecutionError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// Progress reports a step transition inside the automation run.
type Progress struct {
	CurrentStep string
	NextStep    string
}

func (Waiting) isStatusEvent()   {}
func (Succeeded) isStatusEvent() {}
func (Failed) isStatusEvent()    {}
func (Progress) isStatusEvent()  {}

// First returns the leading execution error, or a zero value when the backend
// reported none.
func (f Failed) First() ExecutionError {
	if len(f.Errors) == 0 {
		return ExecutionError{}
	}
	return f.Errors[0]
}

type wireEvent struct {
	Event   string       `json:"event"`
	Data    *wireData    `json:"data"`
	Payload *wirePayload `json:"payload"`
}

type wireData struct {
	Message     string           `json:"message"`
	CurrentStep string           `json:"current_step"`
	NextStep    string           `json:"next_step"`
	Errors      []ExecutionError `json:"errors"`
}

type wirePayload struct {
	Data wireResult `json:"data"`
}

type wireResult struct {
	DeliverBy   string `json:"deliver_by"`
	OrderNumber string `json:"order_number"`
	OrderPrice  string `json:"order_price"`
}

// Decode parses one raw status payload. Payloads that carry neither a known
// event tag nor step information decode to (nil, nil): the protocol tolerates
// frames this client does not understand.
func Decode(raw []byte) (Event, error) {
	var wire wireEvent
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}

	switch wire.Event {
	case TagWaiting:
		msg := ""
		if wire.Data != nil {
			msg = wire.Data.Message
		}
		return Waiting{Message: msg}, nil
	case TagSucceeded:
		var result wireResult
		if wire.Payload != nil {
			result = wire.Payload.Data
		}
		return Succeeded{
			OrderNumber: result.OrderNumber,
			DeliverBy:   result.DeliverBy,
			OrderTotal:  result.OrderPrice,
		}, nil
	case TagFailed:
		var errs []ExecutionError
		if wire.Data != nil {
			errs = wire.Data.Errors
		}
		return Failed{Errors: errs}, nil
	}

	if wire.Data != nil && (wire.Data.CurrentStep != "" || wire.Data.NextStep != "") {
		return Progress{CurrentStep: wire.Data.CurrentStep, NextStep: wire.Data.NextStep}, nil
	}

	return nil, nil
}
