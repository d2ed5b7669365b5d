package concierge

import (
	"context"

	"github.com/conciergelabs/checkout-concierge/pkg/checkout"
	"github.com/conciergelabs/checkout-concierge/pkg/events"
)

// EventStream is the consumer-side surface of an open status connection.
type EventStream interface {
	Events() <-chan events.Event
	Close()
}

// Backend is the slice of the checkout client the orchestrator drives.
type Backend interface {
	InitiateCheckout(ctx context.Context, req checkout.InitiateRequest) (string, error)
	SubmitUserInputAsync(sessionID string, input checkout.UserInput, onError func(error))
	OpenStatusStream(ctx context.Context, sessionID string) (EventStream, error)
}

// InterruptSink receives abandonment beacons.
type InterruptSink interface {
	Report(sessionID string, payload checkout.InterruptPayload)
}

// Presenter receives a render snapshot after every state change. Dialog
// visibility lives entirely in the View.
type Presenter interface {
	Render(view View)
}

// Notifier surfaces transient toasts outside the wizard surfaces.
type Notifier interface {
	Success(title, description string)
	Error(title, description string)
}

type backendAdapter struct {
	client *checkout.Client
}

// NewBackend adapts a *checkout.Client to the orchestrator's Backend port.
func NewBackend(client *checkout.Client) Backend {
	return backendAdapter{client: client}
}

func (b backendAdapter) InitiateCheckout(ctx context.Context, req checkout.InitiateRequest) (string, error) {
	return b.client.InitiateCheckout(ctx, req)
}

func (b backendAdapter) SubmitUserInputAsync(sessionID string, input checkout.UserInput, onError func(error)) {
	b.client.SubmitUserInputAsync(sessionID, input, onError)
}

func (b backendAdapter) OpenStatusStream(ctx context.Context, sessionID string) (EventStream, error) {
	stream, err := b.client.OpenStatusStream(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
