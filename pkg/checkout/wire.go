package checkout

import (
	"github.com/conciergelabs/checkout-concierge/pkg/config"
)

// EmbedSettings is what a host page needs to boot the widget: the relay
// client and the tokenization-provider identifiers for the card field. Card
// digits go to the provider, never through this module.
type EmbedSettings struct {
	Client          *Client
	EvervaultTeamID string
	EvervaultAppID  string
}

// NewEmbedSettings wires the widget-side client from deploy config. Extra
// options are applied after the configured interaction delay, so callers can
// still override it.
func NewEmbedSettings(cfg config.WidgetConfig, opts ...Option) (*EmbedSettings, error) {
	opts = append([]Option{WithInteractionDelay(cfg.InteractionDelay)}, opts...)
	client, err := NewClient(cfg.BackendURL, opts...)
	if err != nil {
		return nil, err
	}
	return &EmbedSettings{
		Client:          client,
		EvervaultTeamID: cfg.EvervaultTeamID,
		EvervaultAppID:  cfg.EvervaultAppID,
	}, nil
}
