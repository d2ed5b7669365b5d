package checkout

import (
	"testing"
	"time"

	"github.com/conciergelabs/checkout-concierge/pkg/config"
)

func TestNewEmbedSettings(t *testing.T) {
	settings, err := NewEmbedSettings(config.WidgetConfig{
		BackendURL:       "https://relay.test/",
		EvervaultTeamID:  "team-1",
		EvervaultAppID:   "app-1",
		InteractionDelay: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("new embed settings: %v", err)
	}
	if settings.Client.baseURL != "https://relay.test" {
		t.Fatalf("unexpected base url %q", settings.Client.baseURL)
	}
	if settings.Client.interactionDelay != 3*time.Second {
		t.Fatalf("configured delay not applied, got %v", settings.Client.interactionDelay)
	}
	if settings.EvervaultTeamID != "team-1" || settings.EvervaultAppID != "app-1" {
		t.Fatalf("provider ids not carried: %+v", settings)
	}
}

func TestNewEmbedSettingsOptionOverridesDelay(t *testing.T) {
	settings, err := NewEmbedSettings(config.WidgetConfig{
		BackendURL:       "https://relay.test",
		InteractionDelay: 3 * time.Second,
	}, WithInteractionDelay(time.Second))
	if err != nil {
		t.Fatalf("new embed settings: %v", err)
	}
	if settings.Client.interactionDelay != time.Second {
		t.Fatalf("explicit option must win, got %v", settings.Client.interactionDelay)
	}
}

func TestNewEmbedSettingsRequiresBackendURL(t *testing.T) {
	if _, err := NewEmbedSettings(config.WidgetConfig{}); err == nil {
		t.Fatalf("empty backend url must error")
	}
}
