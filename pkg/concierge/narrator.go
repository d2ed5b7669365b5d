package concierge

import "github.com/conciergelabs/checkout-concierge/pkg/events"

const (
	startStepMarker = "Start"
	startLine       = "Starting checkout..."
)

// narrationByStep maps backend step names to the display text appended to the
// status log. Unrecognized steps produce no line.
var narrationByStep = map[string]string{
	"Accept cookies":                      "Confirming product is in stock",
	"Has price changed?":                  "Confirming price",
	"Add item to basket":                  "Proceeding to purchase",
	"Enter address":                       "Securely transmitting shipping address",
	"Continue to payment":                 "Securely transmitting billing address",
	"Place Order":                         "Securely transmitting encrypted card details",
	"Phone verification requires trigger?": "Please confirm the purchase on your phone",
}

// Narrate appends the display line(s) for one progress event to the log and
// returns the result. The start line is appended exactly once: only when the
// log is still empty and the first observed step is the start marker, which
// guards against duplicate insertion from repeated events.
func Narrate(log []string, progress events.Progress) []string {
	if len(log) == 0 && progress.CurrentStep == startStepMarker {
		log = append(log, startLine)
	}
	if progress.NextStep != "" {
		if line, ok := narrationByStep[progress.NextStep]; ok {
			log = append(log, line)
		}
	}
	return log
}
