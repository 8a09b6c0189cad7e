package bridge

import (
	"fmt"
	"strings"
	"text/template"

	domain "github.com/tyrion/nucleus-sms-bridge/internal/domain/alarm"
)

// templateData is the payload message templates render against.
type templateData struct {
	// Events is the notification batch, in dispatch order.
	Events []domain.Event
}

// Renderer produces notification text from the profile's message templates.
// The single-event template is used for batches of one; the throttled
// template covers consolidated batches. Template semantics beyond plain
// text/template substitution are deliberately out of scope.
type Renderer struct {
	// message renders single-event batches.
	message *template.Template
	// throttled renders batches with more than one event.
	throttled *template.Template
}

// NewRenderer parses both templates up front so a malformed profile fails at
// startup instead of on the first notification.
func NewRenderer(message, throttledMessage string) (*Renderer, error) {
	messageTemplate, err := template.New("message").Parse(message)
	if err != nil {
		return nil, fmt.Errorf("parse message template: %w", err)
	}

	throttledTemplate, err := template.New("throttled_message").Parse(throttledMessage)
	if err != nil {
		return nil, fmt.Errorf("parse throttled message template: %w", err)
	}

	return &Renderer{
		message:   messageTemplate,
		throttled: throttledTemplate,
	}, nil
}

// Render produces the notification text for the batch.
func (r *Renderer) Render(events []domain.Event) (string, error) {
	selected := r.message
	if len(events) > 1 {
		selected = r.throttled
	}

	var b strings.Builder
	if err := selected.Execute(&b, templateData{Events: events}); err != nil {
		return "", fmt.Errorf("render message: %w", err)
	}

	return b.String(), nil
}
