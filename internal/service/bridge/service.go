package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tyrion/nucleus-sms-bridge/internal/ack"
	"github.com/tyrion/nucleus-sms-bridge/internal/audit"
	domain "github.com/tyrion/nucleus-sms-bridge/internal/domain/alarm"
	"github.com/tyrion/nucleus-sms-bridge/internal/logger"
)

const (
	// MaxSMSLength is the gateway's maximum single-message length.
	// Longer notifications are split into independent sends.
	MaxSMSLength = 160

	// actionSendSMS names the audited operation.
	actionSendSMS = "Send SMS"

	// ackInstruction is appended to notifications that still need a reply.
	ackInstruction = "\nTo acknowledge, reply '%s'."
)

// errNoSMSContacts is returned when the recipient has no SMS-capable numbers.
var errNoSMSContacts = errors.New("user has no SMS contact numbers")

// Sender transmits one SMS chunk through the gateway.
type Sender interface {
	Send(ctx context.Context, numbers []string, ackCode, message string) error
}

// Service is the outbound dispatcher of one notification profile.
type Service struct {
	// registry tracks pending acknowledgments for this profile.
	registry *ack.Registry
	// sender pushes chunks to the gateway.
	sender Sender
	// renderer produces message text when the caller did not.
	renderer *Renderer
	// sink receives one audit record per event per send attempt.
	sink audit.Sink
	// testMode suppresses real transmission.
	testMode bool
}

// NewService wires the dispatcher together.
func NewService(registry *ack.Registry, sender Sender, renderer *Renderer, sink audit.Sink, testMode bool) *Service {
	return &Service{
		registry: registry,
		sender:   sender,
		renderer: renderer,
		sink:     sink,
		testMode: testMode,
	}
}

// TestMode reports whether the profile suppresses real transmission.
func (s *Service) TestMode() bool {
	return s.testMode
}

// RenderMessage produces the notification text for a batch using the
// configured templates.
func (s *Service) RenderMessage(events []domain.Event) (string, error) {
	return s.renderer.Render(events)
}

// SendNotification delivers one rendered notification batch to the user.
//
// In test mode the would-be recipients and message are logged and the call
// reports success without contacting the gateway or registering a code.
// Otherwise a code is registered for the batch, the acknowledgment
// instruction is appended unless every event is already acknowledged, and the
// message is split into gateway-sized chunks sent in order. The first failed
// chunk aborts the rest and fails the whole notification; chunks already sent
// are not retracted, duplication being preferable to silent loss.
func (s *Service) SendNotification(ctx context.Context, user *domain.User, events []domain.Event, message string) error {
	numbers := user.SMSNumbers()
	if len(numbers) == 0 {
		s.audit(ctx, false, user, events)

		return fmt.Errorf("notify %q: %w", user.Name, errNoSMSContacts)
	}

	if s.testMode {
		logger.Infof(ctx, "THIS PROFILE IS RUNNING IN TEST MODE. The following SMS WOULD have been sent:\n"+
			"Recipient(s): %s\nMessage: %s", strings.Join(numbers, ","), message)

		return nil
	}

	code := s.registry.Register(user, events)

	allAcked := true
	for _, event := range events {
		allAcked = allAcked && event.Acked
	}

	if !allAcked {
		message += fmt.Sprintf(ackInstruction, code)
	}

	logger.DebugKV(ctx, "Sending notification", "user", user.Name, "numbers", strings.Join(numbers, ","), "code", code)

	for _, chunk := range splitMessage(message, MaxSMSLength) {
		if err := s.sender.Send(ctx, numbers, code, chunk); err != nil {
			s.audit(ctx, false, user, events)

			// The registered code is left to expire naturally: the chunk may
			// have reached the device before the gateway reported failure,
			// and a late legitimate reply is harmless to accept.
			return fmt.Errorf("send notification to %s: %w", strings.Join(numbers, ","), err)
		}
	}

	s.audit(ctx, true, user, events)

	return nil
}

// audit emits one fire-and-forget record per event in the batch.
func (s *Service) audit(ctx context.Context, success bool, user *domain.User, events []domain.Event) {
	now := time.Now()

	for _, event := range events {
		s.sink.Record(ctx, audit.Record{
			Success:   success,
			Action:    actionSendSMS,
			Actor:     user.Name,
			Target:    fmt.Sprintf("%s/evt:%s", event.Source, event.ID),
			Timestamp: now,
		})
	}
}

// splitMessage cuts the message into rune-safe chunks of at most limit
// characters, preserving left-to-right order.
func splitMessage(message string, limit int) []string {
	runes := []rune(message)
	chunks := make([]string, 0, (len(runes)+limit-1)/limit)

	for start := 0; start < len(runes); start += limit {
		end := min(start+limit, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
