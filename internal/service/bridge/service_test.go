package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tyrion/nucleus-sms-bridge/internal/ack"
	"github.com/tyrion/nucleus-sms-bridge/internal/audit"
	domain "github.com/tyrion/nucleus-sms-bridge/internal/domain/alarm"
)

var errTestSend = errors.New("test send error")

// fakeSender records chunks and fails on demand.
type fakeSender struct {
	// mu protects the recorded fields.
	mu sync.Mutex
	// chunks holds every successfully accepted message chunk in order.
	chunks []string
	// numbers holds the recipient list of the last send.
	numbers []string
	// ackCode holds the code of the last send.
	ackCode string
	// failAfter fails the send once this many chunks were accepted.
	// Negative means never fail.
	failAfter int
}

// Send records the chunk or fails when the scripted budget is exhausted.
func (f *fakeSender) Send(_ context.Context, numbers []string, ackCode, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAfter >= 0 && len(f.chunks) >= f.failAfter {
		return errTestSend
	}

	f.chunks = append(f.chunks, message)
	f.numbers = numbers
	f.ackCode = ackCode

	return nil
}

// memorySink collects audit records in memory.
type memorySink struct {
	// mu protects records.
	mu sync.Mutex
	// records holds every received record in order.
	records []audit.Record
}

// Record appends the record.
func (s *memorySink) Record(_ context.Context, record audit.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)
}

// newTestService builds a dispatcher with default templates.
func newTestService(t *testing.T, registry *ack.Registry, sender Sender, sink audit.Sink, testMode bool) *Service {
	t.Helper()

	renderer, err := NewRenderer(
		`Alarm "{{ (index .Events 0).DisplayPath }}" requires attention.`,
		"{{ len .Events }} alarms require attention.")
	require.NoError(t, err)

	return NewService(registry, sender, renderer, sink, testMode)
}

// notifyUserFixture returns a recipient with one SMS number.
func notifyUserFixture() *domain.User {
	return &domain.User{
		Name: "operators/jamie",
		Contacts: []domain.ContactInfo{
			{Type: domain.ContactTypeSMS, Value: "5551234567"},
		},
	}
}

// TestSplitMessage verifies chunking respects the limit, preserves order and
// concatenates back to the original text.
func TestSplitMessage(t *testing.T) {
	t.Parallel()

	message := strings.Repeat("a", 160) + strings.Repeat("b", 160) + "okay!"
	require.Len(t, message, 325)

	chunks := splitMessage(message, MaxSMSLength)
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], 160)
	require.Len(t, chunks[1], 160)
	require.Len(t, chunks[2], 5)
	require.Equal(t, message, strings.Join(chunks, ""))

	require.Equal(t, []string{"short"}, splitMessage("short", MaxSMSLength))
	require.Empty(t, splitMessage("", MaxSMSLength))
}

// TestService_SendNotification verifies the happy path: a code is registered,
// the instruction line carries it, and every event gets a success record.
func TestService_SendNotification(t *testing.T) {
	t.Parallel()

	registry := ack.NewRegistry()
	sender := &fakeSender{failAfter: -1}
	sink := new(memorySink)
	service := newTestService(t, registry, sender, sink, false)

	events := []domain.Event{
		{ID: uuid.New(), Source: "prov:default:/alm:Tank Level", DisplayPath: "Tank Level"},
		{ID: uuid.New(), Source: "prov:default:/alm:Pump Pressure", DisplayPath: "Pump Pressure"},
	}

	err := service.SendNotification(context.Background(), notifyUserFixture(), events, "2 alarms require attention.")
	require.NoError(t, err)

	require.Equal(t, 1, registry.Len())
	require.Len(t, sender.chunks, 1)
	require.Equal(t, []string{"5551234567"}, sender.numbers)
	require.Equal(t, fmt.Sprintf("2 alarms require attention.\nTo acknowledge, reply '%s'.", sender.ackCode),
		sender.chunks[0])

	require.Len(t, sink.records, 2)
	for i, record := range sink.records {
		require.True(t, record.Success)
		require.Equal(t, "Send SMS", record.Action)
		require.Equal(t, "operators/jamie", record.Actor)
		require.Contains(t, record.Target, events[i].ID.String())
	}
}

// TestService_SendNotificationAllAcked verifies a fully acknowledged batch
// gets no instruction line.
func TestService_SendNotificationAllAcked(t *testing.T) {
	t.Parallel()

	registry := ack.NewRegistry()
	sender := &fakeSender{failAfter: -1}
	service := newTestService(t, registry, sender, new(memorySink), false)

	events := []domain.Event{{ID: uuid.New(), Source: "prov:default:/alm:Flow", Acked: true}}

	err := service.SendNotification(context.Background(), notifyUserFixture(), events, "Flow alarm cleared.")
	require.NoError(t, err)
	require.Equal(t, []string{"Flow alarm cleared."}, sender.chunks)
}

// TestService_SendNotificationLongMessage verifies every chunk is an
// independent send carrying the same code.
func TestService_SendNotificationLongMessage(t *testing.T) {
	t.Parallel()

	registry := ack.NewRegistry()
	sender := &fakeSender{failAfter: -1}
	service := newTestService(t, registry, sender, new(memorySink), false)

	message := strings.Repeat("x", 300)
	events := []domain.Event{{ID: uuid.New(), Source: "prov:default:/alm:Tank Level"}}

	err := service.SendNotification(context.Background(), notifyUserFixture(), events, message)
	require.NoError(t, err)

	require.Len(t, sender.chunks, 3)
	require.Equal(t, message+fmt.Sprintf("\nTo acknowledge, reply '%s'.", sender.ackCode),
		strings.Join(sender.chunks, ""))
}

// TestService_SendNotificationFailure verifies a failed chunk aborts the rest,
// fails the notification, audits per event, and leaves the registered code in
// place so a late legitimate reply could still be accepted.
func TestService_SendNotificationFailure(t *testing.T) {
	t.Parallel()

	registry := ack.NewRegistry()
	sender := &fakeSender{failAfter: 1}
	sink := new(memorySink)
	service := newTestService(t, registry, sender, sink, false)

	message := strings.Repeat("x", 300)
	events := []domain.Event{{ID: uuid.New(), Source: "prov:default:/alm:Tank Level"}}

	err := service.SendNotification(context.Background(), notifyUserFixture(), events, message)
	require.ErrorIs(t, err, errTestSend)
	require.Contains(t, err.Error(), "5551234567")

	// Only the first chunk made it out; the code stays pending.
	require.Len(t, sender.chunks, 1)
	require.Equal(t, 1, registry.Len())

	require.Len(t, sink.records, 1)
	require.False(t, sink.records[0].Success)
}

// TestService_SendNotificationTestMode verifies test mode makes no gateway
// contact, registers no code and reports success.
func TestService_SendNotificationTestMode(t *testing.T) {
	t.Parallel()

	registry := ack.NewRegistry()
	sender := &fakeSender{failAfter: 0} // Any send attempt would fail the test.
	sink := new(memorySink)
	service := newTestService(t, registry, sender, sink, true)

	events := []domain.Event{{ID: uuid.New(), Source: "prov:default:/alm:Tank Level"}}

	err := service.SendNotification(context.Background(), notifyUserFixture(), events, "Tank Level is High")
	require.NoError(t, err)
	require.Empty(t, sender.chunks)
	require.Equal(t, 0, registry.Len())
	require.Empty(t, sink.records)
}

// TestService_SendNotificationNoContacts verifies a recipient without SMS
// numbers fails the notification.
func TestService_SendNotificationNoContacts(t *testing.T) {
	t.Parallel()

	registry := ack.NewRegistry()
	service := newTestService(t, registry, &fakeSender{failAfter: -1}, new(memorySink), false)

	user := &domain.User{
		Name: "operators/jamie",
		Contacts: []domain.ContactInfo{
			{Type: domain.ContactTypeEmail, Value: "jamie@example.com"},
		},
	}

	err := service.SendNotification(context.Background(), user,
		[]domain.Event{{ID: uuid.New(), Source: "prov:default:/alm:Flow"}}, "msg")
	require.ErrorIs(t, err, errNoSMSContacts)
	require.Equal(t, 0, registry.Len())
}
