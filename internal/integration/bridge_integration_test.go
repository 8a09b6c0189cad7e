package integration

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tyrion/nucleus-sms-bridge/internal/ack"
	"github.com/tyrion/nucleus-sms-bridge/internal/audit"
	"github.com/tyrion/nucleus-sms-bridge/internal/config"
	domain "github.com/tyrion/nucleus-sms-bridge/internal/domain/alarm"
	"github.com/tyrion/nucleus-sms-bridge/internal/gateway"
	"github.com/tyrion/nucleus-sms-bridge/internal/service/bridge"
	"github.com/tyrion/nucleus-sms-bridge/internal/service/simulator"
)

//nolint:gochecknoinits // Keeps gin quiet for every test in the package.
func init() {
	gin.SetMode(gin.TestMode)
}

// recordingAcknowledger captures acknowledged batches across goroutines.
type recordingAcknowledger struct {
	// mu protects the captured fields.
	mu sync.Mutex
	// eventIDs is the last acknowledged batch.
	eventIDs []uuid.UUID
	// meta is the last acknowledgment metadata.
	meta domain.AckMeta
}

// Acknowledge records the batch and metadata.
func (a *recordingAcknowledger) Acknowledge(_ context.Context, eventIDs []uuid.UUID, meta domain.AckMeta) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.eventIDs = eventIDs
	a.meta = meta

	return nil
}

// acked returns the captured batch.
func (a *recordingAcknowledger) acked() ([]uuid.UUID, domain.AckMeta) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.eventIDs, a.meta
}

// TestBridge_SendAndAcknowledge drives the whole path against the simulated
// gateway: dispatch an SMS, reply from the recipient's device, and observe
// the batch acknowledged and the pending entry consumed.
func TestBridge_SendAndAcknowledge(t *testing.T) {
	t.Parallel()

	// The simulator serves the exact gateway wire protocol over HTTP.
	sim := simulator.NewService()
	ts := httptest.NewServer(sim.Router())
	defer ts.Close()

	gatewayClient := gateway.NewClient(ts.URL)
	registry := ack.NewRegistry()
	acknowledger := new(recordingAcknowledger)

	renderer, err := bridge.NewRenderer(config.DefaultMessage, config.DefaultThrottledMessage)
	require.NoError(t, err)

	service := bridge.NewService(registry, gatewayClient, renderer, audit.NopSink{}, false)

	manager := ack.NewManager(registry, gatewayClient, acknowledger,
		ack.WithPollInterval(10*time.Millisecond))
	manager.Start(context.Background())
	defer manager.Stop()

	user := &domain.User{
		Name: "operators/jamie",
		Contacts: []domain.ContactInfo{
			{Type: domain.ContactTypeSMS, Value: "5551234567"},
		},
	}
	events := []domain.Event{
		{ID: uuid.New(), Source: "prov:default:/alm:Tank Level", DisplayPath: "Tank Level"},
	}

	require.NoError(t, service.SendNotification(context.Background(), user, events, "Tank Level is High"))
	require.Equal(t, 1, registry.Len())

	// The gateway accepted one chunk carrying the code and the instruction.
	sent := sim.Sent()
	require.Len(t, sent, 1)
	require.Len(t, sent[0].AckCode, 6)
	require.Contains(t, sent[0].Message, "To acknowledge, reply '"+sent[0].AckCode+"'.")
	require.Equal(t, []string{"5551234567"}, sent[0].Numbers)

	// The device replies with the code from its registered number.
	sim.Inject("15551234567", sent[0].AckCode)

	require.Eventually(t, func() bool {
		eventIDs, _ := acknowledger.acked()

		return len(eventIDs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	eventIDs, meta := acknowledger.acked()
	require.Equal(t, []uuid.UUID{events[0].ID}, eventIDs)
	require.Equal(t, "operators/jamie", meta.User)
	require.Equal(t, 0, registry.Len())
}

// TestBridge_WrongNumberLeavesCodePending verifies a reply from a foreign
// number never consumes the pending code.
func TestBridge_WrongNumberLeavesCodePending(t *testing.T) {
	t.Parallel()

	sim := simulator.NewService()
	ts := httptest.NewServer(sim.Router())
	defer ts.Close()

	gatewayClient := gateway.NewClient(ts.URL)
	registry := ack.NewRegistry()
	acknowledger := new(recordingAcknowledger)

	renderer, err := bridge.NewRenderer(config.DefaultMessage, config.DefaultThrottledMessage)
	require.NoError(t, err)

	service := bridge.NewService(registry, gatewayClient, renderer, audit.NopSink{}, false)

	manager := ack.NewManager(registry, gatewayClient, acknowledger,
		ack.WithPollInterval(10*time.Millisecond))
	manager.Start(context.Background())
	defer manager.Stop()

	user := &domain.User{
		Name: "operators/jamie",
		Contacts: []domain.ContactInfo{
			{Type: domain.ContactTypeSMS, Value: "5551234567"},
		},
	}

	require.NoError(t, service.SendNotification(context.Background(), user,
		[]domain.Event{{ID: uuid.New(), Source: "prov:default:/alm:Flow"}}, "Flow is low"))

	sent := sim.Sent()
	require.Len(t, sent, 1)

	sim.Inject("19998887777", sent[0].AckCode)

	// Give the poller time to process the forged reply.
	time.Sleep(100 * time.Millisecond)

	eventIDs, _ := acknowledger.acked()
	require.Empty(t, eventIDs)
	require.Equal(t, 1, registry.Len())
}
