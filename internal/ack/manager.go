package ack

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	domain "github.com/tyrion/nucleus-sms-bridge/internal/domain/alarm"
	"github.com/tyrion/nucleus-sms-bridge/internal/gateway"
	"github.com/tyrion/nucleus-sms-bridge/internal/logger"
)

const (
	// DefaultPollInterval is how often the gateway's inbound buffer is read.
	DefaultPollInterval = time.Second

	// DefaultSweepInterval is how often orphaned entries are reaped.
	DefaultSweepInterval = time.Minute
)

// Reader fetches buffered inbound SMS replies from the gateway.
type Reader interface {
	Read(ctx context.Context) ([]gateway.InboundMessage, error)
}

// Acknowledger is the alarm framework operation the resolver delegates
// acknowledged batches to.
type Acknowledger interface {
	Acknowledge(ctx context.Context, eventIDs []uuid.UUID, meta domain.AckMeta) error
}

// Manager runs the two periodic background tasks of one notification profile:
// polling the gateway for inbound replies and sweeping the registry for
// orphans. The tasks run independently so a slow gateway response never
// delays eviction, and each profile owns its own manager and registry.
type Manager struct {
	// registry holds the profile's pending acknowledgments.
	registry *Registry
	// reader is the gateway endpoint polled for inbound replies.
	reader Reader
	// acknowledger receives resolved batches.
	acknowledger Acknowledger

	// pollInterval is the period of the inbound poller.
	pollInterval time.Duration
	// sweepInterval is the period of the orphan reaper.
	sweepInterval time.Duration
	// ttl is the maximum age of a pending acknowledgment.
	ttl time.Duration

	// cancel stops both background loops.
	cancel context.CancelFunc
	// group tracks the background loops for deterministic shutdown.
	group *errgroup.Group
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithPollInterval overrides the inbound polling period.
func WithPollInterval(interval time.Duration) ManagerOption {
	return func(m *Manager) {
		if interval > 0 {
			m.pollInterval = interval
		}
	}
}

// WithSweepInterval overrides the orphan reaping period.
func WithSweepInterval(interval time.Duration) ManagerOption {
	return func(m *Manager) {
		if interval > 0 {
			m.sweepInterval = interval
		}
	}
}

// WithTTL overrides how long pending acknowledgments stay resolvable.
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// NewManager wires the registry, gateway reader and acknowledger together.
func NewManager(registry *Registry, reader Reader, acknowledger Acknowledger, opts ...ManagerOption) *Manager {
	m := &Manager{
		registry:      registry,
		reader:        reader,
		acknowledger:  acknowledger,
		pollInterval:  DefaultPollInterval,
		sweepInterval: DefaultSweepInterval,
		ttl:           DefaultTTL,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start launches the poller and reaper loops. They run until Stop is called
// or the provided context is canceled.
func (m *Manager) Start(ctx context.Context) {
	ctx = logger.WithName(ctx, "ack-manager")
	ctx, m.cancel = context.WithCancel(ctx)

	group, groupCtx := errgroup.WithContext(ctx)
	m.group = group

	group.Go(func() error {
		m.pollLoop(groupCtx)

		return nil
	})

	group.Go(func() error {
		m.sweepLoop(groupCtx)

		return nil
	})
}

// Stop cancels both background loops and blocks until they exit. An in-flight
// gateway request is allowed to finish or time out rather than being aborted
// mid-read, bounded by the gateway client's timeout.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}

	m.cancel()
	_ = m.group.Wait()
}

// pollLoop reads the gateway's inbound buffer on a fixed period.
func (m *Manager) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug(ctx, "Inbound poller stopped")

			return
		case <-ticker.C:
			m.pollOnce(ctx)
		}
	}
}

// pollOnce performs a single poll tick. Any transport or protocol failure
// skips the tick entirely; the next tick retries naturally, so a flapping
// gateway never produces a retry storm or a crashed loop.
func (m *Manager) pollOnce(ctx context.Context) {
	messages, err := m.reader.Read(ctx)
	if err != nil {
		logger.DebugKV(ctx, "Unable to read acknowledgement buffer", "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	logger.DebugKV(ctx, "Received acknowledgement buffer", "count", len(messages))

	for _, message := range messages {
		// One malformed entry must not abort the rest of the buffer.
		if message.Message == "" || message.Number == "" {
			logger.DebugKV(ctx, "Skipping malformed inbound message",
				"number", message.Number, "message", message.Message)

			continue
		}

		m.Acknowledge(ctx, message.Message, message.Number, time.UnixMilli(message.Timestamp))
	}
}

// Acknowledge resolves an inbound (code, number) pair and acknowledges the
// unacknowledged subset of the matched batch through the alarm framework.
// Unknown codes and sender mismatches are expected outcomes for stale codes,
// forged replies or races with the reaper; they are logged and dropped.
func (m *Manager) Acknowledge(ctx context.Context, code, incomingNumber string, ackTime time.Time) {
	user, events, ok := m.registry.Resolve(ctx, code, incomingNumber)
	if !ok {
		logger.WarnKV(ctx, "Inbound SMS did not match a pending acknowledgement",
			"code", code, "number", incomingNumber)

		return
	}

	eventIDs := make([]uuid.UUID, 0, len(events))

	for _, event := range events {
		if event.Acked {
			continue
		}

		logger.DebugKV(ctx, "User acknowledged alarm event", "user", user.Name, "event_id", event.ID)
		eventIDs = append(eventIDs, event.ID)
	}

	if len(eventIDs) == 0 {
		return
	}

	meta := domain.AckMeta{
		User: user.Name,
		Time: ackTime,
	}

	if err := m.acknowledger.Acknowledge(ctx, eventIDs, meta); err != nil {
		logger.ErrorKV(ctx, "Unable to acknowledge alarm events", "user", user.Name, "error", err)
	}
}

// sweepLoop evicts orphaned entries on a fixed period.
func (m *Manager) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug(ctx, "Orphan reaper stopped")

			return
		case <-ticker.C:
			if removed := m.registry.SweepExpired(time.Now(), m.ttl); removed > 0 {
				logger.InfoKV(ctx, "Discarded orphaned acknowledgements", "count", removed)
			}
		}
	}
}
