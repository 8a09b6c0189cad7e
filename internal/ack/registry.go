package ack

import (
	"context"
	"sync"
	"time"

	domain "github.com/tyrion/nucleus-sms-bridge/internal/domain/alarm"
	"github.com/tyrion/nucleus-sms-bridge/internal/logger"
)

// DefaultTTL is how long a pending acknowledgment stays resolvable before the
// reaper discards it as orphaned.
const DefaultTTL = 5 * time.Minute

// pendingAck is one outstanding notification batch awaiting a reply.
// The batch is never mutated after creation; only registry membership changes.
type pendingAck struct {
	// user is the recipient the code was sent to.
	user *domain.User
	// events is the batch of alarm events covered by the code.
	events []domain.Event
	// createdAt is when the entry was registered, used only for TTL eviction.
	createdAt time.Time
}

// Registry is the shared state mapping an acknowledgment code to the batch
// and recipient awaiting acknowledgment. All operations are safe for
// concurrent use; a single mutex serializes every access to the key space so
// register, resolve and sweep never observe a torn or duplicated key set.
type Registry struct {
	// countryCode is prepended during number normalization when absent.
	countryCode string
	// now is the clock used for entry timestamps; injectable for tests.
	now func() time.Time

	// mu protects entries.
	mu sync.Mutex
	// entries maps a live code to its pending acknowledgment.
	entries map[string]*pendingAck
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithCountryCode overrides the default country code used when normalizing
// phone numbers for sender validation.
func WithCountryCode(code string) RegistryOption {
	return func(r *Registry) {
		if code != "" {
			r.countryCode = code
		}
	}
}

// WithClock overrides the registry clock. Tests use it to drive TTL eviction.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		countryCode: DefaultCountryCode,
		now:         time.Now,
		entries:     make(map[string]*pendingAck),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register stores a new pending acknowledgment for the batch being sent to
// the user and returns its code. The code is unique among live entries at the
// instant of return; generation retries on collision without an upper bound,
// which terminates quickly because the pending set is tiny next to the
// million-code key space. If the chosen code were somehow already present the
// existing entry is kept and its code returned, preserving at most one entry
// per code even under races.
func (r *Registry) Register(user *domain.User, events []domain.Event) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	code := randomCode()
	for _, exists := r.entries[code]; exists; _, exists = r.entries[code] {
		code = randomCode()
	}

	r.entries[code] = &pendingAck{
		user:      user.Clone(),
		events:    domain.CloneEvents(events),
		createdAt: r.now(),
	}

	return code
}

// Resolve validates an inbound (code, number) pair against the registry.
//
// An absent code returns ok=false. A present code whose entry does not list
// the normalized incoming number among the recipient's SMS contacts also
// returns ok=false and leaves the entry in place: an unmatched sender must
// not consume a still-valid code, since a legitimate reply may yet arrive.
// On a match the entry is removed atomically and its batch returned.
func (r *Registry) Resolve(ctx context.Context, code, incomingNumber string) (*domain.User, []domain.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[code]
	if !ok {
		return nil, nil, false
	}

	if !r.numberBelongsToUser(ctx, incomingNumber, entry.user) {
		return nil, nil, false
	}

	delete(r.entries, code)

	return entry.user, entry.events, true
}

// SweepExpired removes every entry older than ttl relative to now and returns
// how many were discarded.
func (r *Registry) SweepExpired(now time.Time, ttl time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0

	for code, entry := range r.entries {
		if now.Sub(entry.createdAt) > ttl {
			delete(r.entries, code)
			removed++
		}
	}

	return removed
}

// Len returns the number of currently pending acknowledgments.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// numberBelongsToUser reports whether the normalized incoming number matches
// any of the user's SMS contacts. A contact that fails normalization is
// treated as a non-match and the remaining contacts are still checked.
func (r *Registry) numberBelongsToUser(ctx context.Context, incomingNumber string, user *domain.User) bool {
	incoming, err := NormalizeNumber(incomingNumber, r.countryCode)
	if err != nil {
		logger.WarnKV(ctx, "Unable to normalize incoming number", "number", incomingNumber, "error", err)

		return false
	}

	for _, number := range user.SMSNumbers() {
		onFile, err := NormalizeNumber(number, r.countryCode)
		if err != nil {
			logger.WarnKV(ctx, "Unable to normalize contact number on file", "user", user.Name, "error", err)

			continue
		}

		if onFile == incoming {
			return true
		}
	}

	return false
}
