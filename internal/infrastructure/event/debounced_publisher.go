package event

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/capliquify/backend/internal/domain/integration"
)

// defaultDebounceWindow collapses event bursts: several snapshots landing
// within the window produce a single delivery per event type.
const defaultDebounceWindow = 2 * time.Second

// Sink receives debounced events fanned out to their channels. The SSE
// gateway implements this.
type Sink interface {
	Deliver(channel integration.Channel, event integration.Event)
}

// DebouncedPublisher implements integration.Publisher with trailing
// debounce per tenant+event-type. The first Emit in a window arms a timer;
// later Emits within the window replace the pending payload, so the
// delivery carries the newest state. Fan-out to channels follows the static
// routing table.
type DebouncedPublisher struct {
	sink   Sink
	window time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	pending map[pendingKey]*pendingEvent
	stopped atomic.Bool
	wg      sync.WaitGroup
}

type pendingKey struct {
	tenantID  string
	eventType integration.EventType
}

type pendingEvent struct {
	event integration.Event
	timer *time.Timer
}

// DebouncedPublisherOption is a functional option for configuring the publisher
type DebouncedPublisherOption func(*DebouncedPublisher)

// WithDebounceWindow overrides the debounce window
func WithDebounceWindow(window time.Duration) DebouncedPublisherOption {
	return func(p *DebouncedPublisher) {
		p.window = window
	}
}

// WithPublisherLogger sets the logger
func WithPublisherLogger(logger *zap.Logger) DebouncedPublisherOption {
	return func(p *DebouncedPublisher) {
		p.logger = logger
	}
}

// NewDebouncedPublisher creates a publisher delivering into sink.
func NewDebouncedPublisher(sink Sink, opts ...DebouncedPublisherOption) *DebouncedPublisher {
	p := &DebouncedPublisher{
		sink:    sink,
		window:  defaultDebounceWindow,
		logger:  zap.NewNop(),
		pending: make(map[pendingKey]*pendingEvent),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit schedules an event for debounced delivery. After Stop, events are
// dropped.
func (p *DebouncedPublisher) Emit(event integration.Event) {
	if p.stopped.Load() {
		return
	}
	key := pendingKey{tenantID: event.TenantID.String(), eventType: event.Type}

	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.pending[key]; ok {
		// Collapse: latest payload wins, timer keeps its deadline.
		existing.event = event
		return
	}

	pe := &pendingEvent{event: event}
	pe.timer = time.AfterFunc(p.window, func() {
		p.flush(key)
	})
	p.pending[key] = pe
	p.wg.Add(1)
}

// flush delivers the pending event for key and clears it.
func (p *DebouncedPublisher) flush(key pendingKey) {
	p.mu.Lock()
	pe, ok := p.pending[key]
	if ok {
		delete(p.pending, key)
	}
	p.mu.Unlock()
	if !ok {
		return
	}
	defer p.wg.Done()

	channels := integration.ChannelsFor(pe.event.Type)
	for _, channel := range channels {
		p.sink.Deliver(channel, pe.event)
	}
	p.logger.Debug("event delivered",
		zap.String("event_type", pe.event.Type.String()),
		zap.String("tenant_id", pe.event.TenantID.String()),
		zap.Int("channels", len(channels)),
	)
}

// Stop drains pending events immediately and rejects further emits.
func (p *DebouncedPublisher) Stop() {
	if !p.stopped.CompareAndSwap(false, true) {
		return
	}

	p.mu.Lock()
	keys := make([]pendingKey, 0, len(p.pending))
	for key, pe := range p.pending {
		pe.timer.Stop()
		keys = append(keys, key)
	}
	p.mu.Unlock()

	for _, key := range keys {
		p.flush(key)
	}
	p.wg.Wait()
}

// Ensure DebouncedPublisher implements the Publisher interface
var _ integration.Publisher = (*DebouncedPublisher)(nil)
