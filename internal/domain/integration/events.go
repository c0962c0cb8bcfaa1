package integration

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Channels
// ---------------------------------------------------------------------------

// Channel is a named realtime delivery channel dashboard clients subscribe to.
type Channel string

const (
	ChannelDashboard      Channel = "dashboard"
	ChannelProduction     Channel = "production"
	ChannelInventory      Channel = "inventory"
	ChannelAlerts         Channel = "alerts"
	ChannelWorkingCapital Channel = "working-capital"
	// ChannelSubscribe is the catch-all channel carrying every event
	ChannelSubscribe Channel = "subscribe"
)

// String returns the string representation of Channel
func (c Channel) String() string {
	return string(c)
}

// ---------------------------------------------------------------------------
// EventType taxonomy
// ---------------------------------------------------------------------------

// EventType names one kind of realtime event, e.g. "xero:sync-completed" or
// "unleashed:quality-alert".
type EventType string

// String returns the string representation of EventType
func (t EventType) String() string {
	return string(t)
}

// EventTypeRefreshRequired is the cross-cutting signal telling dashboards to
// refetch all panels.
const EventTypeRefreshRequired EventType = "dashboard:refresh-required"

// SyncStartedEvent returns the sync-started event type for an integration.
func SyncStartedEvent(kind Kind) EventType {
	return EventType(kind.Slug() + ":sync-started")
}

// SyncCompletedEvent returns the sync-completed event type for an integration.
func SyncCompletedEvent(kind Kind) EventType {
	return EventType(kind.Slug() + ":sync-completed")
}

// SyncErrorEvent returns the sync-error event type for an integration.
func SyncErrorEvent(kind Kind) EventType {
	return EventType(kind.Slug() + ":sync-error")
}

// AlertEvent returns the alert event type for an integration and alert kind,
// e.g. AlertEvent(KindUnleashed, AlertKindQualityYieldShortfall) is
// "unleashed:quality-alert".
func AlertEvent(kind Kind, alertKind AlertKind) EventType {
	return EventType(kind.Slug() + ":" + alertSlug(alertKind))
}

func alertSlug(kind AlertKind) string {
	switch kind {
	case AlertKindLowStock:
		return "low-stock-alert"
	case AlertKindZeroStock:
		return "zero-stock-alert"
	case AlertKindQualityYieldShortfall:
		return "quality-alert"
	case AlertKindCapacityOverload:
		return "capacity-alert"
	case AlertKindSyncFailure:
		return "sync-failure-alert"
	default:
		return "alert"
	}
}

// ---------------------------------------------------------------------------
// Event
// ---------------------------------------------------------------------------

// Event is one message published to the realtime gateway.
type Event struct {
	Type      EventType `json:"eventType"`
	TenantID  uuid.UUID `json:"tenantId"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// ---------------------------------------------------------------------------
// Routing table
// ---------------------------------------------------------------------------

// routes maps every event type to its delivery channels. Channel membership
// is data: adding a channel is a table entry here, not adapter code.
var routes = buildRoutes()

func buildRoutes() map[EventType][]Channel {
	// Sync lifecycle events go to the dashboard plus the channels whose data
	// the integration feeds.
	domainChannels := map[Kind][]Channel{
		KindXero:      {ChannelWorkingCapital},
		KindShopify:   {},
		KindAmazon:    {ChannelInventory},
		KindUnleashed: {ChannelProduction, ChannelInventory},
	}
	alertChannels := map[AlertKind]Channel{
		AlertKindLowStock:              ChannelInventory,
		AlertKindZeroStock:             ChannelInventory,
		AlertKindQualityYieldShortfall: ChannelProduction,
		AlertKindCapacityOverload:      ChannelProduction,
		AlertKindSyncFailure:           ChannelDashboard,
	}

	table := map[EventType][]Channel{
		EventTypeRefreshRequired: {ChannelDashboard},
	}
	for _, kind := range AllKinds() {
		lifecycle := append([]Channel{ChannelDashboard}, domainChannels[kind]...)
		table[SyncStartedEvent(kind)] = lifecycle
		table[SyncCompletedEvent(kind)] = lifecycle
		table[SyncErrorEvent(kind)] = lifecycle
		for alertKind, channel := range alertChannels {
			table[AlertEvent(kind, alertKind)] = []Channel{ChannelAlerts, channel}
		}
	}
	return table
}

// ChannelsFor returns the channels an event type is delivered to. Every event
// additionally reaches the catch-all subscribe channel.
func ChannelsFor(eventType EventType) []Channel {
	mapped := routes[eventType]
	channels := make([]Channel, 0, len(mapped)+1)
	seen := map[Channel]bool{}
	for _, c := range mapped {
		if !seen[c] {
			channels = append(channels, c)
			seen[c] = true
		}
	}
	if !seen[ChannelSubscribe] {
		channels = append(channels, ChannelSubscribe)
	}
	return channels
}

// Publisher is the outbound boundary to the realtime gateway.
type Publisher interface {
	// Emit publishes an event; delivery is debounced per event type
	Emit(event Event)
}
