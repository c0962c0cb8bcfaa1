package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventTypeNames(t *testing.T) {
	assert.Equal(t, EventType("xero:sync-completed"), SyncCompletedEvent(KindXero))
	assert.Equal(t, EventType("unleashed:sync-started"), SyncStartedEvent(KindUnleashed))
	assert.Equal(t, EventType("amazon:sync-error"), SyncErrorEvent(KindAmazon))
	assert.Equal(t, EventType("unleashed:quality-alert"), AlertEvent(KindUnleashed, AlertKindQualityYieldShortfall))
	assert.Equal(t, EventType("amazon:low-stock-alert"), AlertEvent(KindAmazon, AlertKindLowStock))
}

func TestChannelsFor_RoutingTable(t *testing.T) {
	tests := []struct {
		name      string
		eventType EventType
		expected  []Channel
	}{
		{
			name:      "xero sync completed feeds working capital",
			eventType: SyncCompletedEvent(KindXero),
			expected:  []Channel{ChannelDashboard, ChannelWorkingCapital, ChannelSubscribe},
		},
		{
			name:      "unleashed lifecycle feeds production and inventory",
			eventType: SyncErrorEvent(KindUnleashed),
			expected:  []Channel{ChannelDashboard, ChannelProduction, ChannelInventory, ChannelSubscribe},
		},
		{
			name:      "quality alert goes to alerts and production",
			eventType: AlertEvent(KindUnleashed, AlertKindQualityYieldShortfall),
			expected:  []Channel{ChannelAlerts, ChannelProduction, ChannelSubscribe},
		},
		{
			name:      "refresh required goes to dashboard",
			eventType: EventTypeRefreshRequired,
			expected:  []Channel{ChannelDashboard, ChannelSubscribe},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ElementsMatch(t, tt.expected, ChannelsFor(tt.eventType))
		})
	}
}

func TestChannelsFor_UnknownTypeStillReachesSubscribe(t *testing.T) {
	channels := ChannelsFor(EventType("custom:event"))

	assert.Equal(t, []Channel{ChannelSubscribe}, channels)
}
