package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capliquify/backend/internal/domain/integration"
	"github.com/capliquify/backend/internal/infrastructure/event"
	"github.com/capliquify/backend/internal/interfaces/http/dto"
)

var _ event.Sink = (*StreamHandler)(nil)

// streamMessage is one SSE frame queued to a client.
type streamMessage struct {
	Event string
	Data  string
}

// streamClient is one connected dashboard.
type streamClient struct {
	ID       string
	TenantID uuid.UUID
	Channels map[integration.Channel]bool
	Chan     chan streamMessage
	Done     chan struct{}
}

func (c *streamClient) wants(channel integration.Channel) bool {
	return c.Channels[channel]
}

// StreamHandler is the realtime gateway: it terminates SSE connections and
// implements the event sink the debounced publisher fans out to. Clients
// subscribe to named channels; delivery is tenant-partitioned.
type StreamHandler struct {
	BaseHandler
	logger     *zap.Logger
	clients    sync.Map // map[string]*streamClient
	heartbeat  time.Duration
	maxClients int

	startMu sync.Mutex
	started bool
	stop    chan struct{}
}

// StreamHandlerOption customizes the handler.
type StreamHandlerOption func(*StreamHandler)

// WithStreamLogger sets the handler logger.
func WithStreamLogger(logger *zap.Logger) StreamHandlerOption {
	return func(h *StreamHandler) { h.logger = logger }
}

// WithStreamHeartbeat sets the keep-alive interval.
func WithStreamHeartbeat(interval time.Duration) StreamHandlerOption {
	return func(h *StreamHandler) { h.heartbeat = interval }
}

// WithStreamMaxClients caps concurrent SSE connections.
func WithStreamMaxClients(max int) StreamHandlerOption {
	return func(h *StreamHandler) { h.maxClients = max }
}

// NewStreamHandler creates the SSE gateway handler.
func NewStreamHandler(opts ...StreamHandlerOption) *StreamHandler {
	h := &StreamHandler{
		logger:     zap.NewNop(),
		heartbeat:  30 * time.Second,
		maxClients: 10000,
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the stream endpoint.
func (h *StreamHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/stream", h.Stream)
}

// Start launches the heartbeat loop.
func (h *StreamHandler) Start() error {
	h.startMu.Lock()
	defer h.startMu.Unlock()
	if h.started {
		return fmt.Errorf("stream handler already started")
	}
	h.started = true
	go h.sendHeartbeats()
	h.logger.Info("SSE stream handler started")
	return nil
}

// Stop disconnects every client and halts the heartbeat loop.
func (h *StreamHandler) Stop() {
	h.startMu.Lock()
	defer h.startMu.Unlock()
	if !h.started {
		return
	}
	h.started = false
	close(h.stop)

	h.clients.Range(func(_, value any) bool {
		if client, ok := value.(*streamClient); ok {
			close(client.Done)
		}
		return true
	})
	h.logger.Info("SSE stream handler stopped")
}

// Deliver implements the publisher sink: the event is forwarded to every
// connected client of the same tenant subscribed to the channel.
func (h *StreamHandler) Deliver(channel integration.Channel, event integration.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("event serialization failed",
			zap.String("event_type", event.Type.String()),
			zap.Error(err))
		return
	}
	msg := streamMessage{Event: string(channel), Data: string(data)}

	h.clients.Range(func(_, value any) bool {
		client, ok := value.(*streamClient)
		if !ok {
			return true
		}
		if client.TenantID != event.TenantID || !client.wants(channel) {
			return true
		}
		select {
		case client.Chan <- msg:
		default:
			h.logger.Warn("client channel full, dropping event",
				zap.String("client_id", client.ID),
				zap.String("channel", string(channel)))
		}
		return true
	})
}

// ClientCount returns the number of connected clients.
func (h *StreamHandler) ClientCount() int {
	count := 0
	h.clients.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

func (h *StreamHandler) sendHeartbeats() {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			msg := streamMessage{
				Event: "heartbeat",
				Data:  fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()),
			}
			h.clients.Range(func(_, value any) bool {
				if client, ok := value.(*streamClient); ok {
					select {
					case client.Chan <- msg:
					default:
					}
				}
				return true
			})
		}
	}
}

// parseChannels reads the channels query parameter. An empty parameter
// subscribes the client to the catch-all channel only.
func parseChannels(raw string) (map[integration.Channel]bool, error) {
	channels := map[integration.Channel]bool{integration.ChannelSubscribe: true}
	if raw == "" {
		return channels, nil
	}
	known := map[integration.Channel]bool{
		integration.ChannelDashboard:      true,
		integration.ChannelProduction:     true,
		integration.ChannelInventory:      true,
		integration.ChannelAlerts:         true,
		integration.ChannelWorkingCapital: true,
		integration.ChannelSubscribe:      true,
	}
	for _, name := range strings.Split(raw, ",") {
		channel := integration.Channel(strings.TrimSpace(name))
		if !known[channel] {
			return nil, fmt.Errorf("unknown channel %q", channel)
		}
		channels[channel] = true
	}
	return channels, nil
}

// Stream establishes an SSE connection and streams the tenant's subscribed
// channels until the client disconnects or the handler stops.
func (h *StreamHandler) Stream(c *gin.Context) {
	tenantID, ok := h.tenantID(c)
	if !ok {
		return
	}

	if h.maxClients > 0 && h.ClientCount() >= h.maxClients {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "maximum stream connections reached")
		return
	}

	channels, err := parseChannels(c.Query("channels"))
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	const messageBuffer = 100
	client := &streamClient{
		ID:       uuid.New().String(),
		TenantID: tenantID,
		Channels: channels,
		Chan:     make(chan streamMessage, messageBuffer),
		Done:     make(chan struct{}),
	}
	h.clients.Store(client.ID, client)
	defer func() {
		h.clients.Delete(client.ID)
	}()

	h.logger.Info("SSE client connected",
		zap.String("client_id", client.ID),
		zap.String("tenant_id", tenantID.String()),
		zap.Int("channels", len(channels)))

	h.writeFrame(c, streamMessage{
		Event: "connected",
		Data:  fmt.Sprintf(`{"clientId":"%s","timestamp":%d}`, client.ID, time.Now().Unix()),
	})
	c.Writer.Flush()

	reqCtx := c.Request.Context()
	for {
		select {
		case <-reqCtx.Done():
			h.logger.Debug("SSE client disconnected", zap.String("client_id", client.ID))
			return
		case <-client.Done:
			return
		case msg := <-client.Chan:
			h.writeFrame(c, msg)
			c.Writer.Flush()
		}
	}
}

func (h *StreamHandler) writeFrame(c *gin.Context, msg streamMessage) {
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", msg.Event, msg.Data)
}
