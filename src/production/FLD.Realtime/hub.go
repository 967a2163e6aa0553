package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	logger "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Logger"
	metrics "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Metrics"
	fldmodels "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models"
)

// EventDeviceData is the only event the hub emits
const EventDeviceData = "deviceData"

// ErrHubStopped is returned when broadcasting after Run has returned
var ErrHubStopped = errors.New("realtime hub stopped")

// Envelope is the wire frame sent to every subscriber
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub maintains the set of live subscribers and fans messages out to them.
// The subscriber set is only mutated from the Run goroutine.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	count      int
	mu         sync.RWMutex
	logger     *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 8),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     log.WithComponent("realtime-hub"),
	}
}

// Run owns the subscriber set until ctx is cancelled; all remaining
// clients are closed on exit.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for client := range h.clients {
			h.drop(client)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = true
			h.setCount()
			h.logger.Logger.Info().
				Str("remote_addr", client.RemoteAddr()).
				Int("subscribers", len(h.clients)).
				Msg("Subscriber connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Logger.Info().
					Str("remote_addr", client.RemoteAddr()).
					Int("subscribers", len(h.clients)).
					Msg("Subscriber disconnected")
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.logger.Logger.Warn().
						Str("remote_addr", client.RemoteAddr()).
						Msg("Subscriber send buffer full, removing")
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.setCount()
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
	metrics.SetSubscribers(len(h.clients))
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Register adds a client; it reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast wraps data in an envelope and queues it for every subscriber
func (h *Hub) Broadcast(ctx context.Context, event string, data interface{}) error {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}
	select {
	case h.broadcast <- payload:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BroadcastDeviceData publishes one full snapshot as a deviceData event
func (h *Hub) BroadcastDeviceData(ctx context.Context, snapshots []fldmodels.DeviceSnapshot) error {
	if snapshots == nil {
		snapshots = []fldmodels.DeviceSnapshot{}
	}
	return h.Broadcast(ctx, EventDeviceData, snapshots)
}
