package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/inconshreveable/log15"

	"github.com/arcadelab/fruitbot-server/game/service"
	"github.com/arcadelab/fruitbot-server/game/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Client events are tiny.
	maxMessageSize = 512

	// Outbound buffer per connection. A consumer that falls this many frames
	// behind is dropped rather than allowed to stall the tick loop.
	sendBufferSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		return true
	},
}

// ConnectionResolver maps a logical player to their bound connection IDs. The
// session registry implements it.
type ConnectionResolver interface {
	ConnectionsFor(userID string) []string
}

// Client represents one WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string
}

// Hub maintains the set of active connections and fans frames out to them.
// It implements session.Publisher.
type Hub struct {
	mu      sync.Mutex
	clients map[string]*Client

	resolver ConnectionResolver
	svc      service.GameService
	log      log15.Logger
}

// NewHub creates a new WebSocket hub. The service is attached afterwards via
// SetService, since the service needs the hub as its publisher.
func NewHub(resolver ConnectionResolver, log log15.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		resolver: resolver,
		log:      log,
	}
}

// SetService attaches the game service that inbound events dispatch to.
func (h *Hub) SetService(svc service.GameService) {
	h.svc = svc
}

// ServeWS handles WebSocket requests from clients. Each connection gets a
// fresh ID and a connection_confirmed event carrying it.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		id:   uuid.NewString(),
	}

	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()
	h.log.Info("client connected", "conn", client.id, "total", total)

	client.enqueue(OutboundMessage{
		Event: EventConnectionConfirmed,
		Data:  connectedPayload{ConnectionID: client.id},
	})

	go client.writePump()
	go client.readPump()
}

// Publish fans one step result out to every connection bound to the player.
// Sends are independent and non-blocking; a connection with a full buffer is
// dropped so one slow tab cannot stall the others or the tick loop.
func (h *Hub) Publish(userID string, result *session.StepResult) {
	event := EventFrame
	if result.EpisodeFinished {
		event = EventEpisodeFinished
	}
	data, err := json.Marshal(OutboundMessage{Event: event, Data: result})
	if err != nil {
		h.log.Error("failed to marshal frame", "user", userID, "err", err)
		return
	}

	for _, connID := range h.resolver.ConnectionsFor(userID) {
		h.mu.Lock()
		client, ok := h.clients[connID]
		if !ok {
			h.mu.Unlock()
			continue
		}
		select {
		case client.send <- data:
			h.mu.Unlock()
		default:
			h.removeLocked(client)
			h.mu.Unlock()
			h.log.Warn("dropping slow client", "conn", connID, "user", userID)
		}
	}
}

// Evict closes the given connections. Used when a game start takes over a
// player and their stale tabs must go.
func (h *Hub) Evict(connIDs []string) {
	for _, id := range connIDs {
		h.mu.Lock()
		client, ok := h.clients[id]
		if ok {
			h.removeLocked(client)
		}
		h.mu.Unlock()
		if ok {
			h.log.Info("evicted connection", "conn", id)
		}
	}
}

// ClientCount reports the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// removeLocked drops a client from the map and closes its send channel, which
// makes writePump send a close frame and tear the connection down. Caller
// holds h.mu; the channel is closed at most once because the map entry goes
// with it.
func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client.id]; !ok {
		return
	}
	delete(h.clients, client.id)
	close(client.send)
}

// unregister removes the client and informs the service, which unbinds the
// connection and retires the player's session if this was their last one.
func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	h.removeLocked(client)
	total := len(h.clients)
	h.mu.Unlock()

	if h.svc != nil {
		h.svc.Disconnect(context.Background(), client.id)
	}
	h.log.Info("client disconnected", "conn", client.id, "total", total)
}

// dispatch routes one inbound event to the game service. Failures go back to
// the offending connection as error events; they never close it.
func (h *Hub) dispatch(client *Client, msg InboundMessage) {
	ctx := context.Background()

	switch msg.Event {
	case EventStartGame:
		var p startGamePayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			client.sendError("malformed start_game payload")
			return
		}
		res, err := h.svc.StartGame(ctx, client.id, p.PlayerName)
		if err != nil {
			client.sendError(err.Error())
			return
		}
		h.Evict(res.Evicted)
		client.enqueue(OutboundMessage{Event: EventGameUpdate, Data: res.Update})

	case EventKeyDown:
		var p keyPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			client.sendError("malformed key_down payload")
			return
		}
		if err := h.svc.KeyDown(ctx, client.id, p.Key); err != nil {
			client.sendError(err.Error())
		}

	case EventKeyUp:
		var p keyPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			client.sendError("malformed key_up payload")
			return
		}
		if err := h.svc.KeyUp(ctx, client.id, p.Key); err != nil {
			client.sendError(err.Error())
		}

	case EventSendAction:
		var p actionPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			client.sendError("malformed send_action payload")
			return
		}
		if _, err := h.svc.SendAction(ctx, client.id, p.Action); err != nil {
			client.sendError(err.Error())
		}

	case EventNextEpisode:
		if _, err := h.svc.NextEpisode(ctx, client.id); err != nil {
			client.sendError(err.Error())
		}

	case EventActivateGame:
		if err := h.svc.ActivateGame(ctx, client.id); err != nil {
			client.sendError(err.Error())
		}

	default:
		client.sendError("unknown event: " + msg.Event)
	}
}

// enqueue marshals and queues an outbound message for this connection only.
func (c *Client) enqueue(msg OutboundMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.log.Error("failed to marshal message", "conn", c.id, "err", err)
		return
	}
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if _, ok := c.hub.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		c.hub.removeLocked(c)
	}
}

func (c *Client) sendError(text string) {
	c.enqueue(OutboundMessage{Event: EventError, Data: errorPayload{Error: text}})
}

// readPump pumps events from the WebSocket connection to the game service.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("websocket read error", "conn", c.id, "err", err)
			}
			break
		}

		var msg InboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.sendError("malformed message")
			continue
		}
		c.hub.dispatch(c, msg)
	}
}

// writePump pumps queued messages to the WebSocket connection. One queued
// message per WebSocket frame, so clients always receive whole JSON events.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub dropped this client
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
