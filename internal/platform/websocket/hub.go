// Package websocket pushes portal state changes to connected browsers. The
// header greeting and the protected pages follow the session topic; the
// submissions topic carries the terminal outcome of every form so a second
// tab can refresh its prompts.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/consultacerta/portal/internal/platform/workflow"
	"github.com/consultacerta/portal/internal/session"
)

const (
	TopicSession     = "session"
	TopicSubmissions = "submissions"
)

// Event is a notification sent to WebSocket clients.
type Event struct {
	Type      string          `json:"type"`
	Topic     string          `json:"topic"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ClientMessage is an inbound message from a WebSocket client.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// EventPublisher publishes events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client is a single WebSocket connection.
type Client struct {
	ID     string
	Topics []string
	Send   chan []byte
	hub    *Hub
	conn   Conn
}

// Hub tracks clients and their topic subscriptions.
type Hub struct {
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // topic -> set of clients
	all     map[*Client]struct{}
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:  logger.With().Str("component", "websocket").Logger(),
		now:     time.Now,
		clients: make(map[string]map[*Client]struct{}),
		all:     make(map[*Client]struct{}),
	}
}

// Register adds a client and subscribes it to its initial topics.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.all[client] = struct{}{}
	for _, topic := range client.Topics {
		h.addLocked(topic, client)
	}
}

// Unregister removes a client from every topic and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	for _, topic := range client.Topics {
		h.removeLocked(topic, client)
	}
	delete(h.all, client)
	close(client.Send)
}

func (h *Hub) Subscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, topic := range topics {
		if _, ok := h.clients[topic][client]; ok {
			continue
		}
		h.addLocked(topic, client)
		client.Topics = append(client.Topics, topic)
	}
}

func (h *Hub) Unsubscribe(client *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	removeSet := make(map[string]struct{}, len(topics))
	for _, t := range topics {
		removeSet[t] = struct{}{}
		h.removeLocked(t, client)
	}

	remaining := make([]string, 0, len(client.Topics))
	for _, t := range client.Topics {
		if _, rm := removeSet[t]; !rm {
			remaining = append(remaining, t)
		}
	}
	client.Topics = remaining
}

func (h *Hub) addLocked(topic string, client *Client) {
	if h.clients[topic] == nil {
		h.clients[topic] = make(map[*Client]struct{})
	}
	h.clients[topic][client] = struct{}{}
}

func (h *Hub) removeLocked(topic string, client *Client) {
	if subscribers, ok := h.clients[topic]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.clients, topic)
		}
	}
}

// ProcessMessage dispatches an inbound message to Subscribe or Unsubscribe.
func (h *Hub) ProcessMessage(client *Client, msg ClientMessage) {
	switch msg.Action {
	case "subscribe":
		h.Subscribe(client, msg.Topics)
	case "unsubscribe":
		h.Unsubscribe(client, msg.Topics)
	default:
		h.logger.Debug().Str("client", client.ID).Str("action", msg.Action).Msg("unknown client action")
	}
}

// Broadcast sends event to every client subscribed to topic. Clients with a
// full buffer miss the event.
func (h *Hub) Broadcast(topic string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[topic] {
		h.deliver(client, data)
	}
}

// BroadcastAll sends event to every connected client regardless of topic.
func (h *Hub) BroadcastAll(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.all {
		h.deliver(client, data)
	}
}

func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.logger.Warn().Str("client", client.ID).Msg("client buffer full, event dropped")
	}
}

// Publish broadcasts event to subscribers of its topic.
func (h *Hub) Publish(_ context.Context, event Event) error {
	h.Broadcast(event.Topic, event)
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// sessionEvent renders a session change. The session payload is null when
// nobody is signed in.
func (h *Hub) sessionEvent(e session.Event) (Event, error) {
	data, err := json.Marshal(e.Session)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:      "session." + string(e.Kind),
		Topic:     TopicSession,
		Timestamp: h.now(),
		Data:      data,
	}, nil
}

// WatchSession relays every change of store to the session topic. The
// returned func stops relaying.
func (h *Hub) WatchSession(store *session.Store) func() {
	return store.Subscribe(func(e session.Event) {
		ev, err := h.sessionEvent(e)
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to encode session event")
			return
		}
		h.Broadcast(TopicSession, ev)
	})
}

type submissionPayload struct {
	Workflow string         `json:"workflow"`
	State    workflow.State `json:"state"`
}

// Observer relays terminal submission outcomes to the submissions topic.
func (h *Hub) Observer() workflow.Observer {
	return func(name string, state workflow.State) {
		data, err := json.Marshal(submissionPayload{Workflow: name, State: state})
		if err != nil {
			h.logger.Error().Err(err).Msg("failed to encode submission event")
			return
		}
		h.Broadcast(TopicSubmissions, Event{
			Type:      "submission." + string(state),
			Topic:     TopicSubmissions,
			Timestamp: h.now(),
			Data:      data,
		})
	}
}

// ---------------------------------------------------------------------------
// WebSocketHandler
// ---------------------------------------------------------------------------

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler upgrades connections and routes client messages.
type WebSocketHandler struct {
	hub      *Hub
	sessions *session.Store
}

// NewWebSocketHandler binds the handler to hub. When sessions is non-nil a
// client subscribed to the session topic receives the current session
// right after connecting.
func NewWebSocketHandler(hub *Hub, sessions *session.Store) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, sessions: sessions}
}

func (wsh *WebSocketHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", wsh.HandleConnect)
}

// initialTopics reads ?topics=a,b and defaults to the session topic.
func initialTopics(c echo.Context) []string {
	raw := strings.TrimSpace(c.QueryParam("topics"))
	if raw == "" {
		return []string{TopicSession}
	}
	var topics []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

// HandleConnect upgrades the request, registers the client and starts its
// read and write pumps.
func (wsh *WebSocketHandler) HandleConnect(c echo.Context) error {
	topics := initialTopics(c)
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:     uuid.New().String(),
		Topics: topics,
		Send:   make(chan []byte, 256),
		hub:    wsh.hub,
		conn:   &gorillaConnAdapter{ws},
	}

	wsh.hub.Register(client)
	wsh.hub.logger.Debug().Str("client", client.ID).Strs("topics", topics).Msg("client connected")
	wsh.greet(client)

	go wsh.writePump(client)
	go wsh.readPump(client)

	return nil
}

// greet queues the current session for a new session subscriber.
func (wsh *WebSocketHandler) greet(client *Client) {
	if wsh.sessions == nil {
		return
	}
	subscribed := false
	for _, t := range client.Topics {
		if t == TopicSession {
			subscribed = true
			break
		}
	}
	if !subscribed {
		return
	}

	e := session.Event{Kind: session.EventRestore}
	if sess, ok := wsh.sessions.Current(); ok {
		e.Session = &sess
	}
	ev, err := wsh.hub.sessionEvent(e)
	if err != nil {
		return
	}
	if data, err := json.Marshal(ev); err == nil {
		wsh.hub.deliver(client, data)
	}
}

func (wsh *WebSocketHandler) readPump(client *Client) {
	defer func() {
		wsh.hub.Unregister(client)
		client.conn.Close()
	}()

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		wsh.hub.ProcessMessage(client, msg)
	}
}

func (wsh *WebSocketHandler) writePump(client *Client) {
	defer client.conn.Close()

	for message := range client.Send {
		if err := client.conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy Conn.
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}
