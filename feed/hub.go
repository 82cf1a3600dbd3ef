package feed

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Message is the envelope pushed to subscribers. Type is the derived-slice
// name (course, environment, zones, phase).
type Message struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans derived-state updates out to websocket subscribers. It
// implements the store's Publisher interface, so attaching it to the store
// is all the wiring the UI side needs.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run owns the client map; register, unregister and broadcast all go
// through its loop.
func (h *Hub) Run() {
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()

	for {
		select {
		case <-h.done:
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			log.Infof("Feed subscriber %s connected (%d total)", client.id, len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				log.Infof("Feed subscriber %s disconnected (%d total)", client.id, len(h.clients))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// subscriber too slow, drop it
					delete(h.clients, client)
					close(client.send)
				}
			}

		case <-ping.C:
			for client := range h.clients {
				select {
				case client.ping <- struct{}{}:
				default:
				}
			}
		}
	}
}

// Shutdown stops the run loop and disconnects every subscriber.
func (h *Hub) Shutdown() {
	close(h.done)
}

// registerClient parks a new subscriber with the run loop, or refuses it
// when the hub has already shut down.
func (h *Hub) registerClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish implements the store's Publisher: one envelope per derived slice.
func (h *Hub) Publish(slice string, payload interface{}) {
	msg := Message{
		Type:      slice,
		Timestamp: time.Now(),
		Data:      payload,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		log.WithError(err).Errorf("Error marshalling %s feed message", slice)
		return
	}
	select {
	case h.broadcast <- b:
	default:
		log.Warn("Feed broadcast buffer full, dropping update")
	}
}

// ServeWS upgrades an HTTP request into a feed subscription.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Error("Error upgrading feed subscriber")
		return
	}

	client := newClient(h, conn)
	if !h.registerClient(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
