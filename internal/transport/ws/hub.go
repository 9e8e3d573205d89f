package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

// MsgError is sent to a client whose request could not be served
const MsgError MessageType = "error"

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub fans program events out to operator dashboards and to participants'
// own sessions
type Hub struct {
	operatorConns    map[*Connection]bool
	participantConns map[string]map[*Connection]bool // participantID -> conns

	mu sync.RWMutex

	// Channels for coordination
	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// Connection represents a WebSocket connection
type Connection struct {
	ParticipantID string // Empty for operator connections
	IsOperator    bool
	Send          chan []byte
	Hub           *Hub
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	ToOperators   bool
	ParticipantID string
	Message       *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		operatorConns:    make(map[*Connection]bool),
		participantConns: make(map[string]map[*Connection]bool),
		register:         make(chan *Connection),
		unregister:       make(chan *Connection),
		broadcast:        make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if conn.IsOperator {
				h.operatorConns[conn] = true
				log.Printf("Operator connected (%d open)", len(h.operatorConns))
			} else {
				if h.participantConns[conn.ParticipantID] == nil {
					h.participantConns[conn.ParticipantID] = make(map[*Connection]bool)
				}
				h.participantConns[conn.ParticipantID][conn] = true
				log.Printf("Participant %s connected", conn.ParticipantID)
			}
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if conn.IsOperator {
				if h.operatorConns[conn] {
					delete(h.operatorConns, conn)
					close(conn.Send)
					log.Printf("Operator disconnected")
				}
			} else if conns, ok := h.participantConns[conn.ParticipantID]; ok && conns[conn] {
				delete(conns, conn)
				if len(conns) == 0 {
					delete(h.participantConns, conn.ParticipantID)
				}
				close(conn.Send)
				log.Printf("Participant %s disconnected", conn.ParticipantID)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Message)

			targets := h.operatorConns
			if !msg.ToOperators {
				targets = h.participantConns[msg.ParticipantID]
			}
			for conn := range targets {
				select {
				case conn.Send <- data:
				default:
					// Drop message if buffer full
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// BroadcastToOperators sends a message to every operator (implements service.Broadcaster)
func (h *Hub) BroadcastToOperators(msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		ToOperators: true,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}

// BroadcastToParticipant sends a message to every session of one participant (implements service.Broadcaster)
func (h *Hub) BroadcastToParticipant(participantID, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		ParticipantID: participantID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}
