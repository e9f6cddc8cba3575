package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"hnscan-clone/internal/models"

	"github.com/gorilla/websocket"
)

// Hub fans indexed-chain events out to connected WebSocket clients.
// Slow clients are dropped rather than allowed to stall a broadcast.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mutex      sync.Mutex
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub builds a hub and starts its dispatch loop.
func NewHub() *Hub {
	h := &Hub{
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// BroadcastMessage is the wire frame pushed to /ws clients.
type BroadcastMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// BroadcastBlock pushes a freshly indexed block to every client.
func (h *Hub) BroadcastBlock(block models.Block) {
	data, _ := json.Marshal(BroadcastMessage{Type: "block", Data: block})
	h.broadcast <- data
}

// BroadcastTxs pushes a block's transactions, one frame per tx.
func (h *Hub) BroadcastTxs(txs []models.Tx) {
	for _, tx := range txs {
		data, _ := json.Marshal(BroadcastMessage{Type: "tx", Data: tx})
		h.broadcast <- data
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[api] websocket upgrade error:", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	s.hub.register <- client

	go func() {
		defer func() {
			s.hub.unregister <- client
			conn.Close()
		}()
		for {
			message, ok := <-client.send
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			w.Close()
		}
	}()

	// Inbound frames are ignored; the read loop only notices the
	// connection going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// handleStatusWebSocket pushes the node status on a fixed interval so
// a frontend header stays current without polling /status.
func (s *Server) handleStatusWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[api] status websocket upgrade error:", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		payload := []byte(`{"status":"error"}`)
		if view, err := s.engine.GetStatus(r.Context()); err == nil {
			if data, err := json.Marshal(view); err == nil {
				payload = data
			}
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
		<-ticker.C
	}
}
