// This code is in Public Domain. Take all the code you want, I'll just write more.
package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// wsHub pushes webhook events to connected browsers so thread and board
// pages update without polling. Clients only listen; anything they send is
// discarded.
type wsHub struct {
	log        *logrus.Logger
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan []byte
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

const (
	wsWriteWait      = 10 * time.Second
	wsSendQueueSize  = 16
	wsReadLimitBytes = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func newWsHub(log *logrus.Logger) *wsHub {
	return &wsHub{
		log:        log,
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan []byte, 64),
	}
}

func (h *wsHub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.send)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow client, drop it
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Broadcast queues msg for every connected client.
func (h *wsHub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Info("websocket broadcast queue full, dropping message")
	}
}

// url: /ws
func (s *Server) handleWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Infof("websocket upgrade failed: %s", err)
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, wsSendQueueSize)}
	s.hub.register <- c
	go c.writeLoop()
	go c.readLoop(s.hub)
}

func (c *wsClient) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readLoop drains the connection so pings and close frames are handled;
// client messages are ignored.
func (c *wsClient) readLoop(h *wsHub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(wsReadLimitBytes)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
