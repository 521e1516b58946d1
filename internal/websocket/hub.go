package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vrsandeep/intake-go/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is a single status subscriber. Its key is empty until the
// handshake frame arrives.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	kind models.ChannelKind
	key  string
}

type envelope struct {
	kind models.ChannelKind
	key  string
	data []byte
}

type subscription struct {
	client *Client
	key    string
}

type direct struct {
	client *Client
	data   []byte
}

type countQuery struct {
	kind  models.ChannelKind
	key   string
	reply chan int
}

// Hub routes published status payloads to the clients subscribed to the
// matching (kind, key).
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscription
	direct     chan direct
	broadcast  chan envelope
	count      chan countQuery
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscription),
		direct:     make(chan direct),
		broadcast:  make(chan envelope, 256),
		count:      make(chan countQuery),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			h.drop(client)
		case s := <-h.subscribe:
			if h.clients[s.client] {
				s.client.key = s.key
			}
		case d := <-h.direct:
			if h.clients[d.client] {
				h.deliver(d.client, d.data)
			}
		case e := <-h.broadcast:
			for client := range h.clients {
				if client.kind == e.kind && client.key == e.key {
					h.deliver(client, e.data)
				}
			}
		case q := <-h.count:
			n := 0
			for client := range h.clients {
				if client.kind == q.kind && (q.key == "" || client.key == q.key) {
					n++
				}
			}
			q.reply <- n
		}
	}
}

// deliver queues data for client, dropping clients that can't keep up.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		log.Printf("Dropping slow %s subscriber %q", client.kind, client.key)
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// Publish sends payload as JSON to every client subscribed to (kind, key).
func (h *Hub) Publish(kind models.ChannelKind, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	h.broadcast <- envelope{kind: kind, key: key, data: data}
	return nil
}

// Subscribers counts the clients of kind subscribed to key. An empty key
// counts every client of the kind, including those still handshaking.
func (h *Hub) Subscribers(kind models.ChannelKind, key string) int {
	reply := make(chan int, 1)
	h.count <- countQuery{kind: kind, key: key, reply: reply}
	return <-reply
}

// ServeWs upgrades the request into a subscriber of kind.
func (h *Hub) ServeWs(kind models.ChannelKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println(err)
			return
		}
		client := &Client{hub: h, conn: conn, send: make(chan []byte, 256), kind: kind}
		h.register <- client

		go client.writePump()
		go client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket %s error: %v", c.kind, err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var hs models.Handshake
		if err := json.Unmarshal(message, &hs); err != nil {
			log.Printf("websocket %s: ignoring frame %q: %v", c.kind, message, err)
			continue
		}
		if c.kind == models.ChannelNotification && hs.UserID == models.PingUserID {
			c.hub.direct <- direct{client: c, data: []byte(models.PongFrame)}
			continue
		}
		if key := hs.Key(c.kind); key != "" {
			c.hub.subscribe <- subscription{client: c, key: key}
		}
	}
}

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
