package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"CoinScout/internal/domain/models"
	drepo "CoinScout/internal/domain/repository"
	"CoinScout/internal/handler/api"
	"CoinScout/internal/service/metrics"
	applogger "CoinScout/pkg/logger"
)

const (
	MessageTypePortfolio = "portfolio"
	MessageTypeError     = "error"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Message is the server push envelope.
type Message struct {
	Type       string         `json:"type"`
	Data       []api.CardView `json:"data"`
	LastUpdate time.Time      `json:"lastUpdate"`
	Synthetic  bool           `json:"synthetic"`
	CycleID    string         `json:"cycleId,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Hub keeps the connected clients and fans portfolio updates out to them.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	snapshot   func() models.RankedPortfolio
	l          *applogger.Logger

	mu      sync.RWMutex
	running bool
	done    chan struct{}
}

// Client is one WebSocket connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string

	closeOnce sync.Once
}

// NewHub creates a hub. snapshot supplies the portfolio sent to newly connected clients.
func NewHub(snapshot func() models.RankedPortfolio, l *applogger.Logger) *Hub {
	metrics.Register()
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 8),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		snapshot:   snapshot,
		l:          l,
		done:       make(chan struct{}),
	}
}

// Run serves register, unregister and broadcast requests until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				c.close()
				delete(h.clients, c)
			}
			metrics.WSClients.Set(0)
			h.mu.Lock()
			h.running = false
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			metrics.WSClients.Set(float64(len(h.clients)))
			h.l.Debug("ws client connected", applogger.String("client_id", c.id))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.close()
				metrics.WSClients.Set(float64(len(h.clients)))
				h.l.Debug("ws client disconnected", applogger.String("client_id", c.id))
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
					metrics.WSBroadcasts.WithLabelValues("ok").Inc()
				default:
					// slow consumer
					delete(h.clients, c)
					c.close()
					metrics.WSBroadcasts.WithLabelValues("dropped").Inc()
				}
			}
			metrics.WSClients.Set(float64(len(h.clients)))
		}
	}
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} { return h.done }

// OnPortfolio pushes every completed cycle to all clients.
func (h *Hub) OnPortfolio(_ context.Context, p models.RankedPortfolio, report models.CycleReport, err error) {
	msg := NewPortfolioMessage(p)
	if err != nil {
		msg.Type = MessageTypeError
		msg.Error = err.Error()
		msg.CycleID = report.ID
	}
	data, merr := json.Marshal(msg)
	if merr != nil {
		h.l.Error("ws marshal", applogger.Error(merr))
		return
	}
	if !h.isRunning() {
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// NewPortfolioMessage renders a portfolio as a push envelope.
func NewPortfolioMessage(p models.RankedPortfolio) Message {
	return Message{
		Type:       MessageTypePortfolio,
		Data:       api.NewCards(p.Coins, p),
		LastUpdate: p.LastUpdate,
		Synthetic:  p.Synthetic,
		CycleID:    p.CycleID,
	}
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.ServeWS)
}

// ServeWS upgrades the request and sends the current snapshot first.
func (h *Hub) ServeWS(c echo.Context) error {
	if !h.isRunning() {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "websocket hub is not running")
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("ws upgrade failed", applogger.Error(err))
		return nil
	}

	client := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), id: uuid.NewString()}
	if h.snapshot != nil {
		if data, err := json.Marshal(NewPortfolioMessage(h.snapshot())); err == nil {
			client.send <- data
		}
	}

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()
	return nil
}

func (h *Hub) isRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// readPump discards client input and detects disconnects.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.l.Debug("ws read error", applogger.String("client_id", c.id), applogger.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var _ drepo.PortfolioObserver = (*Hub)(nil)
