package api

import (
	"net/http"
	"sync"
	"time"

	"UD_contest_bot/internal/model"
	"UD_contest_bot/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	feedSendBuffer = 16
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait * 9 / 10

	MessageRegistrationCompleted = "registration_completed"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type FeedObserver interface {
	FeedClientConnected()
	FeedClientDisconnected()
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *feedClient) close() {
	c.once.Do(func() { close(c.send) })
}

// Feed streams completed registrations to connected admin dashboards.
// A client that cannot keep up misses events instead of slowing registration down.
type Feed struct {
	mu       sync.RWMutex
	clients  map[*feedClient]struct{}
	observer FeedObserver
}

func NewFeed(observer FeedObserver) *Feed {
	return &Feed{
		clients:  make(map[*feedClient]struct{}),
		observer: observer,
	}
}

func NewFeedRoutes(handler *gin.RouterGroup, feed *Feed, middlewares ...gin.HandlerFunc) {
	h := handler.Group("/feed", middlewares...)
	h.GET("/registrations", feed.handleWebSocket)
}

func (f *Feed) Publish(event model.RegistrationEvent) {
	data, err := json.Marshal(Message{Type: MessageRegistrationCompleted, Payload: event})
	if err != nil {
		logger.Logger().Error("failed to marshal feed message", zap.Error(err))
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for c := range f.clients {
		select {
		case c.send <- data:
		default:
			logger.Logger().Debug("feed client is too slow, event dropped")
		}
	}
}

func (f *Feed) Clients() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// Close disconnects every client.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		c.close()
		delete(f.clients, c)
	}
}

func (f *Feed) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Logger().Info("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &feedClient{conn: conn, send: make(chan []byte, feedSendBuffer)}
	f.register(client)

	go f.writeLoop(client)
	f.readLoop(client)
}

func (f *Feed) register(c *feedClient) {
	f.mu.Lock()
	f.clients[c] = struct{}{}
	f.mu.Unlock()
	if f.observer != nil {
		f.observer.FeedClientConnected()
	}
}

func (f *Feed) unregister(c *feedClient) {
	f.mu.Lock()
	_, ok := f.clients[c]
	delete(f.clients, c)
	f.mu.Unlock()
	c.close()
	if ok && f.observer != nil {
		f.observer.FeedClientDisconnected()
	}
}

// readLoop only watches for the client going away; clients send nothing.
func (f *Feed) readLoop(c *feedClient) {
	defer f.unregister(c)

	_ = c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Logger().Info("websocket unexpected close", zap.Error(err))
			}
			return
		}
	}
}

func (f *Feed) writeLoop(c *feedClient) {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
