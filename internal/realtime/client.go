package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/classpoll/backend/internal/models"
	"github.com/classpoll/backend/internal/session"
)

const (
	pingInterval   = 30 * time.Second
	pongWait       = 60 * time.Second
	writeWait      = 10 * time.Second
	maxMessageSize = 65536
	sendBufferSize = 256

	// Time limit applied when a create-poll request omits the field,
	// matching what classroom clients historically expect.
	defaultTimeLimitSeconds = 60
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // allow all origins in dev; restrict in production
	},
}

// Client is one WebSocket connection. Its id doubles as the opaque
// participant identity inside the session.
type Client struct {
	id        string
	hub       *Hub
	coord     *session.Coordinator
	conn      *websocket.Conn
	send      chan WSMessage
	closeOnce sync.Once
	logger    *zap.Logger
}

// ServeWs handles the WebSocket upgrade and runs the client loop.
func ServeWs(hub *Hub, coord *session.Coordinator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			id:     uuid.NewString(),
			hub:    hub,
			coord:  coord,
			conn:   conn,
			send:   make(chan WSMessage, sendBufferSize),
			logger: logger,
		}
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// enqueue queues a message for delivery, dropping it if the client's
// buffer is full. Callers hold the hub lock, so a closed send channel
// is never reachable here.
func (c *Client) enqueue(msg WSMessage) {
	select {
	case c.send <- msg:
	default:
		// buffer full, skip
	}
}

// closeSend closes the send channel exactly once. The write pump drains
// whatever is still buffered, then closes the connection.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.coord.Leave(c.id)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.dispatch(msg)
	}
}

// dispatch decodes one inbound event and calls into the Coordinator.
// Request errors are delivered only to this connection, never broadcast.
func (c *Client) dispatch(msg WSMessage) {
	switch msg.Event {
	case session.EventJoin:
		var p JoinPayload
		if err := decode(msg.Data, &p); err != nil {
			c.sendError("malformed join payload")
			return
		}
		if p.Role == string(models.RoleTeacher) && p.DisplayName == "" {
			p.DisplayName = "Teacher"
		}
		if _, err := c.coord.Join(c.id, p.DisplayName, models.Role(p.Role)); err != nil {
			c.sendError(err.Error())
		}

	case session.EventCreatePoll:
		var p CreatePollPayload
		if err := decode(msg.Data, &p); err != nil {
			c.sendError("malformed create-poll payload")
			return
		}
		if p.TimeLimitSeconds == 0 {
			p.TimeLimitSeconds = defaultTimeLimitSeconds
		}
		_, err := c.coord.CreatePoll(c.id, session.CreatePollRequest{
			Question:         p.Question,
			Options:          p.Options,
			CorrectIndices:   p.CorrectIndices,
			TimeLimitSeconds: p.TimeLimitSeconds,
		})
		if err != nil {
			c.sendError(err.Error())
		}

	case session.EventSubmitAnswer:
		var p SubmitAnswerPayload
		if err := decode(msg.Data, &p); err != nil || p.OptionIndex == nil {
			c.sendError("malformed submit-answer payload")
			return
		}
		if _, err := c.coord.SubmitAnswer(c.id, *p.OptionIndex); err != nil {
			c.sendError(err.Error())
		}

	case session.EventSendMessage:
		var p SendMessagePayload
		if err := decode(msg.Data, &p); err != nil {
			c.sendError("malformed send-message payload")
			return
		}
		if _, err := c.coord.PostMessage(c.id, p.Body); err != nil {
			c.sendError(err.Error())
		}

	case session.EventKick:
		var p KickPayload
		if err := decode(msg.Data, &p); err != nil || p.TargetIdentity == "" {
			c.sendError("malformed kick payload")
			return
		}
		if err := c.coord.Kick(c.id, p.TargetIdentity); err != nil {
			c.sendError(err.Error())
		}

	case session.EventGetHistory:
		c.coord.SendHistory(c.id)

	default:
		// ignore
	}
}

func (c *Client) sendError(message string) {
	c.hub.SendTo(c.id, session.EventError, message)
}

var errMissingPayload = errors.New("missing payload")

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return errMissingPayload
	}
	return json.Unmarshal(data, v)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
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
