package prefsync

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"vibecheck/internal/pkg/errs"
	"vibecheck/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	maxMessageSize = 4096

	sendBuffer = 64
)

// MessageType tags live-channel messages.
type MessageType string

const (
	// Inbound.
	TypeSet               MessageType = "SET"
	TypeAddRestriction    MessageType = "ADD_RESTRICTION"
	TypeRemoveRestriction MessageType = "REMOVE_RESTRICTION"
	TypePatch             MessageType = "PATCH"
	TypeFlush             MessageType = "FLUSH"

	// Outbound.
	TypeSnapshot MessageType = "SNAPSHOT"
	TypeError    MessageType = "ERROR"
)

type inboundMessage struct {
	Type  MessageType `json:"type"`
	Field string      `json:"field,omitempty"`
	Value int         `json:"value,omitempty"`
	Tag   string      `json:"tag,omitempty"`
	Patch *Patch      `json:"patch,omitempty"`
}

type outboundMessage struct {
	Type    MessageType `json:"type"`
	Payload any         `json:"payload"`
}

type errorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Client is one WebSocket connection editing a Synchronizer. Every snapshot change is pushed
// back to the browser.
type Client struct {
	conn *websocket.Conn
	sync *Synchronizer

	// a buffered channel used to queue messages waiting to be sent to the client.
	send chan []byte

	// closed once ReadPump has returned.
	done chan struct{}

	unsubscribe func()
	logger      zerolog.Logger
}

// NewClient binds conn to s.
func NewClient(conn *websocket.Conn, s *Synchronizer, subject string) *Client {
	c := &Client{
		conn:   conn,
		sync:   s,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		logger: logx.Component("prefsync_client").With().Str("subject", logx.MaskSubject(subject)).Logger(),
	}
	c.unsubscribe = s.Subscribe(c.pushSnapshot)
	return c
}

// ReadPump applies inbound edits until the connection closes. It must run on the handler
// goroutine; it returns once the peer is gone.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.pushSnapshot(c.sync.Snapshot())

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.processInboundMessage(messageBytes)
	}
}

func (c *Client) cleanupOnDisconnect() {
	c.unsubscribe()
	close(c.done)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

func (c *Client) processInboundMessage(messageBytes []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(messageBytes, &msg); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	var err error
	switch msg.Type {
	case TypeSet:
		err = c.sync.Set(Field(msg.Field), msg.Value)
	case TypeAddRestriction:
		err = c.sync.AddRestriction(msg.Tag)
	case TypeRemoveRestriction:
		err = c.sync.RemoveRestriction(msg.Tag)
	case TypePatch:
		if msg.Patch == nil {
			err = errs.NewError(errs.ErrInvalidParams)
		} else {
			err = c.sync.Apply(*msg.Patch)
		}
	case TypeFlush:
		ctx, cancel := context.WithTimeout(context.Background(), evictFlushTimeout)
		var failure *WriteFailure
		if flushErr := c.sync.Flush(ctx); flushErr != nil && !errors.As(flushErr, &failure) {
			err = flushErr
		}
		cancel()
	default:
		c.logger.Warn().Str("msg_type", string(msg.Type)).Msg("Client sent unsupported message type")
		err = errs.NewError(errs.ErrInvalidParams)
	}

	if err != nil {
		c.SendError(err)
	}
}

// WritePump drains the send queue and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message := <-c.send:
			if !c.write(websocket.TextMessage, message) {
				return
			}

		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}

		case <-c.done:
			c.write(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(messageType, data); err != nil {
		c.logger.Debug().Err(err).Int("message_type", messageType).Msg("Error writing message")
		return false
	}

	return true
}

func (c *Client) pushSnapshot(snap Snapshot) {
	c.enqueue(outboundMessage{Type: TypeSnapshot, Payload: snap})
}

// SendError queues an ERROR message carrying the business code of err.
func (c *Client) SendError(err error) {
	customErr := AsCustomError(err)
	c.enqueue(outboundMessage{
		Type:    TypeError,
		Payload: errorPayload{Code: customErr.Code, Message: customErr.Message},
	})
}

func (c *Client) enqueue(msg outboundMessage) {
	messageBytes, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error().Err(err).Msg("Error marshaling message for client")
		return
	}

	select {
	case <-c.done:
	case c.send <- messageBytes:
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping message")
	}
}

// AsCustomError maps synchronizer errors to business errors. Anything unrecognized is ErrUnknown.
func AsCustomError(err error) *errs.CustomError {
	var (
		customErr *errs.CustomError
		fieldErr  *UnknownFieldError
	)
	switch {
	case errors.As(err, &customErr):
		return customErr
	case errors.Is(err, ErrNotLoaded):
		return errs.NewError(errs.ErrPreferencesNotLoaded)
	case errors.Is(err, ErrOutOfRange):
		return errs.NewError(errs.ErrPreferenceOutOfRange)
	case errors.As(err, &fieldErr):
		return errs.NewError(errs.ErrPreferenceUnknownField, fieldErr.Field)
	case errors.Is(err, ErrNoCredential):
		return errs.NewError(errs.ErrUnauthorized)
	case errors.Is(err, ErrInvalidRestriction), errors.Is(err, ErrClosed):
		return errs.NewError(errs.ErrInvalidParams)
	default:
		return errs.NewError(errs.ErrUnknown, err)
	}
}
