// Package gateway implements the per-socket client gateway connection
// state machine: handshake, authentication, and authorized message
// dispatch, per spec.md §4.C.
package gateway

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/faltung/homed-google-bridge/internal/frame"
	"github.com/faltung/homed-google-bridge/internal/gwerr"
	"github.com/faltung/homed-google-bridge/internal/handshake"
	"github.com/faltung/homed-google-bridge/internal/streamcipher"
	"github.com/faltung/homed-google-bridge/internal/wire"
)

// State is one stage of a ClientConnection's lifecycle.
type State int

const (
	AwaitingHandshake State = iota
	AwaitingAuth
	Authorized
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitingHandshake:
		return "AWAITING_HANDSHAKE"
	case AwaitingAuth:
		return "AWAITING_AUTH"
	case Authorized:
		return "AUTHORIZED"
	case Closed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Transport is the raw byte sink a Connection writes framed bytes to.
// *net.TCPConn satisfies this; tests use an in-memory fake.
type Transport interface {
	Write(p []byte) (int, error)
	Close() error
}

// Options configures a Connection's timeouts and buffer limits, sourced
// from internal/config.
type Options struct {
	HandshakeAuthTimeout time.Duration
	MaxReceiveBuffer     int
}

// TokenEvent is emitted once per connection, right after the gateway's
// auth message is decoded, so an outer authorization service can validate
// the token and call Authorize.
type TokenEvent struct {
	UniqueID string
	Token    string
}

// StatusEvent is emitted per status/<clientId> message.
type StatusEvent struct {
	ClientID string
	Payload  wire.StatusPayload
}

// ExposeEvent is emitted per expose/<device> message.
type ExposeEvent struct {
	DeviceKey string
	Payload   wire.ExposePayload
}

// DeviceEvent is emitted per device/<device> message.
type DeviceEvent struct {
	DeviceKey string
	Payload   wire.DevicePayload
}

// ReadingEvent is emitted per fd/<device> message.
type ReadingEvent struct {
	DeviceKey string
	Payload   wire.ReadingPayload
}

// CloseEvent is emitted exactly once, when the connection terminates.
type CloseEvent struct {
	Reason string
}

// ErrorEvent is emitted for a recoverable (schema/unknown-topic) error;
// the connection is retained.
type ErrorEvent struct {
	Err error
}

// Connection is one gateway's TCP session: framing, crypto and the
// handshake/auth/authorized state machine described in spec.md §4.C.
// A Connection is owned by a single receive loop; its send path is
// guarded by mu so outbound writes from other goroutines are safe.
type Connection struct {
	opts      Options
	transport Transport
	logger    *zap.Logger

	mu       sync.Mutex
	state    State
	cipher   *streamcipher.Cipher
	recvBuf  []byte
	uniqueID string
	timer    *time.Timer

	Token      chan TokenEvent
	Status     chan StatusEvent
	Expose     chan ExposeEvent
	Device     chan DeviceEvent
	Reading    chan ReadingEvent
	Terminated chan CloseEvent
	Error      chan ErrorEvent
}

// New constructs a Connection in AwaitingHandshake and arms the
// handshake/auth deadline timer.
func New(transport Transport, opts Options, logger *zap.Logger) *Connection {
	c := &Connection{
		opts:       opts,
		transport:  transport,
		logger:     logger,
		state:      AwaitingHandshake,
		Token:      make(chan TokenEvent, 1),
		Status:     make(chan StatusEvent, 16),
		Expose:     make(chan ExposeEvent, 16),
		Device:     make(chan DeviceEvent, 16),
		Reading:    make(chan ReadingEvent, 64),
		Terminated: make(chan CloseEvent, 1),
		Error:      make(chan ErrorEvent, 16),
	}
	c.timer = time.AfterFunc(opts.HandshakeAuthTimeout, c.onTimeout)
	return c
}

// Authorized reports whether the connection has completed authentication.
func (c *Connection) Authorized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Authorized
}

// UniqueID returns the gateway's advertised identifier, set once the auth
// message is decoded (which may be before Authorize is called).
func (c *Connection) UniqueID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uniqueID
}

func (c *Connection) onTimeout() {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()

	if state == Authorized || state == Closed {
		return
	}
	reason := "authorization timeout"
	if state == AwaitingHandshake {
		reason = "handshake timeout"
	}
	c.terminate(reason)
}

// Feed appends newly-arrived bytes and drives the state machine forward.
// It must only be called from the connection's single receive loop.
func (c *Connection) Feed(data []byte) {
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return
	}

	if len(c.recvBuf)+len(data) > c.opts.MaxReceiveBuffer {
		c.mu.Unlock()
		c.terminate("receive buffer overflow")
		return
	}
	c.recvBuf = append(c.recvBuf, data...)
	c.mu.Unlock()

	c.pump()
}

// Authorize transitions the connection to Authorized and cancels the
// handshake/auth deadline, then drains any buffered bytes that arrived
// while authorization was pending. The connection itself records no user
// identity; the caller keeps the user it resolved from the token.
func (c *Connection) Authorize() {
	c.mu.Lock()
	c.state = Authorized
	c.timer.Stop()
	c.mu.Unlock()

	c.pump()
}

// pump drives the state machine as far forward as the current buffer
// allows, re-entering itself after a handshake completes so a bundled
// auth frame in the same read is processed without waiting on more bytes.
func (c *Connection) pump() {
	for {
		c.mu.Lock()
		state := c.state
		c.mu.Unlock()

		switch state {
		case AwaitingHandshake:
			if !c.tryHandshake() {
				return
			}
		case AwaitingAuth:
			// Once the auth message has been taken, later bytes stay
			// buffered until Authorize() drains them.
			c.mu.Lock()
			authTaken := c.uniqueID != ""
			c.mu.Unlock()
			if authTaken || !c.tryAuth() {
				return
			}
			return // remain in AwaitingAuth until Authorize() is called
		case Authorized:
			if !c.tryDispatchOne() {
				return
			}
		default:
			return
		}
	}
}

// respondToPreamble computes the server side of the DH exchange; tests
// replace it to pin the server secret.
var respondToPreamble = handshake.Respond

func (c *Connection) tryHandshake() bool {
	c.mu.Lock()
	if len(c.recvBuf) < handshake.PreambleLen {
		c.mu.Unlock()
		return false
	}
	raw := c.recvBuf[:handshake.PreambleLen]
	c.recvBuf = c.recvBuf[handshake.PreambleLen:]
	c.mu.Unlock()

	preamble, err := handshake.ParsePreamble(raw)
	if err != nil {
		c.fail(gwerr.New(gwerr.Protocol, err))
		return false
	}
	exch, err := respondToPreamble(preamble)
	if err != nil {
		c.fail(gwerr.New(gwerr.Crypto, err))
		return false
	}
	cipher, err := streamcipher.NewFromSharedSecret(handshake.SharedSecretBytes(exch.Shared))
	if err != nil {
		c.fail(gwerr.New(gwerr.Crypto, err))
		return false
	}

	if _, err := c.transport.Write(handshake.EncodeServerPublic(exch.ServerPublic)); err != nil {
		c.fail(gwerr.New(gwerr.Crypto, err))
		return false
	}

	c.mu.Lock()
	c.cipher = cipher
	c.state = AwaitingAuth
	c.mu.Unlock()
	return true
}

func (c *Connection) tryAuth() bool {
	plaintext, hadFrame, fatal := c.decryptNextFrame()
	if fatal {
		return false
	}
	if !hadFrame {
		return false
	}

	var auth wire.AuthMessage
	if err := json.Unmarshal(plaintext, &auth); err != nil {
		c.fail(gwerr.New(gwerr.Protocol, err))
		return false
	}

	c.mu.Lock()
	c.uniqueID = auth.UniqueID
	c.mu.Unlock()

	c.Token <- TokenEvent{UniqueID: auth.UniqueID, Token: auth.Token}
	return true
}

func (c *Connection) tryDispatchOne() bool {
	plaintext, hadFrame, fatal := c.decryptNextFrame()
	if fatal || !hadFrame {
		return false
	}

	var msg wire.ClientMessage
	if err := json.Unmarshal(plaintext, &msg); err != nil {
		c.fail(gwerr.New(gwerr.Protocol, err))
		return false
	}

	if err := c.dispatch(msg); err != nil {
		c.reportRecoverable(err)
	}
	return true
}

func (c *Connection) dispatch(msg wire.ClientMessage) error {
	switch {
	case strings.HasPrefix(msg.Topic, "status/"):
		clientID := strings.TrimPrefix(msg.Topic, "status/")
		var payload wire.StatusPayload
		if err := json.Unmarshal(msg.Message, &payload); err != nil {
			return gwerr.New(gwerr.Schema, err)
		}
		c.Status <- StatusEvent{ClientID: clientID, Payload: payload}

	case strings.HasPrefix(msg.Topic, "expose/"):
		deviceKey := strings.TrimPrefix(msg.Topic, "expose/")
		var payload wire.ExposePayload
		if err := json.Unmarshal(msg.Message, &payload); err != nil {
			return gwerr.New(gwerr.Schema, err)
		}
		c.Expose <- ExposeEvent{DeviceKey: deviceKey, Payload: payload}

	case strings.HasPrefix(msg.Topic, "device/"):
		deviceKey := strings.TrimPrefix(msg.Topic, "device/")
		var payload wire.DevicePayload
		if err := json.Unmarshal(msg.Message, &payload); err != nil {
			return gwerr.New(gwerr.Schema, err)
		}
		c.Device <- DeviceEvent{DeviceKey: deviceKey, Payload: payload}

	case strings.HasPrefix(msg.Topic, "fd/"):
		deviceKey := strings.TrimPrefix(msg.Topic, "fd/")
		var payload wire.ReadingPayload
		if err := json.Unmarshal(msg.Message, &payload); err != nil {
			return gwerr.New(gwerr.Schema, err)
		}
		c.Reading <- ReadingEvent{DeviceKey: deviceKey, Payload: payload}

	default:
		return gwerr.Newf(gwerr.UnknownTopic, "topic %q", msg.Topic)
	}
	return nil
}

// decryptNextFrame pulls at most one complete frame off recvBuf and
// returns its decrypted payload. fatal is true if a framing or crypto
// error closed the connection.
func (c *Connection) decryptNextFrame() (plaintext []byte, hadFrame bool, fatal bool) {
	c.mu.Lock()
	packet, remainder, ok, err := frame.Read(c.recvBuf)
	if err != nil {
		c.mu.Unlock()
		c.fail(gwerr.New(gwerr.Framing, err))
		return nil, false, true
	}
	if !ok {
		c.mu.Unlock()
		return nil, false, false
	}
	c.recvBuf = remainder
	cipher := c.cipher
	c.mu.Unlock()

	unescaped, err := frame.Unescape(packet)
	if err != nil {
		c.fail(gwerr.New(gwerr.Framing, err))
		return nil, false, true
	}
	plain, err := cipher.Decrypt(unescaped)
	if err != nil {
		c.fail(gwerr.New(gwerr.Crypto, err))
		return nil, false, true
	}
	return plain, true, false
}

// Subscribe sends `{action: "subscribe", topic}` framed and encrypted.
func (c *Connection) Subscribe(topic string) error {
	return c.send(wire.NewSubscribe(topic))
}

// Command derives "command/<transport-prefix>" from deviceID (everything
// up to its last '/') and sends `{action, device: <last segment>,
// service: "cloud"}` on that topic. action is typically a
// traits.Message produced by a trait handler's MapCommand.
func (c *Connection) Command(action interface{}, deviceID string) error {
	prefix := deviceID
	last := deviceID
	if idx := strings.LastIndexByte(deviceID, '/'); idx >= 0 {
		prefix = deviceID[:idx]
		last = deviceID[idx+1:]
	}
	topic := "command/" + prefix
	return c.send(wire.NewPublish(topic, wire.CommandMessage{Action: action, Device: last, Service: "cloud"}))
}

func (c *Connection) send(msg wire.ServerMessage) error {
	c.mu.Lock()
	cipher := c.cipher
	c.mu.Unlock()

	if cipher == nil {
		panic("gateway: send before cipher initialization")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ciphertext := cipher.Encrypt(payload)
	framed := append([]byte{frame.Start}, frame.Escape(ciphertext)...)
	framed = append(framed, frame.End)

	c.mu.Lock()
	_, err = c.transport.Write(framed)
	c.mu.Unlock()
	return err
}

func (c *Connection) fail(err *gwerr.Error) {
	if c.logger != nil {
		c.logger.Warn("gateway connection fatal error", zap.String("kind", err.Kind.String()), zap.Error(err))
	}
	c.terminate(err.Error())
}

func (c *Connection) reportRecoverable(err error) {
	if c.logger != nil {
		c.logger.Info("gateway connection recoverable error", zap.Error(err))
	}
	select {
	case c.Error <- ErrorEvent{Err: err}:
	default:
	}
}

func (c *Connection) terminate(reason string) {
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return
	}
	c.state = Closed
	c.timer.Stop()
	c.mu.Unlock()

	c.transport.Close()
	c.Terminated <- CloseEvent{Reason: reason}
}
