package chorus

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketClient owns one socket's lifecycle: connect with credential,
// keepalive pings, an ordered receive loop, and exactly-once disconnect
// notification. State transitions happen only inside Connect and the
// disconnect paths, always under the client's mutex.
type WebSocketClient struct {
	endpoint          string
	provider          CredentialProvider
	keepaliveInterval time.Duration
	debug             bool
	logger            *Logger

	mu                 sync.Mutex
	conn               *websocket.Conn
	state              ConnectionState
	cancel             context.CancelFunc
	notified           bool
	nextHandlerID      int
	frameHandlers      []frameHandlerEntry
	errorHandlers      []errorHandlerEntry
	disconnectHandlers []disconnectHandlerEntry

	writeMu sync.Mutex
	// lastPong is read by the keepalive loop only; writes come from the
	// pong handler on the read goroutine.
	pongMu   sync.Mutex
	lastPong time.Time
}

type frameHandlerEntry struct {
	id int
	fn FrameHandler
}

type errorHandlerEntry struct {
	id int
	fn ErrorHandler
}

type disconnectHandlerEntry struct {
	id int
	fn DisconnectHandler
}

func NewWebSocketClient(endpoint string, provider CredentialProvider, keepalive time.Duration, debug bool) *WebSocketClient {
	if keepalive <= 0 {
		keepalive = defaultKeepaliveInterval
	}
	return &WebSocketClient{
		endpoint:          endpoint,
		provider:          provider,
		keepaliveInterval: keepalive,
		debug:             debug,
		state:             Disconnected,
		logger:            GetGlobalLogger().WithComponent("websocket"),
	}
}

// Connect resolves the current credential, appends it to the connection
// string and dials. Calling Connect while connecting or connected is a
// warn-level no-op.
func (wsc *WebSocketClient) Connect(ctx context.Context) error {
	wsc.mu.Lock()
	if wsc.state == Connected || wsc.state == Connecting {
		wsc.logger.Warn("connect ignored: already connected or connecting")
		wsc.mu.Unlock()
		return nil
	}
	wsc.state = Connecting
	wsc.mu.Unlock()

	cred, err := wsc.provider.Credential(ctx)
	if err != nil {
		wsc.setDisconnected()
		return WrapError(err, ErrCodeAuthFailed)
	}

	dialURL, cerr := wsc.connectionURL(cred)
	if cerr != nil {
		wsc.setDisconnected()
		return cerr
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, dialURL, nil)
	if err != nil {
		wsc.setDisconnected()
		cerr := WrapError(err, ErrCodeNoConnection)
		wsc.logger.LogError(cerr)
		return cerr
	}

	loopCtx, cancel := context.WithCancel(context.Background())

	wsc.mu.Lock()
	wsc.conn = conn
	wsc.cancel = cancel
	wsc.state = Connected
	wsc.notified = false
	wsc.mu.Unlock()

	wsc.pongMu.Lock()
	wsc.lastPong = time.Now()
	wsc.pongMu.Unlock()
	conn.SetPongHandler(func(string) error {
		wsc.pongMu.Lock()
		wsc.lastPong = time.Now()
		wsc.pongMu.Unlock()
		return nil
	})

	wsc.logger.LogConnectionEvent("connected", Connected, map[string]interface{}{
		"endpoint": wsc.endpoint,
	})

	go wsc.receiveLoop(loopCtx, conn)
	go wsc.keepaliveLoop(loopCtx, conn)
	return nil
}

func (wsc *WebSocketClient) connectionURL(cred AuthMethod) (string, *Error) {
	u, err := url.Parse(wsc.endpoint)
	if err != nil {
		return "", NewConfigError(fmt.Sprintf("invalid WebSocket endpoint: %v", err))
	}
	q := u.Query()
	name, value := cred.QueryParam()
	q.Set(name, value)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (wsc *WebSocketClient) setDisconnected() {
	wsc.mu.Lock()
	wsc.state = Disconnected
	wsc.mu.Unlock()
}

// receiveLoop blocks on inbound frames and fans them out to handlers in
// registration order. Frames are delivered in arrival order; any receive
// error tears the connection down with that error as the reason.
func (wsc *WebSocketClient) receiveLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			// An explicit Disconnect closed the socket under us; it owns
			// the disconnect notification, nothing to do here.
			if ctx.Err() != nil {
				return
			}
			reason := WrapError(err, ErrCodeWSDisconnected)
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				reason = WrapError(err, ErrCodeWSProtocol)
			}
			wsc.teardown(reason)
			return
		}

		var frame Frame
		switch messageType {
		case websocket.TextMessage:
			frame = Frame{Kind: TextFrame, Text: string(data)}
		case websocket.BinaryMessage:
			frame = Frame{Kind: BinaryFrame, Binary: data}
		default:
			continue
		}

		if wsc.debug {
			wsc.logger.WithField("bytes", len(data)).Debug("frame received")
		}

		wsc.mu.Lock()
		handlers := make([]frameHandlerEntry, len(wsc.frameHandlers))
		copy(handlers, wsc.frameHandlers)
		wsc.mu.Unlock()

		for _, h := range handlers {
			h.fn(frame)
		}
	}
}

// keepaliveLoop sends a transport-level ping at a fixed cadence. A missed
// pong is logged, not fatal; the dead connection will surface as a receive
// error.
func (wsc *WebSocketClient) keepaliveLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsc.keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				wsc.logger.WithError(err).Warn("keepalive ping failed")
				continue
			}
			wsc.pongMu.Lock()
			silent := time.Since(wsc.lastPong)
			wsc.pongMu.Unlock()
			if silent > 2*wsc.keepaliveInterval {
				wsc.logger.WithField("silent_for", silent.String()).Warn("no pong received")
			}
		}
	}
}

// Send writes a frame. Only valid while connected.
func (wsc *WebSocketClient) Send(frame Frame) error {
	wsc.mu.Lock()
	conn := wsc.conn
	state := wsc.state
	wsc.mu.Unlock()

	if state != Connected || conn == nil {
		return NewDisconnectedError("send while not connected")
	}

	messageType := websocket.TextMessage
	data := []byte(frame.Text)
	if frame.Kind == BinaryFrame {
		messageType = websocket.BinaryMessage
		data = frame.Binary
	}

	if wsc.debug {
		wsc.logger.WithField("bytes", len(data)).Debug("frame sent")
	}

	wsc.writeMu.Lock()
	err := conn.WriteMessage(messageType, data)
	wsc.writeMu.Unlock()
	if err != nil {
		return WrapError(err, ErrCodeWSSendFailed)
	}
	return nil
}

// SendText writes a text frame.
func (wsc *WebSocketClient) SendText(text string) error {
	return wsc.Send(Frame{Kind: TextFrame, Text: text})
}

// Disconnect cancels both loops, closes the socket and notifies disconnect
// handlers with no reason. Calling it while not connected is a no-op.
func (wsc *WebSocketClient) Disconnect() {
	wsc.mu.Lock()
	if wsc.state != Connected {
		wsc.logger.Warn("disconnect ignored: not connected")
		wsc.mu.Unlock()
		return
	}
	wsc.state = Disconnecting
	conn := wsc.conn
	cancel := wsc.cancel
	wsc.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client disconnect"), deadline)
		conn.Close()
	}

	wsc.finishDisconnect(nil)
}

// teardown handles a connection lost to a receive error: error handlers
// first, then the shared disconnect path with the reason.
func (wsc *WebSocketClient) teardown(reason *Error) {
	wsc.mu.Lock()
	if wsc.state != Connected {
		wsc.mu.Unlock()
		return
	}
	wsc.state = Disconnecting
	conn := wsc.conn
	cancel := wsc.cancel
	errorHandlers := make([]errorHandlerEntry, len(wsc.errorHandlers))
	copy(errorHandlers, wsc.errorHandlers)
	wsc.mu.Unlock()

	wsc.logger.LogError(reason)
	for _, h := range errorHandlers {
		h.fn(reason)
	}

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}

	wsc.finishDisconnect(reason)
}

// finishDisconnect fires disconnect handlers exactly once per lifecycle,
// whatever the cause, then settles state to Disconnected. Handlers run
// while the state is still Disconnecting so that an observer seeing
// Disconnected knows notification already happened.
func (wsc *WebSocketClient) finishDisconnect(reason *Error) {
	wsc.mu.Lock()
	wsc.conn = nil
	wsc.cancel = nil
	alreadyNotified := wsc.notified
	wsc.notified = true
	handlers := make([]disconnectHandlerEntry, len(wsc.disconnectHandlers))
	copy(handlers, wsc.disconnectHandlers)
	wsc.mu.Unlock()

	if !alreadyNotified {
		for _, h := range handlers {
			h.fn(reason)
		}
	}

	// A disconnect handler may have reconnected; only settle to
	// Disconnected when this lifecycle still owns the transition.
	wsc.mu.Lock()
	settled := wsc.state == Disconnecting
	if settled {
		wsc.state = Disconnected
	}
	wsc.mu.Unlock()

	if settled {
		wsc.logger.LogConnectionEvent("disconnected", Disconnected, nil)
	}
}

// AddFrameHandler registers a handler for inbound frames. Handlers run
// synchronously on the receive loop in registration order. The returned
// function unregisters the handler.
func (wsc *WebSocketClient) AddFrameHandler(handler FrameHandler) func() {
	wsc.mu.Lock()
	id := wsc.nextHandlerID
	wsc.nextHandlerID++
	wsc.frameHandlers = append(wsc.frameHandlers, frameHandlerEntry{id: id, fn: handler})
	wsc.mu.Unlock()

	return func() {
		wsc.mu.Lock()
		for i, h := range wsc.frameHandlers {
			if h.id == id {
				wsc.frameHandlers = append(wsc.frameHandlers[:i], wsc.frameHandlers[i+1:]...)
				break
			}
		}
		wsc.mu.Unlock()
	}
}

// AddErrorHandler registers a handler for receive errors.
func (wsc *WebSocketClient) AddErrorHandler(handler ErrorHandler) func() {
	wsc.mu.Lock()
	id := wsc.nextHandlerID
	wsc.nextHandlerID++
	wsc.errorHandlers = append(wsc.errorHandlers, errorHandlerEntry{id: id, fn: handler})
	wsc.mu.Unlock()

	return func() {
		wsc.mu.Lock()
		for i, h := range wsc.errorHandlers {
			if h.id == id {
				wsc.errorHandlers = append(wsc.errorHandlers[:i], wsc.errorHandlers[i+1:]...)
				break
			}
		}
		wsc.mu.Unlock()
	}
}

// AddDisconnectHandler registers a handler invoked once per disconnect,
// with the reason when the connection was lost and nil for a local close.
func (wsc *WebSocketClient) AddDisconnectHandler(handler DisconnectHandler) func() {
	wsc.mu.Lock()
	id := wsc.nextHandlerID
	wsc.nextHandlerID++
	wsc.disconnectHandlers = append(wsc.disconnectHandlers, disconnectHandlerEntry{id: id, fn: handler})
	wsc.mu.Unlock()

	return func() {
		wsc.mu.Lock()
		for i, h := range wsc.disconnectHandlers {
			if h.id == id {
				wsc.disconnectHandlers = append(wsc.disconnectHandlers[:i], wsc.disconnectHandlers[i+1:]...)
				break
			}
		}
		wsc.mu.Unlock()
	}
}

// State returns the current connection state.
func (wsc *WebSocketClient) State() ConnectionState {
	wsc.mu.Lock()
	defer wsc.mu.Unlock()
	return wsc.state
}

// IsConnected reports whether the connection is usable for Send.
func (wsc *WebSocketClient) IsConnected() bool {
	return wsc.State() == Connected
}
