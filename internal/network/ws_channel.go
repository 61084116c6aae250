package network

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/annel0/bricklayer/internal/logging"
)

// wsConn один бинарный кадр WebSocket на сообщение
type wsConn struct {
	ws          *websocket.Conn
	idleTimeout time.Duration
}

func newWSConn(ws *websocket.Conn, idleTimeout time.Duration) *wsConn {
	ws.SetReadLimit(MaxFrameSize)
	return &wsConn{ws: ws, idleTimeout: idleTimeout}
}

func (w *wsConn) ReadFrame() ([]byte, error) {
	for {
		if w.idleTimeout > 0 {
			_ = w.ws.SetReadDeadline(time.Now().Add(w.idleTimeout))
		}
		kind, payload, err := w.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.BinaryMessage {
			return payload, nil
		}
		// текстовые кадры не входят в протокол
	}
}

// WriteFrame вызывается только из sendLoop, поэтому запись не конкурирует
func (w *wsConn) WriteFrame(frame []byte, timeout time.Duration) error {
	if timeout > 0 {
		_ = w.ws.SetWriteDeadline(time.Now().Add(timeout))
	}
	return w.ws.WriteMessage(websocket.BinaryMessage, frame)
}

func (w *wsConn) Close() error {
	_ = w.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return w.ws.Close()
}

func (w *wsConn) RemoteAddr() string {
	return w.ws.RemoteAddr().String()
}

// WSHandler принимает WebSocket соединения и публикует их события в Inbox
type WSHandler struct {
	inbox    *Inbox
	opts     Options
	upgrader websocket.Upgrader
	logger   *logging.Logger
}

// NewWSHandler создаёт HTTP обработчик для подключения клиентов
func NewWSHandler(inbox *Inbox, opts Options) *WSHandler {
	return &WSHandler{
		inbox: inbox,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logging.GetNetworkLogger(),
	}
}

// ServeHTTP реализует http.Handler
func (h *WSHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		h.logger.Warn("upgrade error from %s: %v", r.RemoteAddr, err)
		return
	}

	c := newConn(newWSConn(ws, h.opts.IdleTimeout), ChannelWebSocket, h.opts)
	h.logger.Debug("WebSocket connection from %s: id=%s", ws.RemoteAddr(), c.id)
	c.start(h.inbox, false)
}

// DialWS подключается к WebSocket серверу (url вида ws://host:port/ws)
func DialWS(ctx context.Context, url string, inbox *Inbox, opts Options) (Channel, error) {
	d := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	ws, _, err := d.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	c := newConn(newWSConn(ws, opts.IdleTimeout), ChannelWebSocket, opts)
	c.start(inbox, true)
	return c, nil
}
