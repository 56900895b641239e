package websocket

import (
	"sync"
	"time"

	"github.com/aescanero/eduvid/internal/domain"
	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// connObserver delivers status updates over one WebSocket connection
type connObserver struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newConnObserver(conn *websocket.Conn) *connObserver {
	return &connObserver{conn: conn, done: make(chan struct{})}
}

// Send writes update as a JSON text frame
func (o *connObserver) Send(update domain.StatusUpdate) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return websocket.ErrCloseSent
	}
	_ = o.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return o.conn.WriteJSON(update)
}

// Close sends a close frame and releases the connection. It is safe to call
// more than once.
func (o *connObserver) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil
	}
	o.closed = true
	close(o.done)

	_ = o.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return o.conn.Close()
}
