// Package preview streams presented frames to browsers over websockets.
//
// Each frame is one binary message: width and height as little-endian
// uint16, followed by the RGB565 pixels as little-endian uint16 in row-major
// order.
package preview

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Faultbox/voxelray/internal/engine/framebuffer"
	"github.com/Faultbox/voxelray/internal/logger"
)

// HeaderSize is the length of the frame header in bytes.
const HeaderSize = 4

const (
	writeTimeout = 200 * time.Millisecond
	clientQueue  = 2
)

// ErrShortFrame is returned by DecodeFrame for truncated messages.
var ErrShortFrame = errors.New("short preview frame")

// EncodeFrame serialises fb into a preview message.
func EncodeFrame(fb *framebuffer.Framebuffer) []byte {
	out := make([]byte, HeaderSize+len(fb.Pix)*2)
	binary.LittleEndian.PutUint16(out[0:], uint16(fb.Width()))
	binary.LittleEndian.PutUint16(out[2:], uint16(fb.Height()))
	for i, c := range fb.Pix {
		binary.LittleEndian.PutUint16(out[HeaderSize+2*i:], c)
	}
	return out
}

// DecodeFrame parses a preview message.
func DecodeFrame(msg []byte) (*framebuffer.Framebuffer, error) {
	if len(msg) < HeaderSize {
		return nil, ErrShortFrame
	}
	w := int(binary.LittleEndian.Uint16(msg[0:]))
	h := int(binary.LittleEndian.Uint16(msg[2:]))
	if len(msg) != HeaderSize+w*h*2 {
		return nil, fmt.Errorf("%w: %dx%d needs %d bytes, got %d", ErrShortFrame, w, h, HeaderSize+w*h*2, len(msg))
	}
	fb := framebuffer.New(w, h)
	for i := range fb.Pix {
		fb.Pix[i] = binary.LittleEndian.Uint16(msg[HeaderSize+2*i:])
	}
	return fb, nil
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans frames out to connected clients. Slow clients drop frames rather
// than stall the display.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}

	upgrader websocket.Upgrader
	frames   atomic.Uint64
	dropped  atomic.Uint64
	started  time.Time
	log      *zap.Logger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[*client]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		started:  time.Now(),
		log:      logger.Named("preview"),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Present implements device.Presenter.
func (h *Hub) Present(front *framebuffer.Framebuffer) error {
	h.frames.Add(1)

	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return nil
	}

	msg := EncodeFrame(front)
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.dropped.Add(1)
		}
	}
	return nil
}

// HandleFrames upgrades the request and streams frames until the client
// goes away.
func (h *Hub) HandleFrames(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, clientQueue)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.log.Info("client connected", zap.String("remote", r.RemoteAddr))

	done := make(chan struct{})
	go h.writeLoop(c, done)

	// Drain reads so close frames are processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(done)
	conn.Close()
	h.log.Info("client disconnected", zap.String("remote", r.RemoteAddr))
}

func (h *Hub) writeLoop(c *client, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				h.log.Debug("write frame", zap.Error(err))
				c.conn.Close()
				return
			}
		}
	}
}

// HandleHealth reports counters as JSON.
func (h *Hub) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"frames":   h.frames.Load(),
		"dropped":  h.dropped.Load(),
		"clients":  h.Clients(),
		"uptime_s": time.Since(h.started).Seconds(),
	})
}

// Handler returns the HTTP routes: /frames (websocket) and /health.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/frames", h.HandleFrames)
	mux.HandleFunc("/health", h.HandleHealth)
	return mux
}

// Serve listens on addr until ctx is done.
func (h *Hub) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("preview listen: %w", err)
	}
	srv := &http.Server{Handler: h.Handler(), ReadHeaderTimeout: 5 * time.Second}
	h.log.Info("preview server listening", zap.String("addr", ln.Addr().String()))

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
		return ctx.Err()
	case err := <-errc:
		return err
	}
}
