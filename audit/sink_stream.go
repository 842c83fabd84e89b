package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	streamClientBuffer = 64
	streamWriteWait    = 10 * time.Second
)

// StreamHub is a sink that pushes audit records to live websocket
// subscribers. Slow subscribers miss records rather than stall the hub.
type StreamHub struct {
	upgrader websocket.Upgrader
	clients  map[*streamClient]struct{}
	mu       sync.RWMutex
	logger   *zap.Logger
}

type streamClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewStreamHub(logger *zap.Logger) *StreamHub {
	return &StreamHub{
		clients: make(map[*streamClient]struct{}),
		logger:  logger,
	}
}

func (h *StreamHub) Name() string {
	return "stream"
}

func (h *StreamHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

func (h *StreamHub) Write(_ context.Context, record AuditRecord) error {
	message, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			h.logger.Warn("Dropping audit record for slow stream subscriber", zap.String("transaction-id", record.TransactionID))
		}
	}

	return nil
}

// ServeHTTP upgrades the connection and streams records until the
// subscriber disconnects.
func (h *StreamHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade audit stream connection", zap.Error(err))

		return
	}

	// Admin server timeouts would otherwise apply to the hijacked connection.
	conn.SetReadDeadline(time.Time{})

	client := &streamClient{
		conn: conn,
		send: make(chan []byte, streamClientBuffer),
	}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	h.logger.Info("Audit stream subscriber connected", zap.String("remote-addr", r.RemoteAddr))

	go h.writePump(client)

	h.readPump(client)
}

// readPump discards inbound messages and unregisters the client once the
// connection fails or closes.
func (h *StreamHub) readPump(client *streamClient) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()

		close(client.send)
		client.conn.Close()

		h.logger.Info("Audit stream subscriber disconnected")
	}()

	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHub) writePump(client *streamClient) {
	for message := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))

		if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			client.conn.Close()

			return
		}
	}

	client.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
