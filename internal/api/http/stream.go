package httpapi

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/i474232898/weather-now/internal/metrics"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// StreamHandler upgrades to a WebSocket that first replays the latest
// outcome, if any, and then relays every new outcome as JSON.
func StreamHandler(w Weather, logger *slog.Logger) func(*websocket.Conn) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "stream")

	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.StreamOpened()
		defer metrics.StreamClosed()

		remoteAddr := c.RemoteAddr().String()
		logger := logger.With("remote", remoteAddr)
		logger.Info("ws client connected")

		var mu sync.Mutex
		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
			return c.WriteMessage(websocket.TextMessage, data)
		}

		events, cancel := w.Subscribe(16)
		defer cancel()

		if out, ok := w.Latest(); ok {
			if err := writeJSON(out); err != nil {
				return
			}
		}

		// Inbound messages are ignored; reading detects the close.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-closed:
				logger.Info("ws client disconnected")
				return
			case <-ticker.C:
				mu.Lock()
				_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
				err := c.WriteMessage(websocket.PingMessage, nil)
				mu.Unlock()
				if err != nil {
					return
				}
			case out, ok := <-events:
				if !ok {
					return
				}
				if err := writeJSON(out); err != nil {
					logger.Warn("ws write failed", "error", err)
					return
				}
			}
		}
	}
}
