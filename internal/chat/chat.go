// Package chat relays a live conversation between a WebSocket client and the
// external AI service: each text frame is forwarded as a chat request and the
// service's reply is written back on the same connection.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ws "github.com/coder/websocket"

	"github.com/rbhagat/legalease/internal/rag"
)

const (
	pingInterval = 30 * time.Second
	replyTimeout = 60 * time.Second
)

type clientMessage struct {
	Message string `json:"message"`
}

// Handler upgrades the connection and runs the relay loop until the client
// disconnects.
func Handler(ragClient *rag.Client, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // served behind the same origin as the API
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.Close(ws.StatusNormalClosure, "")

		relay(r.Context(), conn, ragClient, logger)
	}
}

// relay reads client messages and answers each one in turn. A ping loop runs
// alongside to detect stale connections between messages.
func relay(ctx context.Context, conn *ws.Conn, ragClient *rag.Client, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go pingLoop(ctx, conn, cancel)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		reply := respond(ctx, ragClient, data, logger)
		if err := conn.Write(ctx, ws.MessageText, reply); err != nil {
			return
		}
	}
}

func respond(ctx context.Context, ragClient *rag.Client, data []byte, logger *slog.Logger) []byte {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil || strings.TrimSpace(msg.Message) == "" {
		return errorJSON("message is required")
	}

	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	_, body, err := ragClient.Chat(ctx, data)
	if err != nil {
		if errors.Is(err, rag.ErrUnavailable) {
			logger.Warn("ai service unavailable", "error", err)
			return errorJSON("ai service unavailable")
		}
		logger.Error("chat relay", "error", err)
		return errorJSON("internal error")
	}
	return body
}

func pingLoop(ctx context.Context, conn *ws.Conn, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.Ping(ctx); err != nil {
				cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func errorJSON(msg string) []byte {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return b
}
