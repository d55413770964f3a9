package handlers

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/monocle-dev/pms/internal/types"
)

// boardClient serializes writes: a socket allows one concurrent writer.
type boardClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *boardClient) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

var (
	boardClients   = make(map[string]map[*boardClient]bool)
	boardClientsMu sync.RWMutex
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return types.IsAllowedOrigin(r.Header.Get("Origin"))
	},
}

func register(projectID string, client *boardClient) {
	boardClientsMu.Lock()
	defer boardClientsMu.Unlock()

	if boardClients[projectID] == nil {
		boardClients[projectID] = make(map[*boardClient]bool)
	}
	boardClients[projectID][client] = true
}

func unregister(projectID string, client *boardClient) {
	boardClientsMu.Lock()
	defer boardClientsMu.Unlock()

	if clients, exists := boardClients[projectID]; exists {
		delete(clients, client)
		if len(clients) == 0 {
			delete(boardClients, projectID)
		}
	}
}

// subscriberCount reports how many sockets watch the project board.
func subscriberCount(projectID string) int {
	boardClientsMu.RLock()
	defer boardClientsMu.RUnlock()

	return len(boardClients[projectID])
}

// BroadCastRefresh tells every subscriber of the project board to reload.
func BroadCastRefresh(projectID string) {
	boardClientsMu.RLock()
	clients := make([]*boardClient, 0, len(boardClients[projectID]))
	for client := range boardClients[projectID] {
		clients = append(clients, client)
	}
	boardClientsMu.RUnlock()

	for _, client := range clients {
		err := client.send(map[string]string{
			"type":       "refresh",
			"message":    "Project board updated",
			"project_id": projectID,
		})

		if err != nil {
			slog.Warn("failed to broadcast refresh", "project_id", projectID, "err", err)
			unregister(projectID, client)
			client.conn.Close()
		}
	}
}

// WebSocket subscribes a project member to refresh events for the project board.
func WebSocket(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	id, ok := pathID(c, "project_id")
	if !ok {
		return
	}

	if _, err := projects().Membership(c.Request.Context(), id, userID); err != nil {
		respondError(c, err)
		return
	}

	projectID := id.String()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "project_id", projectID, "err", err)
		return
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	client := &boardClient{conn: conn}
	register(projectID, client)

	defer func() {
		unregister(projectID, client)
		conn.Close()

		slog.Debug("websocket connection closed", "project_id", projectID, "user_id", userID)
	}()

	err = client.send(map[string]string{
		"type":       "connected",
		"message":    "WebSocket connection established",
		"project_id": projectID,
	})

	if err != nil {
		slog.Warn("failed to send welcome message", "project_id", projectID, "err", err)
		return
	}

	ticker := time.NewTicker(pingPeriod)
	done := make(chan struct{})
	defer func() {
		ticker.Stop()
		close(done)
	}()

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			break
		}

		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket error", "project_id", projectID, "err", err)
			}
			break
		}
	}
}
