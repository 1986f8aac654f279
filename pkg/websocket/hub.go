package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub держит подключённых наблюдателей и рассылает им события планирования.
type Hub struct {
	clients     map[*Client]bool
	userClients map[string][]*Client
	broadcast   chan []byte
	register    chan *Client
	unregister  chan *Client
	done        chan struct{}
	mu          sync.RWMutex
	logger      *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[*Client]bool),
		userClients: make(map[string][]*Client),
		broadcast:   make(chan []byte, 64),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		logger:      logger,
	}
}

// Run обслуживает регистрацию и рассылку до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.userClients[client.userID] = append(h.userClients[client.userID], client)
			h.mu.Unlock()
			h.logger.Debug("WebSocket: клиент зарегистрирован", zap.String("userID", client.userID))
		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Медленный клиент отключается, а не тормозит остальных.
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Add регистрирует клиента; false, если хаб уже остановлен.
func (h *Hub) Add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)

	clients := h.userClients[client.userID]
	for i, c := range clients {
		if c == client {
			h.userClients[client.userID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(h.userClients[client.userID]) == 0 {
		delete(h.userClients, client.userID)
	}
	h.logger.Debug("WebSocket: клиент отсоединён", zap.String("userID", client.userID))
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.removeLocked(client)
	}
}

// ClientCount - число активных соединений.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encode(payload interface{}, messageType string) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:      messageType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
}

// Broadcast ставит сообщение в очередь рассылки всем клиентам.
// При переполненной очереди сообщение отбрасывается.
func (h *Hub) Broadcast(payload interface{}, messageType string) error {
	messageBytes, err := encode(payload, messageType)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- messageBytes:
	default:
		h.logger.Warn("WebSocket: очередь рассылки переполнена, сообщение отброшено",
			zap.String("type", messageType))
	}
	return nil
}

// SendMessageToUser отправляет уведомление всем соединениям пользователя.
func (h *Hub) SendMessageToUser(userID string, payload interface{}, messageType string) error {
	messageBytes, err := encode(payload, messageType)
	if err != nil {
		h.logger.Error("Ошибка сериализации сообщения для WebSocket", zap.Error(err))
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.userClients[userID] {
		select {
		case client.send <- messageBytes:
		default:
		}
	}
	return nil
}
