package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

type Entity string

const (
	EntityAccount Entity = "account"
	EntityCard    Entity = "card"
	EntityLoan    Entity = "loan"
)

// BalanceUpdate is pushed to an owner's sockets after a committed balance
// change. Available is set for cards only; for loans Balance is the
// outstanding amount.
type BalanceUpdate struct {
	Entity    Entity `json:"entity"`
	ID        string `json:"id"`
	Balance   string `json:"balance"`
	Available string `json:"available,omitempty"`
	Status    string `json:"status,omitempty"`
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(ownerID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[ownerID] == nil {
		h.clients[ownerID] = make(map[*Client]struct{})
	}
	h.clients[ownerID][client] = struct{}{}
}

func (h *Hub) Unregister(ownerID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[ownerID] == nil {
		return
	}
	delete(h.clients[ownerID], client)
	if len(h.clients[ownerID]) == 0 {
		delete(h.clients, ownerID)
	}
}

// Connections reports how many sockets the owner has open.
func (h *Hub) Connections(ownerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[ownerID])
}

// BroadcastBalance never blocks: a client whose buffer is full misses the
// update.
func (h *Hub) BroadcastBalance(ownerID string, update BalanceUpdate) {
	payload, err := json.Marshal(update)
	if err != nil {
		h.logger.Error("encode balance update", "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[ownerID] {
		select {
		case client.send <- payload:
		default:
			h.logger.Warn("dropping balance update for slow client", "owner_id", ownerID, "entity", update.Entity, "id", update.ID)
		}
	}
}
