package network

import (
	"fmt"
	"sync"

	"github.com/pompin/gameserver/pkg/game/types"
	"github.com/pompin/gameserver/pkg/log"
	"github.com/pompin/gameserver/pkg/queue"
	"nhooyr.io/websocket"
)

const (
	// ClientIDMaxRetries represents the maximum number of retries when generating a unique ID
	ClientIDMaxRetries = 1024
)

// Client represents a connected client
type Client struct {
	ID   uint32
	Conn *websocket.Conn
	// Info is the identity established at login. Zero value for guests.
	Info types.PlayerInfo
}

// ClientManager manages connected clients and reports connection lifecycle
// events to the game layer through its event queue.
type ClientManager struct {
	clients     map[uint32]*Client
	clientsLock sync.RWMutex
	nextID      uint32
	eventQueue  queue.Queue
}

// NewClientManager creates a new ClientManager
func NewClientManager(eventQueue queue.Queue) *ClientManager {
	return &ClientManager{
		clients:    make(map[uint32]*Client),
		nextID:     1,
		eventQueue: eventQueue,
	}
}

// ConnectClient adds a new client and returns its ID
func (cm *ClientManager) ConnectClient(conn *websocket.Conn) (uint32, error) {
	cm.clientsLock.Lock()
	clientID, err := cm.generateUniqueID(ClientIDMaxRetries)
	if err != nil {
		cm.clientsLock.Unlock()
		return 0, fmt.Errorf("failed to generate a unique ID: %v", err)
	}
	cm.clients[clientID] = &Client{
		ID:   clientID,
		Conn: conn,
	}
	cm.clientsLock.Unlock()

	if err := cm.eventQueue.Enqueue(types.ClientConnectedEvent{ClientID: clientID}); err != nil {
		log.Error("Failed to enqueue connect event for client %d: %v", clientID, err)
	}
	return clientID, nil
}

// DisconnectClient removes a client from the manager.
func (cm *ClientManager) DisconnectClient(clientID uint32) {
	cm.clientsLock.Lock()
	_, exists := cm.clients[clientID]
	delete(cm.clients, clientID)
	cm.clientsLock.Unlock()

	if !exists {
		return
	}
	if err := cm.eventQueue.Enqueue(types.ClientDisconnectedEvent{ClientID: clientID}); err != nil {
		log.Error("Failed to enqueue disconnect event for client %d: %v", clientID, err)
	}
}

// SetIdentity records the identity a client established at login.
func (cm *ClientManager) SetIdentity(clientID uint32, info types.PlayerInfo) {
	cm.clientsLock.Lock()
	defer cm.clientsLock.Unlock()
	if client, ok := cm.clients[clientID]; ok {
		client.Info = info
	}
}

// Identity returns the client's login identity. The zero value with ok=true
// means the client is connected but playing as a guest.
func (cm *ClientManager) Identity(clientID uint32) (types.PlayerInfo, bool) {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	client, ok := cm.clients[clientID]
	if !ok {
		return types.PlayerInfo{}, false
	}
	return client.Info, true
}

// GetClientByID retrieves a client by its ID
func (cm *ClientManager) GetClientByID(clientID uint32) (*Client, bool) {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	client, ok := cm.clients[clientID]
	return client, ok
}

func (cm *ClientManager) Exists(clientID uint32) bool {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	_, ok := cm.clients[clientID]
	return ok
}

// generateUniqueID generates a unique client ID with a maximum number of retries.
// It reads from the clients map, so the lock must be held.
func (cm *ClientManager) generateUniqueID(maxRetries int) (uint32, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		id := cm.nextID
		cm.nextID++
		if id == 0 {
			continue
		}
		if _, ok := cm.clients[id]; !ok {
			return id, nil
		}
	}

	return 0, fmt.Errorf("failed to generate a unique ID after %d attempts", maxRetries)
}
