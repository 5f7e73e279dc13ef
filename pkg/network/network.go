package network

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	authproviders "github.com/pompin/gameserver/pkg/auth/providers"
	"github.com/pompin/gameserver/pkg/game/types"
	"github.com/pompin/gameserver/pkg/log"
	"github.com/pompin/gameserver/pkg/messages"
	"github.com/pompin/gameserver/pkg/queue"
	"nhooyr.io/websocket"
)

const writeTimeout = 5 * time.Second

// NetworkManager owns the websocket surface: it accepts connections, stamps
// every inbound message with the server-assigned client ID, verifies logins
// and enqueues everything else for the game layer. It is also the Messenger
// the game layer sends through.
type NetworkManager struct {
	AuthProvider  authproviders.AuthProvider
	ClientManager *ClientManager
	MessageQueue  queue.Queue
	WSServer      *WSServer
}

type NewNetworkManagerOptions struct {
	AuthProvider  authproviders.AuthProvider
	ClientManager *ClientManager
	MessageQueue  queue.Queue
	WSPort        int
	WSServerTLS   *TLSConfig
}

func NewNetworkManager(options NewNetworkManagerOptions) *NetworkManager {
	return &NetworkManager{
		AuthProvider:  options.AuthProvider,
		ClientManager: options.ClientManager,
		MessageQueue:  options.MessageQueue,
		WSServer: NewWSServer(NewWSServerOptions{
			Port: options.WSPort,
			TLS:  options.WSServerTLS,
		}),
	}
}

func (n *NetworkManager) Start(ctx context.Context) {
	go n.WSServer.Start(ctx, n.handleConnection)
}

// handleConnection owns one client connection from accept to close.
func (n *NetworkManager) handleConnection(ctx context.Context, conn *websocket.Conn) {
	clientID, err := n.ClientManager.ConnectClient(conn)
	if err != nil {
		log.Error("Failed to connect client: %v", err)
		conn.Close(websocket.StatusInternalError, "server error")
		return
	}
	log.Info("Client %d connected", clientID)

	defer func() {
		n.ClientManager.DisconnectClient(clientID)
		conn.Close(websocket.StatusNormalClosure, "")
		log.Info("Client %d disconnected", clientID)
	}()

	for {
		message, err := ReadMessageFromWS(ctx, conn)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				log.Debug("Error reading from client %d: %v", clientID, err)
			}
			return
		}
		// The wire value is never trusted.
		message.ClientID = clientID
		n.handleMessage(ctx, clientID, message)
	}
}

func (n *NetworkManager) handleMessage(ctx context.Context, clientID uint32, message *messages.Message) {
	switch message.Type {
	case messages.MessageTypeClientLogin:
		if err := n.handleClientLogin(ctx, clientID, message); err != nil {
			log.Error("Failed to handle client login: %v", err)
			n.sendServerLoginFailure(clientID, err.Error())
		}
	default:
		if err := n.MessageQueue.Enqueue(message); err != nil {
			log.Error("Failed to enqueue message from client %d: %v", clientID, err)
		}
	}
}

// handleClientLogin verifies the presented token and attaches the resulting
// identity to the connection. Clients that never log in play as guests.
func (n *NetworkManager) handleClientLogin(ctx context.Context, clientID uint32, message *messages.Message) error {
	clientLogin := &messages.ClientLogin{}
	if err := json.Unmarshal(message.Payload, clientLogin); err != nil {
		return fmt.Errorf("failed to unmarshal client login: %v", err)
	}

	claims, err := n.AuthProvider.VerifyToken(ctx, clientLogin.Token)
	if err != nil {
		return fmt.Errorf("failed to verify token: %v", err)
	}

	info := types.PlayerInfo{
		UserID:    claims.UID,
		Name:      clientLogin.Name,
		Character: clientLogin.Character,
	}
	if info.Name == "" {
		info.Name = claims.Name
	}
	n.ClientManager.SetIdentity(clientID, info)
	log.Info("Client %d logged in as user %s", clientID, claims.UID)

	n.sendServerLoginSuccess(clientID, claims.UID)
	return nil
}

func (n *NetworkManager) sendServerLoginSuccess(clientID uint32, userID string) {
	payload, err := json.Marshal(&messages.ServerLoginSuccess{
		ClientID: clientID,
		UserID:   userID,
	})
	if err != nil {
		log.Error("Failed to marshal server login success: %v", err)
		return
	}
	n.Send(clientID, &messages.Message{
		Type:    messages.MessageTypeServerLoginSuccess,
		Payload: payload,
	})
}

func (n *NetworkManager) sendServerLoginFailure(clientID uint32, reason string) {
	payload, err := json.Marshal(&messages.ServerLoginFailure{Reason: reason})
	if err != nil {
		log.Error("Failed to marshal server login failure: %v", err)
		return
	}
	n.Send(clientID, &messages.Message{
		Type:    messages.MessageTypeServerLoginFailure,
		Payload: payload,
	})
}

// Send delivers a message to a client. Best-effort: failures are logged and
// surface to the game layer only as an eventual disconnect.
func (n *NetworkManager) Send(clientID uint32, msg *messages.Message) {
	client, ok := n.ClientManager.GetClientByID(clientID)
	if !ok {
		log.Debug("Dropping %s message for unknown client %d", msg.Type, clientID)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := WriteMessageToWS(ctx, client.Conn, msg); err != nil {
		log.Error("Failed to send %s message to client %d: %v", msg.Type, clientID, err)
	}
}
