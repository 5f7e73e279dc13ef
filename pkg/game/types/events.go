package types

// ClientConnectedEvent is enqueued by the network layer when a client
// completes the websocket handshake.
type ClientConnectedEvent struct {
	ClientID uint32
}

// ClientDisconnectedEvent is enqueued when a client's connection closes for
// any reason.
type ClientDisconnectedEvent struct {
	ClientID uint32
}
