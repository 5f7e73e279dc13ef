package game

import (
	"context"
	"encoding/json"

	"github.com/pompin/gameserver/pkg/game/types"
	"github.com/pompin/gameserver/pkg/log"
	"github.com/pompin/gameserver/pkg/messages"
)

// QueuedPlayer is one waiting entry in a matchmaking queue.
type QueuedPlayer struct {
	ClientID uint32
	Info     types.PlayerInfo
}

type joinRequest struct {
	clientID uint32
	info     types.PlayerInfo
	variant  types.Variant
}

type leaveRequest struct {
	clientID uint32
}

// Matchmaker pairs waiting clients into sessions. All queue mutation happens
// on its single Start goroutine so pairing always sees a consistent view.
// Queues are per variant and strictly FIFO; the first dequeued of a pair
// becomes the Striker.
type Matchmaker struct {
	requests  chan interface{}
	queues    map[types.Variant][]QueuedPlayer
	messenger Messenger
	onPair    func(variant types.Variant, first, second QueuedPlayer)
	inSession func(clientID uint32) bool
}

type NewMatchmakerOptions struct {
	Messenger Messenger
	// OnPair is invoked with the two oldest entries when a queue reaches
	// two. It runs on the matchmaker goroutine and must not block.
	OnPair func(variant types.Variant, first, second QueuedPlayer)
	// InSession guards join idempotency for clients already playing.
	InSession func(clientID uint32) bool
}

func NewMatchmaker(opts NewMatchmakerOptions) *Matchmaker {
	return &Matchmaker{
		requests:  make(chan interface{}, 64),
		queues:    make(map[types.Variant][]QueuedPlayer),
		messenger: opts.Messenger,
		onPair:    opts.OnPair,
		inSession: opts.InSession,
	}
}

// Start consumes join and leave requests until the context is cancelled.
func (m *Matchmaker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-m.requests:
			switch r := req.(type) {
			case joinRequest:
				m.handleJoin(r.clientID, r.info, r.variant)
			case leaveRequest:
				m.handleLeave(r.clientID)
			}
		}
	}
}

// Join queues a client for the given variant. Idempotent.
func (m *Matchmaker) Join(clientID uint32, info types.PlayerInfo, variant types.Variant) {
	m.requests <- joinRequest{clientID: clientID, info: info, variant: variant}
}

// Leave removes a client from whichever queue holds it. Idempotent.
func (m *Matchmaker) Leave(clientID uint32) {
	m.requests <- leaveRequest{clientID: clientID}
}

func (m *Matchmaker) handleJoin(clientID uint32, info types.PlayerInfo, variant types.Variant) {
	if m.inSession != nil && m.inSession(clientID) {
		log.Debug("Client %d tried to queue while in a session, ignoring", clientID)
		return
	}
	if m.queuedVariant(clientID) != "" {
		log.Debug("Client %d is already queued, ignoring join", clientID)
		return
	}

	m.queues[variant] = append(m.queues[variant], QueuedPlayer{ClientID: clientID, Info: info})
	log.Debug("Client %d joined the %s queue (depth %d)", clientID, variant, len(m.queues[variant]))

	if len(m.queues[variant]) >= 2 {
		first, second := m.queues[variant][0], m.queues[variant][1]
		m.queues[variant] = m.queues[variant][2:]
		if m.onPair != nil {
			m.onPair(variant, first, second)
		}
	}
	m.broadcastDepth(variant)
}

func (m *Matchmaker) handleLeave(clientID uint32) {
	variant := m.queuedVariant(clientID)
	if variant == "" {
		return
	}
	queue := m.queues[variant]
	for i, qp := range queue {
		if qp.ClientID == clientID {
			m.queues[variant] = append(queue[:i], queue[i+1:]...)
			break
		}
	}
	log.Debug("Client %d left the %s queue (depth %d)", clientID, variant, len(m.queues[variant]))
	m.broadcastDepth(variant)
}

// queuedVariant returns the variant queue holding the client, or "".
func (m *Matchmaker) queuedVariant(clientID uint32) types.Variant {
	for variant, queue := range m.queues {
		for _, qp := range queue {
			if qp.ClientID == clientID {
				return variant
			}
		}
	}
	return ""
}

// broadcastDepth tells every queued client its position after a depth change.
func (m *Matchmaker) broadcastDepth(variant types.Variant) {
	queue := m.queues[variant]
	for i, qp := range queue {
		payload := messages.ServerQueuePosition{Position: i + 1, Depth: len(queue)}
		b, err := json.Marshal(payload)
		if err != nil {
			log.Error("Failed to marshal queue position: %v", err)
			return
		}
		m.messenger.Send(qp.ClientID, &messages.Message{
			Type:    messages.MessageTypeServerQueuePosition,
			Payload: b,
		})
	}
}

// Depth returns the current queue depth for a variant.
func (m *Matchmaker) Depth(variant types.Variant) int {
	return len(m.queues[variant])
}
