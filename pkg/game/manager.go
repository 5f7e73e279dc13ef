package game

import (
	"context"
	"fmt"

	"github.com/pompin/gameserver/pkg/game/types"
	"github.com/pompin/gameserver/pkg/log"
	"github.com/pompin/gameserver/pkg/messages"
	"github.com/pompin/gameserver/pkg/queue"
	"github.com/pompin/gameserver/pkg/workers"
)

// IdentityResolver looks up the identity a client established at login.
type IdentityResolver interface {
	Identity(clientID uint32) (types.PlayerInfo, bool)
}

// GameManager routes inbound client messages and connection events to the
// matchmaker or the owning session. It is the only consumer of both queues.
type GameManager struct {
	clientMessageQueue   queue.Queue
	connectionEventQueue queue.Queue
	registry             *Registry
	matchmaker           *Matchmaker
	messenger            Messenger
	identities           IdentityResolver
	saveChan             chan<- workers.SaveResultRequest
	cfg                  Config
	ctx                  context.Context
}

type NewGameManagerOptions struct {
	ClientMessageQueue   queue.Queue
	ConnectionEventQueue queue.Queue
	Messenger            Messenger
	Identities           IdentityResolver
	SaveChan             chan<- workers.SaveResultRequest
	Config               Config
}

func NewGameManager(opts NewGameManagerOptions) *GameManager {
	cfg := opts.Config
	if cfg.HoleCount == 0 {
		cfg = DefaultConfig()
	}
	gm := &GameManager{
		clientMessageQueue:   opts.ClientMessageQueue,
		connectionEventQueue: opts.ConnectionEventQueue,
		registry:             NewRegistry(),
		messenger:            opts.Messenger,
		identities:           opts.Identities,
		saveChan:             opts.SaveChan,
		cfg:                  cfg,
	}
	gm.matchmaker = NewMatchmaker(NewMatchmakerOptions{
		Messenger: opts.Messenger,
		OnPair:    gm.startSession,
		InSession: func(clientID uint32) bool {
			_, ok := gm.registry.ForClient(clientID)
			return ok
		},
	})
	return gm
}

// Registry exposes the session registry, mainly for tests and diagnostics.
func (gm *GameManager) Registry() *Registry {
	return gm.registry
}

// Start runs the dispatch loops until the context is cancelled.
func (gm *GameManager) Start(ctx context.Context) error {
	gm.ctx = ctx
	go gm.matchmaker.Start(ctx)
	go gm.processConnectionEvents(ctx)

	for {
		item, err := gm.clientMessageQueue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to dequeue client message: %v", err)
		}
		msg, ok := item.(*messages.Message)
		if !ok {
			log.Error("Failed to cast dequeued item to message: %T", item)
			continue
		}
		gm.handleMessage(msg)
	}
}

func (gm *GameManager) handleMessage(msg *messages.Message) {
	switch msg.Type {
	case messages.MessageTypeClientJoinQueue:
		gm.handleJoinQueue(msg)
	case messages.MessageTypeClientLeaveQueue:
		gm.matchmaker.Leave(msg.ClientID)
	default:
		session, ok := gm.registry.ForClient(msg.ClientID)
		if !ok {
			log.Debug("Client %d sent %s without a session, dropping", msg.ClientID, msg.Type)
			return
		}
		session.Deliver(msg)
	}
}

func (gm *GameManager) handleJoinQueue(msg *messages.Message) {
	if _, ok := gm.registry.ForClient(msg.ClientID); ok {
		log.Debug("Client %d sent joinQueue while in a session, dropping", msg.ClientID)
		return
	}
	var payload messages.ClientJoinQueue
	if len(msg.Payload) > 0 {
		if err := unmarshalPayload(msg, &payload); err != nil {
			log.Debug("Client %d sent bad joinQueue payload: %v", msg.ClientID, err)
			return
		}
	}

	info, _ := gm.identities.Identity(msg.ClientID)
	if payload.Name != "" {
		info.Name = payload.Name
	}
	if payload.Character != "" {
		info.Character = payload.Character
	}
	gm.matchmaker.Join(msg.ClientID, info, types.ParseVariant(payload.Variant))
}

func (gm *GameManager) processConnectionEvents(ctx context.Context) {
	for {
		item, err := gm.connectionEventQueue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("Failed to dequeue connection event: %v", err)
			continue
		}
		switch event := item.(type) {
		case types.ClientConnectedEvent:
			log.Debug("Client %d connected", event.ClientID)
		case types.ClientDisconnectedEvent:
			gm.matchmaker.Leave(event.ClientID)
			if session, ok := gm.registry.ForClient(event.ClientID); ok {
				session.DeliverDisconnect(event.ClientID)
			}
		default:
			log.Error("Unknown connection event type: %T", item)
		}
	}
}

// startSession pairs the two oldest queued clients into a new session. The
// first dequeued is the Striker.
func (gm *GameManager) startSession(variant types.Variant, first, second QueuedPlayer) {
	striker := &types.Participant{
		ClientID: first.ClientID,
		Role:     types.RoleStriker,
		Info:     first.Info,
	}
	targetController := &types.Participant{
		ClientID: second.ClientID,
		Role:     types.RoleTargetController,
		Info:     second.Info,
	}
	session := NewSession(NewSessionOptions{
		Variant:          variant,
		Striker:          striker,
		TargetController: targetController,
		Messenger:        gm.messenger,
		SaveChan:         gm.saveChan,
		OnEnd:            gm.registry.Remove,
		Config:           gm.cfg,
	})
	gm.registry.Add(session)
	ctx := gm.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	go session.Start(ctx)
	log.Info("Paired clients %d and %d into session %s (%s)",
		first.ClientID, second.ClientID, session.ID(), variant)
}
