package game

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/pompin/gameserver/pkg/game/constants"
	"github.com/pompin/gameserver/pkg/game/types"
	"github.com/pompin/gameserver/pkg/log"
	"github.com/pompin/gameserver/pkg/messages"
	"github.com/pompin/gameserver/pkg/workers"
)

// Messenger delivers a server message to a connected client. Delivery is
// best-effort; the session never blocks on it.
type Messenger interface {
	Send(clientID uint32, msg *messages.Message)
}

// Config carries every tunable duration and limit a session runs under.
// Production sessions use DefaultConfig; tests shrink the durations.
type Config struct {
	InitialTimeSeconds     int
	TickInterval           time.Duration
	TargetPopupDuration    time.Duration
	ResolveDebounceWindow  time.Duration
	PowerupVisibleDuration time.Duration
	PowerupSpawnMin        time.Duration
	PowerupSpawnMax        time.Duration
	FreezeDuration         time.Duration
	TimeBonusSeconds       int
	MaxStoredPowerups      int
	MaxPowerupUses         int
	PongWinningScore       int
	BallRelaunchDelay      time.Duration
	HoleCount              int
}

func DefaultConfig() Config {
	return Config{
		InitialTimeSeconds:     constants.InitialTimeSeconds,
		TickInterval:           constants.TickInterval,
		TargetPopupDuration:    constants.TargetPopupDuration,
		ResolveDebounceWindow:  constants.ResolveDebounceWindow,
		PowerupVisibleDuration: constants.PowerupVisibleDuration,
		PowerupSpawnMin:        constants.PowerupSpawnMin,
		PowerupSpawnMax:        constants.PowerupSpawnMax,
		FreezeDuration:         constants.FreezeDuration,
		TimeBonusSeconds:       constants.TimeBonusSeconds,
		MaxStoredPowerups:      constants.MaxStoredPowerups,
		MaxPowerupUses:         constants.MaxPowerupUses,
		PongWinningScore:       constants.PongWinningScore,
		BallRelaunchDelay:      constants.BallRelaunchDelay,
		HoleCount:              constants.HoleCount,
	}
}

// Internal events posted by session-owned timers. Each carries the sequence
// number current when the timer was armed so a stale callback is a no-op.
type disconnectEvent struct {
	clientID uint32
}

type popupExpiredEvent struct {
	seq uint64
}

type powerupExpiredEvent struct {
	seq uint64
}

type freezeEndedEvent struct{}

type ballRelaunchEvent struct{}

// Session is the authoritative state machine for one two-player match.
// State is mutated only by its own run loop (or, in tests, by calling the
// handlers directly), so no field is locked.
type Session struct {
	id            string
	variant       types.Variant
	cfg           Config
	striker       *types.Participant
	target        *types.Participant
	endCondition  EndCondition
	messenger     Messenger
	saveChan      chan<- workers.SaveResultRequest
	onEnd         func(*Session)
	events        chan interface{}
	done          chan struct{}
	rng           *rand.Rand
	now           func() time.Time
	active        bool
	timeRemaining int

	targetVisible  bool
	targetHole     int
	targetSeq      uint64
	popupTimer     *time.Timer
	lastResolvedAt time.Time

	powerupKind     types.PowerupKind
	powerupHole     int
	powerupSeq      uint64
	powerupTimer    *time.Timer
	earliestSpawnAt time.Time
	stored          map[types.Role][]types.PowerupKind
	usedCount       map[types.Role]int

	freezeActive bool
	freezeTimer  *time.Timer

	ballActive    bool
	relaunchTimer *time.Timer
}

type NewSessionOptions struct {
	ID               string
	Variant          types.Variant
	Striker          *types.Participant
	TargetController *types.Participant
	Messenger        Messenger
	SaveChan         chan<- workers.SaveResultRequest
	OnEnd            func(*Session)
	Config           Config
	// Rand and Now are overridable for tests.
	Rand *rand.Rand
	Now  func() time.Time
}

// NewSession creates a session from two paired participants. The session is
// active immediately; Start runs its event loop.
func NewSession(opts NewSessionOptions) *Session {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	cfg := opts.Config
	if cfg.HoleCount == 0 {
		cfg = DefaultConfig()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Session{
		id:            id,
		variant:       opts.Variant,
		cfg:           cfg,
		striker:       opts.Striker,
		target:        opts.TargetController,
		endCondition:  EndConditionForVariant(opts.Variant, cfg.PongWinningScore),
		messenger:     opts.Messenger,
		saveChan:      opts.SaveChan,
		onEnd:         opts.OnEnd,
		events:        make(chan interface{}, 64),
		done:          make(chan struct{}),
		rng:           rng,
		now:           now,
		active:        true,
		timeRemaining: cfg.InitialTimeSeconds,
		stored:        make(map[types.Role][]types.PowerupKind),
		usedCount:     make(map[types.Role]int),
		ballActive:    true,
	}
	s.scheduleNextSpawnWindow()
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Variant() types.Variant {
	return s.variant
}

func (s *Session) ClientIDs() []uint32 {
	return []uint32{s.striker.ClientID, s.target.ClientID}
}

// Start announces the match to both participants and runs the event loop
// until the session ends or the context is cancelled.
func (s *Session) Start(ctx context.Context) {
	s.announceStart()
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.handleTick()
		case ev := <-s.events:
			s.handleEvent(ev)
		}
	}
}

// Deliver hands an inbound client message to the session's event loop.
func (s *Session) Deliver(msg *messages.Message) {
	s.post(msg)
}

// DeliverDisconnect reports a participant's connection closing.
func (s *Session) DeliverDisconnect(clientID uint32) {
	s.post(disconnectEvent{clientID: clientID})
}

func (s *Session) post(ev interface{}) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// afterFunc arms a session-owned timer that posts an event back into the
// run loop. A fired timer after teardown is absorbed by the done channel.
func (s *Session) afterFunc(d time.Duration, ev interface{}) *time.Timer {
	return time.AfterFunc(d, func() {
		s.post(ev)
	})
}

func (s *Session) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *messages.Message:
		s.handleMessage(e)
	case disconnectEvent:
		s.handleDisconnect(e.clientID)
	case popupExpiredEvent:
		s.handlePopupExpired(e.seq)
	case powerupExpiredEvent:
		s.handlePowerupExpired(e.seq)
	case freezeEndedEvent:
		s.handleFreezeEnded()
	case ballRelaunchEvent:
		s.handleBallRelaunch()
	default:
		log.Warn("Session %s received unknown event type %T", s.id, ev)
	}
}

func (s *Session) handleMessage(msg *messages.Message) {
	if !s.active {
		return
	}
	p, ok := s.participantByClient(msg.ClientID)
	if !ok {
		log.Debug("Session %s dropping message from non-participant client %d", s.id, msg.ClientID)
		return
	}

	switch msg.Type {
	case messages.MessageTypeClientMoveTarget:
		var payload messages.ClientMoveTarget
		if err := unmarshalPayload(msg, &payload); err != nil {
			log.Debug("Session %s: bad moveTarget payload: %v", s.id, err)
			return
		}
		s.handleMoveTarget(p, payload.HoleIndex)
	case messages.MessageTypeClientTargetAppeared:
		var payload messages.ClientTargetAppeared
		if err := unmarshalPayload(msg, &payload); err != nil {
			log.Debug("Session %s: bad targetAppeared payload: %v", s.id, err)
			return
		}
		s.handleTargetAppeared(p, payload.HoleIndex)
	case messages.MessageTypeClientStrike:
		var payload messages.ClientStrike
		if err := unmarshalPayload(msg, &payload); err != nil {
			log.Debug("Session %s: bad strike payload: %v", s.id, err)
			return
		}
		s.handleStrike(p, payload.HoleIndex)
	case messages.MessageTypeClientTargetConcealed:
		var payload messages.ClientTargetConcealed
		if err := unmarshalPayload(msg, &payload); err != nil {
			log.Debug("Session %s: bad targetConcealed payload: %v", s.id, err)
			return
		}
		s.handleTargetConcealed(p, payload.WasHit)
	case messages.MessageTypeClientTargetMissed:
		s.handleTargetConcealed(p, false)
	case messages.MessageTypeClientPowerupSpawnRequest:
		s.handleSpawnRequest()
	case messages.MessageTypeClientPowerupClaim:
		var payload messages.ClientPowerupClaim
		if err := unmarshalPayload(msg, &payload); err != nil {
			log.Debug("Session %s: bad powerupClaim payload: %v", s.id, err)
			return
		}
		s.handleClaim(p, payload.HoleIndex)
	case messages.MessageTypeClientPowerupUse:
		s.handleUse(p)
	case messages.MessageTypeClientPause:
		s.relay(p, messages.MessageTypeServerPause, msg.Payload)
	case messages.MessageTypeClientResume:
		s.relay(p, messages.MessageTypeServerResume, msg.Payload)
	case messages.MessageTypeClientPaddleMove:
		var payload messages.ClientPaddleMove
		if err := unmarshalPayload(msg, &payload); err != nil {
			log.Debug("Session %s: bad paddleMove payload: %v", s.id, err)
			return
		}
		s.handlePaddleMove(p, payload.Y)
	case messages.MessageTypeClientGoal:
		var payload messages.ClientGoal
		if err := unmarshalPayload(msg, &payload); err != nil {
			log.Debug("Session %s: bad goal payload: %v", s.id, err)
			return
		}
		s.handleGoal(payload.Side)
	default:
		log.Debug("Session %s: unhandled message type %s from client %d", s.id, msg.Type, msg.ClientID)
	}
}

// handleMoveTarget repositions the hidden target. Only the Target-controller
// may place the target, and not while it is visible.
func (s *Session) handleMoveTarget(p *types.Participant, holeIndex int) {
	if p.Role != types.RoleTargetController {
		log.Debug("Session %s: %s sent moveTarget, dropping", s.id, p.Role)
		return
	}
	if holeIndex < 0 || holeIndex >= s.cfg.HoleCount {
		return
	}
	if s.targetVisible {
		return
	}
	s.targetHole = holeIndex
	s.sendPayload(s.striker.ClientID, messages.MessageTypeServerTargetMoved, messages.ServerTargetMoved{HoleIndex: holeIndex})
}

// handleTargetAppeared marks the target visible and arms the popup expiry
// timer. An unresolved appearance scores for the Target-controller when the
// timer fires.
func (s *Session) handleTargetAppeared(p *types.Participant, holeIndex int) {
	if p.Role != types.RoleTargetController {
		log.Debug("Session %s: %s sent targetAppeared, dropping", s.id, p.Role)
		return
	}
	if holeIndex < 0 || holeIndex >= s.cfg.HoleCount {
		return
	}
	if s.targetVisible {
		return
	}
	s.targetVisible = true
	s.targetHole = holeIndex
	s.targetSeq++
	s.stopTimer(&s.popupTimer)
	s.popupTimer = s.afterFunc(s.cfg.TargetPopupDuration, popupExpiredEvent{seq: s.targetSeq})
	s.sendPayload(s.striker.ClientID, messages.MessageTypeServerTargetAppeared, messages.ServerTargetAppeared{HoleIndex: holeIndex})
}

// handleStrike resolves a swing immediately and authoritatively. A miss
// rewards the hider unless a freeze is active.
func (s *Session) handleStrike(p *types.Participant, holeIndex int) {
	if p.Role != types.RoleStriker {
		log.Debug("Session %s: %s sent strike, dropping", s.id, p.Role)
		return
	}
	if holeIndex < 0 || holeIndex >= s.cfg.HoleCount {
		return
	}
	hit := s.targetVisible && holeIndex == s.targetHole && !s.freezeActive
	if hit {
		s.striker.Score++
	} else if !s.freezeActive {
		s.target.Score++
	}
	s.concealTarget()
	s.lastResolvedAt = s.now()
	s.broadcastPayload(messages.MessageTypeServerStrikeResult, messages.ServerStrikeResult{
		Hit:          hit,
		HoleIndex:    holeIndex,
		StrikerScore: s.striker.Score,
		TargetScore:  s.target.Score,
	})
	s.checkDecisiveScore()
}

// handleTargetConcealed is the Target-controller's view of a resolution.
// Inside the debounce window it is the same occurrence the strike handler
// already scored, so it is ignored. Outside the window an unstruck
// concealment awards the hider.
func (s *Session) handleTargetConcealed(p *types.Participant, wasHit bool) {
	if p.Role != types.RoleTargetController {
		log.Debug("Session %s: %s sent targetConcealed, dropping", s.id, p.Role)
		return
	}
	if s.now().Sub(s.lastResolvedAt) < s.cfg.ResolveDebounceWindow {
		log.Debug("Session %s: targetConcealed within debounce window, ignoring", s.id)
		return
	}
	holeIndex := s.targetHole
	s.concealTarget()
	if wasHit {
		// Advisory only. Striker credit is never awarded on the
		// hider's report.
		return
	}
	if !s.freezeActive {
		s.target.Score++
	}
	s.lastResolvedAt = s.now()
	s.broadcastPayload(messages.MessageTypeServerStrikeResult, messages.ServerStrikeResult{
		Hit:          false,
		HoleIndex:    holeIndex,
		StrikerScore: s.striker.Score,
		TargetScore:  s.target.Score,
	})
	s.checkDecisiveScore()
}

// handlePopupExpired resolves an appearance the Striker never swung at.
func (s *Session) handlePopupExpired(seq uint64) {
	if !s.active || !s.targetVisible || seq != s.targetSeq {
		return
	}
	holeIndex := s.targetHole
	s.concealTarget()
	if !s.freezeActive {
		s.target.Score++
	}
	s.lastResolvedAt = s.now()
	s.broadcastPayload(messages.MessageTypeServerStrikeResult, messages.ServerStrikeResult{
		Hit:          false,
		HoleIndex:    holeIndex,
		StrikerScore: s.striker.Score,
		TargetScore:  s.target.Score,
	})
	s.checkDecisiveScore()
}

func (s *Session) concealTarget() {
	s.targetVisible = false
	s.targetSeq++
	s.stopTimer(&s.popupTimer)
}

// handleSpawnRequest spawns a powerup if none is live, the randomized spawn
// window has elapsed and someone can still hold one.
func (s *Session) handleSpawnRequest() {
	if !s.active || s.powerupKind != "" {
		return
	}
	if s.now().Before(s.earliestSpawnAt) {
		return
	}
	if !s.spareCapacity() {
		return
	}
	hole := s.rng.Intn(s.cfg.HoleCount)
	for s.targetVisible && hole == s.targetHole {
		hole = s.rng.Intn(s.cfg.HoleCount)
	}
	kind := types.PowerupTimeBonus
	if s.rng.Intn(2) == 1 {
		kind = types.PowerupFreeze
	}
	s.powerupKind = kind
	s.powerupHole = hole
	s.powerupSeq++
	s.powerupTimer = s.afterFunc(s.cfg.PowerupVisibleDuration, powerupExpiredEvent{seq: s.powerupSeq})
	s.broadcastPayload(messages.MessageTypeServerPowerupSpawned, messages.ServerPowerupSpawned{
		Kind:      string(kind),
		HoleIndex: hole,
	})
}

func (s *Session) handlePowerupExpired(seq uint64) {
	if !s.active || s.powerupKind == "" || seq != s.powerupSeq {
		return
	}
	s.clearPowerup()
	s.broadcastPayload(messages.MessageTypeServerPowerupExpired, nil)
}

// handleClaim moves the spawned powerup into the claimant's inventory. The
// Target-controller's claims are used on the spot; the Striker banks them.
func (s *Session) handleClaim(p *types.Participant, holeIndex int) {
	if s.powerupKind == "" {
		s.rejectRequest(p.ClientID, messages.MessageTypeClientPowerupClaim, "no powerup spawned")
		return
	}
	if holeIndex != s.powerupHole {
		s.rejectRequest(p.ClientID, messages.MessageTypeClientPowerupClaim, "wrong hole")
		return
	}
	if len(s.stored[p.Role]) >= s.cfg.MaxStoredPowerups {
		s.rejectRequest(p.ClientID, messages.MessageTypeClientPowerupClaim, "inventory full")
		return
	}
	if s.usedCount[p.Role] >= s.cfg.MaxPowerupUses {
		s.rejectRequest(p.ClientID, messages.MessageTypeClientPowerupClaim, "use limit reached")
		return
	}
	if s.powerupKind == types.PowerupFreeze && p.Role != types.RoleTargetController {
		s.rejectRequest(p.ClientID, messages.MessageTypeClientPowerupClaim, "freeze is reserved for the target controller")
		return
	}
	kind := s.powerupKind
	hole := s.powerupHole
	s.clearPowerup()
	s.stored[p.Role] = append(s.stored[p.Role], kind)
	s.broadcastPayload(messages.MessageTypeServerPowerupClaimed, messages.ServerPowerupClaimed{
		Role:      p.Role.String(),
		Kind:      string(kind),
		HoleIndex: hole,
		Stored:    len(s.stored[p.Role]),
	})
	if p.Role == types.RoleTargetController {
		s.applyUse(p)
	}
}

// handleUse spends the most recently stored powerup.
func (s *Session) handleUse(p *types.Participant) {
	if s.usedCount[p.Role] >= s.cfg.MaxPowerupUses {
		s.rejectRequest(p.ClientID, messages.MessageTypeClientPowerupUse, "use limit reached")
		return
	}
	if len(s.stored[p.Role]) == 0 {
		s.rejectRequest(p.ClientID, messages.MessageTypeClientPowerupUse, "no stored powerup")
		return
	}
	s.applyUse(p)
}

func (s *Session) applyUse(p *types.Participant) {
	stack := s.stored[p.Role]
	kind := stack[len(stack)-1]
	s.stored[p.Role] = stack[:len(stack)-1]
	s.usedCount[p.Role]++
	switch kind {
	case types.PowerupTimeBonus:
		s.timeRemaining += s.cfg.TimeBonusSeconds
	case types.PowerupFreeze:
		s.freezeActive = true
		s.stopTimer(&s.freezeTimer)
		s.freezeTimer = s.afterFunc(s.cfg.FreezeDuration, freezeEndedEvent{})
	}
	s.broadcastPayload(messages.MessageTypeServerPowerupUsed, messages.ServerPowerupUsed{
		Role:                 p.Role.String(),
		Kind:                 string(kind),
		TimeRemainingSeconds: s.timeRemaining,
	})
}

func (s *Session) handleFreezeEnded() {
	if !s.active || !s.freezeActive {
		return
	}
	s.freezeActive = false
	s.freezeTimer = nil
	s.broadcastPayload(messages.MessageTypeServerFreezeEnded, nil)
}

func (s *Session) clearPowerup() {
	s.powerupKind = ""
	s.powerupSeq++
	s.stopTimer(&s.powerupTimer)
	s.scheduleNextSpawnWindow()
}

func (s *Session) scheduleNextSpawnWindow() {
	d := s.cfg.PowerupSpawnMin
	if jitter := s.cfg.PowerupSpawnMax - s.cfg.PowerupSpawnMin; jitter > 0 {
		d += time.Duration(s.rng.Int63n(int64(jitter)))
	}
	s.earliestSpawnAt = s.now().Add(d)
}

// spareCapacity reports whether at least one participant can still hold a
// powerup.
func (s *Session) spareCapacity() bool {
	for _, role := range []types.Role{types.RoleStriker, types.RoleTargetController} {
		if len(s.stored[role]) < s.cfg.MaxStoredPowerups {
			return true
		}
	}
	return false
}

// handleTick runs once per second. A freeze pauses the countdown entirely.
func (s *Session) handleTick() {
	if !s.active || s.freezeActive {
		return
	}
	s.timeRemaining--
	s.broadcastPayload(messages.MessageTypeServerTimeTick, messages.ServerTimeTick{
		TimeRemainingSeconds: s.timeRemaining,
	})
	if s.timeRemaining <= 0 {
		s.end("time expired")
	}
}

func (s *Session) handlePaddleMove(p *types.Participant, y float64) {
	if s.variant != types.VariantPong {
		return
	}
	opp := s.opponentOf(p)
	s.sendPayload(opp.ClientID, messages.MessageTypeServerPaddleUpdate, messages.ServerPaddleUpdate{Y: y})
}

// handleGoal awards a goal once per launched ball. Both clients report the
// same goal; liveness gating keeps the award single.
func (s *Session) handleGoal(side string) {
	if s.variant != types.VariantPong || !s.active {
		return
	}
	if !s.ballActive {
		return
	}
	switch side {
	case "left":
		s.target.Score++
	case "right":
		s.striker.Score++
	default:
		return
	}
	s.ballActive = false
	s.broadcastPayload(messages.MessageTypeServerScoreUpdate, messages.ServerScoreUpdate{
		StrikerScore: s.striker.Score,
		TargetScore:  s.target.Score,
	})
	if s.checkDecisiveScore() {
		return
	}
	s.stopTimer(&s.relaunchTimer)
	s.relaunchTimer = s.afterFunc(s.cfg.BallRelaunchDelay, ballRelaunchEvent{})
}

func (s *Session) handleBallRelaunch() {
	if !s.active || s.ballActive {
		return
	}
	s.ballActive = true
	angle := (s.rng.Float64()*2*constants.BallMaxAngleDeg - constants.BallMaxAngleDeg) * math.Pi / 180
	s.broadcastPayload(messages.MessageTypeServerBallRelaunch, messages.ServerBallRelaunch{
		X:  constants.BallStartX,
		Y:  constants.BallStartY,
		VX: constants.BallSpeed * math.Cos(angle),
		VY: constants.BallSpeed * math.Sin(angle),
	})
}

// checkDecisiveScore ends the session when the variant's end condition says
// the score alone settles the outcome.
func (s *Session) checkDecisiveScore() bool {
	if !s.active {
		return false
	}
	if s.endCondition.DecisiveScore(s.striker.Score, s.target.Score) {
		s.end("decisive score")
		return true
	}
	return false
}

// handleDisconnect finalizes the session with the scores as they stand.
// Progress is always recorded, never discarded.
func (s *Session) handleDisconnect(clientID uint32) {
	if !s.active {
		return
	}
	p, ok := s.participantByClient(clientID)
	if !ok {
		return
	}
	opp := s.opponentOf(p)
	s.sendPayload(opp.ClientID, messages.MessageTypeServerOpponentDisconnected, nil)
	log.Info("Session %s: client %d disconnected, finalizing with scores %d-%d",
		s.id, clientID, s.striker.Score, s.target.Score)
	s.finalize()
}

// end broadcasts the final outcome and tears the session down.
func (s *Session) end(reason string) {
	if !s.active {
		return
	}
	s.broadcastPayload(messages.MessageTypeServerSessionEnded, messages.ServerSessionEnded{
		Winner:       winnerTag(s.striker.Score, s.target.Score),
		StrikerScore: s.striker.Score,
		TargetScore:  s.target.Score,
		Reason:       reason,
	})
	log.Info("Session %s ended (%s): %s %d-%d", s.id, reason,
		winnerTag(s.striker.Score, s.target.Score), s.striker.Score, s.target.Score)
	s.finalize()
}

// finalize is the single teardown path: mark inactive, cancel every timer,
// persist both results, release the registry reference.
func (s *Session) finalize() {
	if !s.active {
		return
	}
	s.active = false
	s.cancelTimers()
	s.persistResults()
	close(s.done)
	if s.onEnd != nil {
		s.onEnd(s)
	}
}

func (s *Session) cancelTimers() {
	s.stopTimer(&s.popupTimer)
	s.stopTimer(&s.powerupTimer)
	s.stopTimer(&s.freezeTimer)
	s.stopTimer(&s.relaunchTimer)
}

func (s *Session) stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// persistResults hands both scores to the save worker. The hand-off never
// blocks; a full queue drops the result with an error log.
func (s *Session) persistResults() {
	if s.saveChan == nil {
		return
	}
	ts := s.now()
	for _, pair := range [][2]*types.Participant{{s.striker, s.target}, {s.target, s.striker}} {
		p, opp := pair[0], pair[1]
		req := workers.SaveResultRequest{
			SessionID: s.id,
			UserID:    p.Info.UserID,
			Name:      p.Info.Name,
			Character: p.Info.Character,
			Role:      p.Role.String(),
			Score:     p.Score,
			Opponent:  opp.DisplayName(),
			Timestamp: ts,
		}
		select {
		case s.saveChan <- req:
		default:
			log.Error("Session %s: save queue full, dropping result for %s", s.id, p.Role)
		}
	}
}

func (s *Session) announceStart() {
	for _, pair := range [][2]*types.Participant{{s.striker, s.target}, {s.target, s.striker}} {
		p, opp := pair[0], pair[1]
		s.sendPayload(p.ClientID, messages.MessageTypeServerSessionStart, messages.ServerSessionStart{
			SessionID:            s.id,
			Variant:              string(s.variant),
			Role:                 p.Role.String(),
			OpponentName:         opp.DisplayName(),
			TimeRemainingSeconds: s.timeRemaining,
			HoleCount:            s.cfg.HoleCount,
		})
	}
	log.Info("Session %s started: %s vs %s (%s)", s.id,
		s.striker.DisplayName(), s.target.DisplayName(), s.variant)
}

func (s *Session) participantByClient(clientID uint32) (*types.Participant, bool) {
	switch clientID {
	case s.striker.ClientID:
		return s.striker, true
	case s.target.ClientID:
		return s.target, true
	default:
		return nil, false
	}
}

func (s *Session) opponentOf(p *types.Participant) *types.Participant {
	if p == s.striker {
		return s.target
	}
	return s.striker
}

// relay forwards a payload untouched to the sender's opponent.
func (s *Session) relay(from *types.Participant, msgType string, payload json.RawMessage) {
	opp := s.opponentOf(from)
	s.messenger.Send(opp.ClientID, &messages.Message{Type: msgType, Payload: payload})
}

func (s *Session) sendPayload(clientID uint32, msgType string, payload interface{}) {
	msg := &messages.Message{Type: msgType}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			log.Error("Session %s: failed to marshal %s payload: %v", s.id, msgType, err)
			return
		}
		msg.Payload = b
	}
	s.messenger.Send(clientID, msg)
}

func (s *Session) broadcastPayload(msgType string, payload interface{}) {
	s.sendPayload(s.striker.ClientID, msgType, payload)
	s.sendPayload(s.target.ClientID, msgType, payload)
}

func (s *Session) rejectRequest(clientID uint32, requestType, reason string) {
	log.Debug("Session %s: rejecting %s: %s", s.id, requestType, reason)
	s.sendPayload(clientID, messages.MessageTypeServerRejected, messages.ServerRejected{
		RequestType: requestType,
		Reason:      reason,
	})
}

func unmarshalPayload(msg *messages.Message, v interface{}) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("empty payload")
	}
	return json.Unmarshal(msg.Payload, v)
}
