package game

import (
	"encoding/json"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pompin/gameserver/pkg/game/types"
	"github.com/pompin/gameserver/pkg/messages"
	"github.com/pompin/gameserver/pkg/workers"
)

type sentMessage struct {
	clientID uint32
	msg      *messages.Message
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (f *fakeMessenger) Send(clientID uint32, msg *messages.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{clientID: clientID, msg: msg})
}

func (f *fakeMessenger) ofType(msgType string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, s := range f.sent {
		if s.msg.Type == msgType {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeMessenger) countOfType(msgType string) int {
	return len(f.ofType(msgType))
}

func (f *fakeMessenger) lastTo(clientID uint32, msgType string) *messages.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].clientID == clientID && f.sent[i].msg.Type == msgType {
			return f.sent[i].msg
		}
	}
	return nil
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

// testConfig uses hour-long timer durations so no real timer ever fires
// during a test; expiry handlers are invoked directly instead.
func testConfig() Config {
	return Config{
		InitialTimeSeconds:     60,
		TickInterval:           time.Hour,
		TargetPopupDuration:    time.Hour,
		ResolveDebounceWindow:  500 * time.Millisecond,
		PowerupVisibleDuration: time.Hour,
		FreezeDuration:         time.Hour,
		TimeBonusSeconds:       20,
		MaxStoredPowerups:      3,
		MaxPowerupUses:         3,
		PongWinningScore:       2,
		BallRelaunchDelay:      time.Hour,
		HoleCount:              6,
	}
}

type sessionFixture struct {
	session   *Session
	messenger *fakeMessenger
	clock     *fakeClock
	saveChan  chan workers.SaveResultRequest
	ended     bool
}

func newSessionFixture(variant types.Variant) *sessionFixture {
	fx := &sessionFixture{
		messenger: &fakeMessenger{},
		clock:     &fakeClock{t: time.Unix(1700000000, 0)},
		saveChan:  make(chan workers.SaveResultRequest, 4),
	}
	striker := &types.Participant{
		ClientID: 1,
		Role:     types.RoleStriker,
		Info:     types.PlayerInfo{UserID: "user-1", Name: "Alice"},
	}
	targetController := &types.Participant{
		ClientID: 2,
		Role:     types.RoleTargetController,
		Info:     types.PlayerInfo{Name: "Bob"},
	}
	fx.session = NewSession(NewSessionOptions{
		ID:               "test-session",
		Variant:          variant,
		Striker:          striker,
		TargetController: targetController,
		Messenger:        fx.messenger,
		SaveChan:         fx.saveChan,
		OnEnd:            func(*Session) { fx.ended = true },
		Config:           testConfig(),
		Rand:             rand.New(rand.NewSource(1)),
		Now:              fx.clock.now,
	})
	return fx
}

func decodePayload[T any](t *testing.T, msg *messages.Message) T {
	t.Helper()
	require.NotNil(t, msg)
	var v T
	require.NoError(t, json.Unmarshal(msg.Payload, &v))
	return v
}

func TestSession_AnnounceStart(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	fx.session.announceStart()

	strikerStart := decodePayload[messages.ServerSessionStart](t, fx.messenger.lastTo(1, messages.MessageTypeServerSessionStart))
	assert.Equal(t, "striker", strikerStart.Role)
	assert.Equal(t, "Bob", strikerStart.OpponentName)
	assert.Equal(t, 60, strikerStart.TimeRemainingSeconds)
	assert.Equal(t, 6, strikerStart.HoleCount)

	targetStart := decodePayload[messages.ServerSessionStart](t, fx.messenger.lastTo(2, messages.MessageTypeServerSessionStart))
	assert.Equal(t, "target-controller", targetStart.Role)
	assert.Equal(t, "Alice", targetStart.OpponentName)
}

func TestSession_StrikeHit(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session

	s.handleTargetAppeared(s.target, 2)
	assert.True(t, s.targetVisible)
	appeared := decodePayload[messages.ServerTargetAppeared](t, fx.messenger.lastTo(1, messages.MessageTypeServerTargetAppeared))
	assert.Equal(t, 2, appeared.HoleIndex)

	s.handleStrike(s.striker, 2)
	assert.Equal(t, 1, s.striker.Score)
	assert.Equal(t, 0, s.target.Score)
	assert.False(t, s.targetVisible)

	result := decodePayload[messages.ServerStrikeResult](t, fx.messenger.lastTo(2, messages.MessageTypeServerStrikeResult))
	assert.True(t, result.Hit)
	assert.Equal(t, 2, result.HoleIndex)
	assert.Equal(t, 1, result.StrikerScore)
}

func TestSession_StrikeMissRewardsHider(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session

	s.handleTargetAppeared(s.target, 2)
	s.handleStrike(s.striker, 4)

	assert.Equal(t, 0, s.striker.Score)
	assert.Equal(t, 1, s.target.Score)
	assert.False(t, s.targetVisible)

	result := decodePayload[messages.ServerStrikeResult](t, fx.messenger.lastTo(1, messages.MessageTypeServerStrikeResult))
	assert.False(t, result.Hit)
}

func TestSession_NoDoubleCounting(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session

	s.handleTargetAppeared(s.target, 3)
	s.handleStrike(s.striker, 3)
	assert.Equal(t, 1, s.striker.Score)

	// The hider's reports of the same occurrence arrive shortly after.
	fx.clock.advance(100 * time.Millisecond)
	s.handleTargetConcealed(s.target, true)
	fx.clock.advance(100 * time.Millisecond)
	s.handleTargetConcealed(s.target, false)

	assert.Equal(t, 1, s.striker.Score)
	assert.Equal(t, 0, s.target.Score)
	// One resolution means one outcome broadcast to each participant.
	assert.Equal(t, 2, fx.messenger.countOfType(messages.MessageTypeServerStrikeResult))
}

func TestSession_ConcealedOutsideWindowAwardsHider(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session

	s.handleTargetAppeared(s.target, 1)
	s.handleStrike(s.striker, 1)
	assert.Equal(t, 1, s.striker.Score)

	fx.clock.advance(600 * time.Millisecond)
	s.handleTargetAppeared(s.target, 5)
	s.handleTargetConcealed(s.target, false)

	assert.Equal(t, 1, s.target.Score)
	result := decodePayload[messages.ServerStrikeResult](t, fx.messenger.lastTo(1, messages.MessageTypeServerStrikeResult))
	assert.False(t, result.Hit)
	assert.Equal(t, 5, result.HoleIndex)
}

func TestSession_PopupExpiryAwardsWithoutStrike(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session

	s.handleTargetAppeared(s.target, 0)
	s.handlePopupExpired(s.targetSeq)

	assert.Equal(t, 1, s.target.Score)
	assert.False(t, s.targetVisible)
}

func TestSession_StaleExpiryIsNoOp(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session

	s.handleTargetAppeared(s.target, 0)
	staleSeq := s.targetSeq
	s.handleStrike(s.striker, 0)
	assert.Equal(t, 1, s.striker.Score)

	s.handlePopupExpired(staleSeq)
	assert.Equal(t, 0, s.target.Score)
}

func TestSession_RoleViolationsDropped(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session

	s.handleTargetAppeared(s.striker, 2)
	assert.False(t, s.targetVisible)

	s.handleTargetAppeared(s.target, 2)
	s.handleStrike(s.target, 2)
	assert.Equal(t, 0, s.striker.Score)
	assert.Equal(t, 0, s.target.Score)
	assert.True(t, s.targetVisible)
}

func TestSession_MoveTargetOnlyWhileHidden(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session

	s.handleMoveTarget(s.target, 4)
	assert.Equal(t, 4, s.targetHole)
	moved := decodePayload[messages.ServerTargetMoved](t, fx.messenger.lastTo(1, messages.MessageTypeServerTargetMoved))
	assert.Equal(t, 4, moved.HoleIndex)

	s.handleTargetAppeared(s.target, 4)
	s.handleMoveTarget(s.target, 1)
	assert.Equal(t, 4, s.targetHole)
}

func TestSession_FreezeBlocksScoringAndPausesCountdown(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session

	// A freeze claimed by the target controller is used on the spot.
	s.powerupKind = types.PowerupFreeze
	s.powerupHole = 1
	s.handleClaim(s.target, 1)
	assert.True(t, s.freezeActive)
	assert.Empty(t, s.stored[types.RoleTargetController])
	assert.Equal(t, 1, s.usedCount[types.RoleTargetController])

	used := decodePayload[messages.ServerPowerupUsed](t, fx.messenger.lastTo(1, messages.MessageTypeServerPowerupUsed))
	assert.Equal(t, string(types.PowerupFreeze), used.Kind)

	// Non-hit strikes award nothing while frozen.
	s.handleTargetAppeared(s.target, 2)
	s.handleStrike(s.striker, 5)
	assert.Equal(t, 0, s.target.Score)

	// Unstruck expiry awards nothing while frozen.
	fx.clock.advance(time.Second)
	s.handleTargetAppeared(s.target, 2)
	s.handlePopupExpired(s.targetSeq)
	assert.Equal(t, 0, s.target.Score)

	// The countdown does not run during a freeze.
	s.handleTick()
	assert.Equal(t, 60, s.timeRemaining)
	assert.Zero(t, fx.messenger.countOfType(messages.MessageTypeServerTimeTick))

	s.handleFreezeEnded()
	assert.False(t, s.freezeActive)
	assert.Equal(t, 2, fx.messenger.countOfType(messages.MessageTypeServerFreezeEnded))

	s.handleTick()
	assert.Equal(t, 59, s.timeRemaining)
}

func TestSession_FreezeHitStillMisses(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session

	s.powerupKind = types.PowerupFreeze
	s.powerupHole = 0
	s.handleClaim(s.target, 0)
	require.True(t, s.freezeActive)

	s.handleTargetAppeared(s.target, 3)
	s.handleStrike(s.striker, 3)

	// Neither side scores on a frozen strike, even on the right hole.
	assert.Equal(t, 0, s.striker.Score)
	assert.Equal(t, 0, s.target.Score)
	result := decodePayload[messages.ServerStrikeResult](t, fx.messenger.lastTo(1, messages.MessageTypeServerStrikeResult))
	assert.False(t, result.Hit)
}

func TestSession_FreezeClaimReservedForTargetController(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session

	s.powerupKind = types.PowerupFreeze
	s.powerupHole = 1
	s.handleClaim(s.striker, 1)

	assert.Equal(t, types.PowerupFreeze, s.powerupKind)
	assert.Empty(t, s.stored[types.RoleStriker])
	rejected := decodePayload[messages.ServerRejected](t, fx.messenger.lastTo(1, messages.MessageTypeServerRejected))
	assert.Equal(t, messages.MessageTypeClientPowerupClaim, rejected.RequestType)
}

func TestSession_TimeBonusExtendsCountdown(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session

	s.powerupKind = types.PowerupTimeBonus
	s.powerupHole = 3
	s.handleClaim(s.striker, 3)

	// The striker banks the claim for later.
	assert.Equal(t, []types.PowerupKind{types.PowerupTimeBonus}, s.stored[types.RoleStriker])
	assert.Equal(t, 60, s.timeRemaining)
	claimed := decodePayload[messages.ServerPowerupClaimed](t, fx.messenger.lastTo(2, messages.MessageTypeServerPowerupClaimed))
	assert.Equal(t, "striker", claimed.Role)
	assert.Equal(t, 1, claimed.Stored)

	s.handleUse(s.striker)
	assert.Equal(t, 80, s.timeRemaining)
	assert.Empty(t, s.stored[types.RoleStriker])
	used := decodePayload[messages.ServerPowerupUsed](t, fx.messenger.lastTo(1, messages.MessageTypeServerPowerupUsed))
	assert.Equal(t, 80, used.TimeRemainingSeconds)
}

func TestSession_PowerupCapacityLimits(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session

	s.stored[types.RoleStriker] = []types.PowerupKind{
		types.PowerupTimeBonus, types.PowerupTimeBonus, types.PowerupTimeBonus,
	}
	s.powerupKind = types.PowerupTimeBonus
	s.powerupHole = 0
	s.handleClaim(s.striker, 0)
	assert.Equal(t, types.PowerupTimeBonus, s.powerupKind)
	assert.Len(t, s.stored[types.RoleStriker], 3)

	s.usedCount[types.RoleStriker] = 3
	s.stored[types.RoleStriker] = []types.PowerupKind{types.PowerupTimeBonus}
	s.handleUse(s.striker)
	assert.Len(t, s.stored[types.RoleStriker], 1)
	assert.Equal(t, 60, s.timeRemaining)

	s.handleUse(s.target)
	assert.Equal(t, 0, s.usedCount[types.RoleTargetController])
}

func TestSession_UseIsLIFO(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session

	s.stored[types.RoleStriker] = []types.PowerupKind{types.PowerupTimeBonus, types.PowerupTimeBonus}
	s.handleUse(s.striker)
	s.handleUse(s.striker)
	assert.Equal(t, 100, s.timeRemaining)
	assert.Equal(t, 2, s.usedCount[types.RoleStriker])
	assert.Empty(t, s.stored[types.RoleStriker])
}

func TestSession_SpawnRequestRules(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session

	s.handleTargetAppeared(s.target, 2)
	s.handleSpawnRequest()
	require.NotEmpty(t, s.powerupKind)
	assert.NotEqual(t, s.targetHole, s.powerupHole)
	assert.Equal(t, 2, fx.messenger.countOfType(messages.MessageTypeServerPowerupSpawned))

	// Only one powerup may be live at a time.
	s.handleSpawnRequest()
	assert.Equal(t, 2, fx.messenger.countOfType(messages.MessageTypeServerPowerupSpawned))

	// Expiry clears the slot and opens the next randomized window.
	s.handlePowerupExpired(s.powerupSeq)
	assert.Empty(t, s.powerupKind)
	assert.Equal(t, 2, fx.messenger.countOfType(messages.MessageTypeServerPowerupExpired))
}

func TestSession_SpawnRequestRespectsWindow(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session
	s.cfg.PowerupSpawnMin = 4 * time.Second
	s.cfg.PowerupSpawnMax = 4 * time.Second
	s.scheduleNextSpawnWindow()

	s.handleSpawnRequest()
	assert.Empty(t, s.powerupKind)

	fx.clock.advance(5 * time.Second)
	s.handleSpawnRequest()
	assert.NotEmpty(t, s.powerupKind)
}

func TestSession_CountdownExpiryEndsSession(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session
	s.timeRemaining = 2
	s.striker.Score = 3
	s.target.Score = 5

	s.handleTick()
	assert.True(t, s.active)
	tick := decodePayload[messages.ServerTimeTick](t, fx.messenger.lastTo(1, messages.MessageTypeServerTimeTick))
	assert.Equal(t, 1, tick.TimeRemainingSeconds)

	s.handleTick()
	assert.False(t, s.active)
	assert.True(t, fx.ended)

	ended := decodePayload[messages.ServerSessionEnded](t, fx.messenger.lastTo(2, messages.MessageTypeServerSessionEnded))
	assert.Equal(t, "target-controller", ended.Winner)
	assert.Equal(t, 3, ended.StrikerScore)
	assert.Equal(t, 5, ended.TargetScore)

	require.Len(t, fx.saveChan, 2)
	first := <-fx.saveChan
	second := <-fx.saveChan
	assert.Equal(t, "striker", first.Role)
	assert.Equal(t, 3, first.Score)
	assert.Equal(t, "Bob", first.Opponent)
	assert.Equal(t, "user-1", first.UserID)
	assert.Equal(t, "target-controller", second.Role)
	assert.Equal(t, 5, second.Score)

	// An ended session accepts no further mutation.
	s.handleTick()
	s.handleStrike(s.striker, 0)
	assert.Equal(t, 3, s.striker.Score)
}

func TestSession_DisconnectPersistsCurrentScores(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session
	s.striker.Score = 2
	s.target.Score = 1

	s.handleDisconnect(s.striker.ClientID)

	assert.False(t, s.active)
	assert.True(t, fx.ended)
	assert.NotNil(t, fx.messenger.lastTo(2, messages.MessageTypeServerOpponentDisconnected))
	assert.Zero(t, fx.messenger.countOfType(messages.MessageTypeServerSessionEnded))

	require.Len(t, fx.saveChan, 2)
	first := <-fx.saveChan
	assert.Equal(t, 2, first.Score)

	// A second disconnect report is a no-op.
	s.handleDisconnect(s.target.ClientID)
	assert.Len(t, fx.saveChan, 1)
}

func TestSession_TieOnEqualScore(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session
	s.striker.Score = 4
	s.target.Score = 4
	s.timeRemaining = 1

	s.handleTick()
	ended := decodePayload[messages.ServerSessionEnded](t, fx.messenger.lastTo(1, messages.MessageTypeServerSessionEnded))
	assert.Equal(t, "tie", ended.Winner)
}

func TestSession_PongGoalGating(t *testing.T) {
	fx := newSessionFixture(types.VariantPong)
	s := fx.session

	s.handleGoal("left")
	assert.Equal(t, 1, s.target.Score)
	assert.False(t, s.ballActive)

	// Both clients report the same goal; the second report is ignored.
	s.handleGoal("left")
	assert.Equal(t, 1, s.target.Score)

	s.handleBallRelaunch()
	assert.True(t, s.ballActive)
	relaunch := decodePayload[messages.ServerBallRelaunch](t, fx.messenger.lastTo(1, messages.MessageTypeServerBallRelaunch))
	assert.Equal(t, 400.0, relaunch.X)
	assert.NotZero(t, relaunch.VX)

	s.handleGoal("right")
	assert.Equal(t, 1, s.striker.Score)
	assert.True(t, s.active)

	s.handleBallRelaunch()
	s.handleGoal("right")
	assert.Equal(t, 2, s.striker.Score)
	assert.False(t, s.active)

	ended := decodePayload[messages.ServerSessionEnded](t, fx.messenger.lastTo(2, messages.MessageTypeServerSessionEnded))
	assert.Equal(t, "striker", ended.Winner)
	assert.Equal(t, "decisive score", ended.Reason)
}

func TestSession_PaddleMoveRelaysToOpponent(t *testing.T) {
	fx := newSessionFixture(types.VariantPong)
	s := fx.session

	s.handlePaddleMove(s.striker, 123.5)
	update := decodePayload[messages.ServerPaddleUpdate](t, fx.messenger.lastTo(2, messages.MessageTypeServerPaddleUpdate))
	assert.Equal(t, 123.5, update.Y)
	assert.Nil(t, fx.messenger.lastTo(1, messages.MessageTypeServerPaddleUpdate))
}

func TestSession_PaddleMoveIgnoredInWhackVariant(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session

	s.handlePaddleMove(s.striker, 50)
	s.handleGoal("left")
	assert.Zero(t, fx.messenger.countOfType(messages.MessageTypeServerPaddleUpdate))
	assert.Equal(t, 0, s.target.Score)
}

func TestSession_HandleMessageEnvelope(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session

	appear, err := json.Marshal(messages.ClientTargetAppeared{HoleIndex: 3})
	require.NoError(t, err)
	s.handleMessage(&messages.Message{
		ClientID: 2,
		Type:     messages.MessageTypeClientTargetAppeared,
		Payload:  appear,
	})
	assert.True(t, s.targetVisible)

	strike, err := json.Marshal(messages.ClientStrike{HoleIndex: 3, X: 10, Y: 20})
	require.NoError(t, err)
	s.handleMessage(&messages.Message{
		ClientID: 1,
		Type:     messages.MessageTypeClientStrike,
		Payload:  strike,
	})
	assert.Equal(t, 1, s.striker.Score)

	// Unknown senders and unknown types are dropped.
	s.handleMessage(&messages.Message{ClientID: 99, Type: messages.MessageTypeClientStrike, Payload: strike})
	s.handleMessage(&messages.Message{ClientID: 1, Type: "bogus"})
	assert.Equal(t, 1, s.striker.Score)
}

func TestSession_PauseRelayedVerbatim(t *testing.T) {
	fx := newSessionFixture(types.VariantWhack)
	s := fx.session

	payload := json.RawMessage(`{"reason":"menu"}`)
	s.handleMessage(&messages.Message{ClientID: 1, Type: messages.MessageTypeClientPause, Payload: payload})

	relayed := fx.messenger.lastTo(2, messages.MessageTypeServerPause)
	require.NotNil(t, relayed)
	assert.JSONEq(t, `{"reason":"menu"}`, string(relayed.Payload))
	assert.Nil(t, fx.messenger.lastTo(1, messages.MessageTypeServerPause))

	s.handleMessage(&messages.Message{ClientID: 2, Type: messages.MessageTypeClientResume})
	assert.NotNil(t, fx.messenger.lastTo(1, messages.MessageTypeServerResume))
}
