package messages

import "encoding/json"

// Client message types.
const (
	MessageTypeClientLogin               = "login"
	MessageTypeClientJoinQueue           = "joinQueue"
	MessageTypeClientLeaveQueue          = "leaveQueue"
	MessageTypeClientMoveTarget          = "moveTarget"
	MessageTypeClientTargetAppeared      = "targetAppeared"
	MessageTypeClientStrike              = "strike"
	MessageTypeClientTargetConcealed     = "targetConcealed"
	MessageTypeClientTargetMissed        = "targetMissed"
	MessageTypeClientPowerupSpawnRequest = "requestPowerupSpawn"
	MessageTypeClientPowerupClaim        = "powerupClaim"
	MessageTypeClientPowerupUse          = "powerupUse"
	MessageTypeClientPause               = "pause"
	MessageTypeClientResume              = "resume"
	MessageTypeClientPaddleMove          = "paddleMove"
	MessageTypeClientGoal                = "goal"
)

// Server message types.
const (
	MessageTypeServerLoginSuccess         = "loginSuccess"
	MessageTypeServerLoginFailure         = "loginFailure"
	MessageTypeServerQueuePosition        = "queuePosition"
	MessageTypeServerTargetMoved          = "targetMoved"
	MessageTypeServerTargetAppeared       = "targetAppeared"
	MessageTypeServerSessionStart         = "sessionStart"
	MessageTypeServerStrikeResult         = "strikeResult"
	MessageTypeServerScoreUpdate          = "scoreUpdate"
	MessageTypeServerTimeTick             = "timeTick"
	MessageTypeServerPowerupSpawned       = "powerupSpawned"
	MessageTypeServerPowerupClaimed       = "powerupClaimed"
	MessageTypeServerPowerupUsed          = "powerupUsed"
	MessageTypeServerPowerupExpired       = "powerupExpired"
	MessageTypeServerFreezeEnded          = "freezeEnded"
	MessageTypeServerSessionEnded         = "sessionEnded"
	MessageTypeServerOpponentDisconnected = "opponentDisconnected"
	MessageTypeServerPause                = "pause"
	MessageTypeServerResume               = "resume"
	MessageTypeServerPaddleUpdate         = "paddleUpdate"
	MessageTypeServerBallRelaunch         = "ballRelaunch"
	MessageTypeServerRejected             = "rejected"
)

// Message is the envelope for every frame on the wire. ClientID is stamped
// by the server on inbound messages; a ClientID of 0 on an outbound message
// means it originates from the server.
type Message struct {
	ClientID uint32          `json:"clientID"`
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// ClientLogin carries an optional identity token. Clients that never log in
// play as guests.
type ClientLogin struct {
	Token     string `json:"token"`
	Name      string `json:"name,omitempty"`
	Character string `json:"character,omitempty"`
}

type ServerLoginSuccess struct {
	ClientID uint32 `json:"clientID"`
	UserID   string `json:"userID,omitempty"`
}

type ServerLoginFailure struct {
	Reason string `json:"reason"`
}

// ClientJoinQueue enters matchmaking. Variant selects the game mode and
// defaults to the whack variant when empty.
type ClientJoinQueue struct {
	Variant   string `json:"variant,omitempty"`
	Name      string `json:"name,omitempty"`
	Character string `json:"character,omitempty"`
}

type ServerQueuePosition struct {
	Position int `json:"position"`
	Depth    int `json:"depth"`
}

type ServerSessionStart struct {
	SessionID            string `json:"sessionID"`
	Variant              string `json:"variant"`
	Role                 string `json:"role"`
	OpponentName         string `json:"opponentName"`
	TimeRemainingSeconds int    `json:"timeRemainingSeconds"`
	HoleCount            int    `json:"holeCount"`
}

// ClientMoveTarget repositions a hidden target (Target-controller only).
type ClientMoveTarget struct {
	HoleIndex int `json:"holeIndex"`
}

// ClientTargetAppeared reports the target popping up (Target-controller only).
type ClientTargetAppeared struct {
	HoleIndex int `json:"holeIndex"`
}

// ClientStrike is the Striker's swing at a hole. Coordinates are informational.
type ClientStrike struct {
	HoleIndex int     `json:"holeIndex"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
}

// ClientTargetConcealed reports the target going back down. WasHit mirrors the
// Target-controller's local view and is advisory; the server resolution wins.
type ClientTargetConcealed struct {
	WasHit bool `json:"wasHit"`
}

type ClientPowerupClaim struct {
	HoleIndex int `json:"holeIndex"`
}

// ServerTargetMoved and ServerTargetAppeared relay the Target-controller's
// placement to the Striker's client so it can render the target.
type ServerTargetMoved struct {
	HoleIndex int `json:"holeIndex"`
}

type ServerTargetAppeared struct {
	HoleIndex int `json:"holeIndex"`
}

// ServerStrikeResult is the single authoritative outcome broadcast for a
// resolved occurrence. Clients must treat it, not local prediction, as truth.
type ServerStrikeResult struct {
	Hit          bool `json:"hit"`
	HoleIndex    int  `json:"holeIndex"`
	StrikerScore int  `json:"strikerScore"`
	TargetScore  int  `json:"targetScore"`
}

type ServerScoreUpdate struct {
	StrikerScore int `json:"strikerScore"`
	TargetScore  int `json:"targetScore"`
}

type ServerTimeTick struct {
	TimeRemainingSeconds int `json:"timeRemainingSeconds"`
}

type ServerPowerupSpawned struct {
	Kind      string `json:"kind"`
	HoleIndex int    `json:"holeIndex"`
}

type ServerPowerupClaimed struct {
	Role      string `json:"role"`
	Kind      string `json:"kind"`
	HoleIndex int    `json:"holeIndex"`
	Stored    int    `json:"stored"`
}

type ServerPowerupUsed struct {
	Role                 string `json:"role"`
	Kind                 string `json:"kind"`
	TimeRemainingSeconds int    `json:"timeRemainingSeconds"`
}

type ServerSessionEnded struct {
	Winner       string `json:"winner"`
	StrikerScore int    `json:"strikerScore"`
	TargetScore  int    `json:"targetScore"`
	Reason       string `json:"reason,omitempty"`
}

type ServerRejected struct {
	RequestType string `json:"requestType"`
	Reason      string `json:"reason"`
}

// ClientPaddleMove relays a paddle position in the pong variant.
type ClientPaddleMove struct {
	Y float64 `json:"y"`
}

type ServerPaddleUpdate struct {
	Y float64 `json:"y"`
}

// ClientGoal reports the ball entering a goal in the pong variant. Side is
// "left" or "right"; both clients report the same goal and the server gates
// on ball liveness to award it once.
type ClientGoal struct {
	Side string `json:"side"`
}

type ServerBallRelaunch struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`
}
