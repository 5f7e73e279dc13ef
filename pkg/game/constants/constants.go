package constants

import "time"

const (
	// HoleCount is the number of fixed positions the target can appear in.
	HoleCount = 6

	// InitialTimeSeconds is the starting value of the session countdown.
	InitialTimeSeconds = 60
	// TickInterval is the countdown cadence.
	TickInterval = 1 * time.Second

	// TargetPopupDuration is how long an unstruck target stays visible
	// before the appearance resolves as unhit.
	TargetPopupDuration = 1000 * time.Millisecond

	// ResolveDebounceWindow is how long after an authoritative resolution
	// corroborating Target-controller reports are discarded.
	ResolveDebounceWindow = 500 * time.Millisecond

	// PowerupVisibleDuration is how long a spawned powerup stays claimable.
	PowerupVisibleDuration = 5 * time.Second
	// PowerupSpawnMin and PowerupSpawnMax bound the randomized delay
	// between a spawn slot clearing and the next spawn.
	PowerupSpawnMin = 4 * time.Second
	PowerupSpawnMax = 12 * time.Second

	// TimeBonusSeconds is added to the countdown by a TimeBonus powerup.
	TimeBonusSeconds = 20
	// FreezeDuration is how long a Freeze blocks Target-controller scoring
	// and pauses the countdown.
	FreezeDuration = 5 * time.Second

	// MaxStoredPowerups caps a participant's inventory.
	MaxStoredPowerups = 3
	// MaxPowerupUses caps lifetime uses per participant per session.
	MaxPowerupUses = 3

	// PongWinningScore ends a pong-variant session decisively.
	PongWinningScore = 2
	// BallRelaunchDelay is the pause before the ball is put back in play.
	BallRelaunchDelay = 1 * time.Second
	// BallSpeed is the relaunch speed in world units per second.
	BallSpeed = 300.0
	// BallMaxAngleDeg bounds the relaunch angle on either side of horizontal.
	BallMaxAngleDeg = 30.0
	// BallStartX and BallStartY are the relaunch position.
	BallStartX = 400.0
	BallStartY = 300.0
)
