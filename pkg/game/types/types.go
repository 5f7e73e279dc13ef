package types

// Role is a participant's fixed assignment for the lifetime of a session.
type Role int

const (
	// RoleStriker swings the hammer.
	RoleStriker Role = iota
	// RoleTargetController positions and conceals the target.
	RoleTargetController
)

func (r Role) String() string {
	switch r {
	case RoleStriker:
		return "striker"
	case RoleTargetController:
		return "target-controller"
	default:
		return "unknown"
	}
}

// Opposite returns the other role of the pair.
func (r Role) Opposite() Role {
	if r == RoleStriker {
		return RoleTargetController
	}
	return RoleStriker
}

// Variant selects the game mode a session runs.
type Variant string

const (
	VariantWhack Variant = "whack"
	VariantPong  Variant = "pong"
)

// ParseVariant maps a wire string to a Variant, defaulting to whack.
func ParseVariant(s string) Variant {
	if s == string(VariantPong) {
		return VariantPong
	}
	return VariantWhack
}

// PowerupKind is the effect a powerup applies when used. The wire values
// match the original sprite names.
type PowerupKind string

const (
	// PowerupTimeBonus extends the session countdown.
	PowerupTimeBonus PowerupKind = "clock"
	// PowerupFreeze blocks Target-controller scoring and pauses the
	// countdown. Reserved for the Target-controller.
	PowerupFreeze PowerupKind = "thermometer"
)

// PlayerInfo is the identity a participant carries into a session. UserID is
// empty for guests; a guest identity is created at persistence time.
type PlayerInfo struct {
	UserID    string
	Name      string
	Character string
}

// Participant is one side of a session: a connected client, its identity and
// its mutable score. Owned by the session; only session handlers mutate it.
type Participant struct {
	ClientID uint32
	Role     Role
	Info     PlayerInfo
	Score    int
}

// DisplayName returns the participant's name, or a role-based placeholder.
func (p *Participant) DisplayName() string {
	if p.Info.Name != "" {
		return p.Info.Name
	}
	return "Guest"
}
