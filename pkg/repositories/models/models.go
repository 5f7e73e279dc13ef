package models

import "time"

// User is a persisted identity. Guests are created on demand when an
// anonymous participant's result is recorded.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Guest     bool      `json:"guest"`
	CreatedAt time.Time `json:"createdAt"`
}

// MatchResult is one participant's final score from one session.
type MatchResult struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"userID,omitempty"`
	SessionID string    `json:"sessionID"`
	Role      string    `json:"role"`
	Score     int       `json:"score"`
	Opponent  string    `json:"opponent"`
	Character string    `json:"character,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// LeaderboardEntry is a scored row for the public leaderboard.
type LeaderboardEntry struct {
	UserID    string    `json:"userID"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	Opponent  string    `json:"opponent"`
	Character string    `json:"character,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
