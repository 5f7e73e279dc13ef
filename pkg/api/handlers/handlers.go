package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/pompin/gameserver/pkg/log"
	"github.com/pompin/gameserver/pkg/repositories"
	"github.com/pompin/gameserver/pkg/repositories/models"
)

const defaultLeaderboardLimit = 50

func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func HandleLeaderboard(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultLeaderboardLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				http.Error(w, "Invalid limit", http.StatusBadRequest)
				return
			}
			limit = parsed
		}

		entries, err := repository.Leaderboard(r.Context(), limit)
		if err != nil {
			log.Error("failed to load leaderboard: %v", err)
			http.Error(w, "Failed to load leaderboard", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			log.Error("failed to encode leaderboard: %v", err)
			http.Error(w, "Failed to encode leaderboard", http.StatusInternalServerError)
			return
		}
	}
}

func HandleListResults(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userID"]
		if _, err := repository.GetUser(r.Context(), userID); err != nil {
			if repositories.IsNotFound(err) {
				http.Error(w, "User not found", http.StatusNotFound)
				return
			}
			log.Error("failed to get user %s: %v", userID, err)
			http.Error(w, "Failed to get user", http.StatusInternalServerError)
			return
		}

		results, err := repository.ListResults(r.Context(), userID)
		if err != nil {
			log.Error("failed to list results for user %s: %v", userID, err)
			http.Error(w, "Failed to list results", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		if err := json.NewEncoder(w).Encode(results); err != nil {
			log.Error("failed to encode results: %v", err)
			http.Error(w, "Failed to encode results", http.StatusInternalServerError)
			return
		}
	}
}

type saveResultRequest struct {
	SessionID string    `json:"sessionID"`
	Role      string    `json:"role"`
	Score     int       `json:"score"`
	Opponent  string    `json:"opponent"`
	Character string    `json:"character"`
	Timestamp time.Time `json:"timestamp"`
}

func HandleSaveResult(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["userID"]

		var req saveResultRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Score < 0 {
			http.Error(w, "Score must not be negative", http.StatusBadRequest)
			return
		}
		if req.Timestamp.IsZero() {
			req.Timestamp = time.Now()
		}

		result := models.MatchResult{
			SessionID: req.SessionID,
			Role:      req.Role,
			Score:     req.Score,
			Opponent:  req.Opponent,
			Character: req.Character,
			Timestamp: req.Timestamp,
		}
		if err := repository.SaveMatchResult(r.Context(), userID, result); err != nil {
			if repositories.IsNotFound(err) {
				http.Error(w, "User not found", http.StatusNotFound)
				return
			}
			log.Error("failed to save result for user %s: %v", userID, err)
			http.Error(w, "Failed to save result", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.WriteHeader(http.StatusCreated)
	}
}
