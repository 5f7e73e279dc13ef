package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/pompin/gameserver/pkg/log"
	"github.com/pompin/gameserver/pkg/repositories"
	"github.com/pompin/gameserver/pkg/repositories/models"
)

// SaveResultRequest is one participant's final score handed off at session
// end or disconnect. UserID is empty for guests; the worker creates a guest
// user so the result can still be recorded.
type SaveResultRequest struct {
	SessionID string
	UserID    string
	Name      string
	Character string
	Role      string
	Score     int
	Opponent  string
	Timestamp time.Time
}

type SaveResultWorker struct {
	repository  repositories.Repository
	requestChan <-chan SaveResultRequest
}

type NewSaveResultWorkerOptions struct {
	Repository  repositories.Repository
	RequestChan <-chan SaveResultRequest
}

// NewSaveResultWorker creates a new SaveResultWorker. The worker drains save
// requests from the sessions and persists them; failures are logged and
// never propagate back into game state.
func NewSaveResultWorker(opts NewSaveResultWorkerOptions) *SaveResultWorker {
	return &SaveResultWorker{
		repository:  opts.Repository,
		requestChan: opts.RequestChan,
	}
}

func (w *SaveResultWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case request := <-w.requestChan:
			w.saveResult(ctx, request)
		}
	}
}

func (w *SaveResultWorker) saveResult(ctx context.Context, request SaveResultRequest) {
	userID, err := w.resolveUser(ctx, request)
	if err != nil {
		log.Error("Failed to resolve user for session %s: %v", request.SessionID, err)
		return
	}

	result := models.MatchResult{
		SessionID: request.SessionID,
		Role:      request.Role,
		Score:     request.Score,
		Opponent:  request.Opponent,
		Character: request.Character,
		Timestamp: request.Timestamp,
	}
	if err := w.repository.SaveMatchResult(ctx, userID, result); err != nil {
		log.Error("Failed to save result for user %s in session %s: %v", userID, request.SessionID, err)
		return
	}
	log.Debug("Saved result for user %s in session %s: %d", userID, request.SessionID, request.Score)
}

// resolveUser returns the request's user id, creating a guest user when the
// participant carried no identity.
func (w *SaveResultWorker) resolveUser(ctx context.Context, request SaveResultRequest) (string, error) {
	if request.UserID != "" {
		return request.UserID, nil
	}

	name := request.Name
	if name == "" {
		name = "Guest"
	}
	guest := models.User{
		Email:     fmt.Sprintf("guest_%s_%s_%d@local", request.SessionID, request.Role, time.Now().UnixMilli()),
		Name:      name,
		Guest:     true,
		CreatedAt: time.Now(),
	}
	created, err := w.repository.CreateUser(ctx, guest)
	if err != nil {
		return "", fmt.Errorf("failed to create guest user: %v", err)
	}
	log.Debug("Created guest user %s for session %s", created.ID, request.SessionID)
	return created.ID, nil
}
