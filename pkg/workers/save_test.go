package workers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pompin/gameserver/pkg/repositories"
	"github.com/pompin/gameserver/pkg/repositories/models"
)

func TestSaveResultWorker_KnownUser(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewInMemoryRepository()
	user, err := repo.CreateUser(ctx, models.User{Email: "alice@example.com", Name: "Alice"})
	require.NoError(t, err)

	worker := NewSaveResultWorker(NewSaveResultWorkerOptions{Repository: repo})
	worker.saveResult(ctx, SaveResultRequest{
		SessionID: "s1",
		UserID:    user.ID,
		Name:      "Alice",
		Role:      "striker",
		Score:     8,
		Opponent:  "Bob",
		Timestamp: time.Unix(1000, 0),
	})

	results, err := repo.ListResults(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 8, results[0].Score)
	assert.Equal(t, "s1", results[0].SessionID)
}

func TestSaveResultWorker_CreatesGuestUser(t *testing.T) {
	ctx := context.Background()
	repo := repositories.NewInMemoryRepository()
	worker := NewSaveResultWorker(NewSaveResultWorkerOptions{Repository: repo})

	worker.saveResult(ctx, SaveResultRequest{
		SessionID: "s2",
		Role:      "target-controller",
		Score:     3,
		Opponent:  "Alice",
		Timestamp: time.Unix(2000, 0),
	})

	entries, err := repo.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Score)
	assert.Equal(t, "Guest", entries[0].Name)

	guest, err := repo.GetUser(ctx, entries[0].UserID)
	require.NoError(t, err)
	assert.True(t, guest.Guest)
	assert.Contains(t, guest.Email, "guest_s2_target-controller_")
}

func TestSaveResultWorker_DrainsChannel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := repositories.NewInMemoryRepository()
	user, err := repo.CreateUser(ctx, models.User{Email: "bob@example.com", Name: "Bob"})
	require.NoError(t, err)

	requestChan := make(chan SaveResultRequest, 2)
	worker := NewSaveResultWorker(NewSaveResultWorkerOptions{
		Repository:  repo,
		RequestChan: requestChan,
	})
	go worker.Start(ctx)

	requestChan <- SaveResultRequest{SessionID: "s3", UserID: user.ID, Score: 1, Timestamp: time.Now()}
	requestChan <- SaveResultRequest{SessionID: "s3", UserID: user.ID, Score: 2, Timestamp: time.Now()}

	require.Eventually(t, func() bool {
		results, err := repo.ListResults(ctx, user.ID)
		return err == nil && len(results) == 2
	}, time.Second, 10*time.Millisecond)
}
