package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pompin/gameserver/pkg/repositories/models"
)

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the database at path and applies
// every migration found in the migrations directory, in name order.
func NewSQLiteRepository(ctx context.Context, path string, migrations string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	dir, err := os.ReadDir(migrations)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %v", err)
	}

	for _, entry := range dir {
		if entry.IsDir() {
			continue
		}

		migrationPath := filepath.Join(migrations, entry.Name())
		migration, err := os.ReadFile(migrationPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %v", migrationPath, err)
		}

		if _, err := db.ExecContext(ctx, string(migration)); err != nil {
			return nil, fmt.Errorf("failed to execute migration %s: %v", migrationPath, err)
		}
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) Close(_ context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	var exists int
	q := `SELECT COUNT(1) FROM users WHERE email = ?;`
	if err := r.db.QueryRowContext(ctx, q, user.Email).Scan(&exists); err != nil {
		return models.User{}, fmt.Errorf("failed to check email: %v", err)
	}
	if exists > 0 {
		return models.User{}, &ErrEmailExists{}
	}

	q = `
	INSERT INTO users (user_id, email, name, guest, created_at)
	VALUES (?, ?, ?, ?, ?);
	`
	_, err := r.db.ExecContext(ctx, q, user.ID, user.Email, user.Name, user.Guest, user.CreatedAt)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to insert user: %v", err)
	}

	return user, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (models.User, error) {
	q := `
	SELECT user_id, email, name, guest, created_at FROM users WHERE user_id = ?;
	`
	var user models.User
	err := r.db.QueryRowContext(ctx, q, id).Scan(&user.ID, &user.Email, &user.Name, &user.Guest, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, &ErrNotFound{}
		}
		return models.User{}, fmt.Errorf("failed to scan user: %v", err)
	}
	return user, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	q := `
	SELECT user_id, email, name, guest, created_at FROM users WHERE email = ?;
	`
	var user models.User
	err := r.db.QueryRowContext(ctx, q, email).Scan(&user.ID, &user.Email, &user.Name, &user.Guest, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, &ErrNotFound{}
		}
		return models.User{}, fmt.Errorf("failed to scan user: %v", err)
	}
	return user, nil
}

func (r *SQLiteRepository) SaveMatchResult(ctx context.Context, userID string, result models.MatchResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	q := `
	INSERT INTO match_results (result_id, user_id, session_id, role, score, opponent, character, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?);
	`
	_, err := r.db.ExecContext(ctx, q, result.ID, userID, result.SessionID, result.Role,
		result.Score, result.Opponent, result.Character, result.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert match result: %v", err)
	}
	return nil
}

func (r *SQLiteRepository) ListResults(ctx context.Context, userID string) ([]models.MatchResult, error) {
	q := `
	SELECT result_id, session_id, role, score, opponent, character, created_at
	FROM match_results WHERE user_id = ? ORDER BY created_at;
	`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query match results: %v", err)
	}
	defer rows.Close()

	var results []models.MatchResult
	for rows.Next() {
		result := models.MatchResult{UserID: userID}
		if err := rows.Scan(&result.ID, &result.SessionID, &result.Role, &result.Score,
			&result.Opponent, &result.Character, &result.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan match result: %v", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func (r *SQLiteRepository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	q := `
	SELECT m.user_id, u.name, m.score, m.opponent, m.character, m.created_at
	FROM match_results m JOIN users u ON u.user_id = m.user_id
	ORDER BY m.score DESC, m.created_at ASC
	LIMIT ?;
	`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %v", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var entry models.LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.Name, &entry.Score,
			&entry.Opponent, &entry.Character, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %v", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
