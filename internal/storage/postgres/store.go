// Package postgres stores progress records in PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/circuitscribe/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sqlc-dev/pqtype"
)

//go:embed schema.sql
var schemaSQL string

// Store implements progress persistence using PostgreSQL
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a connection pool and verifies it
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// NewStore creates a new PostgreSQL progress store
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the progress table if it does not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Save inserts or replaces a record
func (s *Store) Save(ctx context.Context, p *domain.UserProgress) error {
	completedDays, err := jsonb(p.Arduino.CompletedDays)
	if err != nil {
		return fmt.Errorf("marshal completed_days: %w", err)
	}
	quizScores, err := jsonb(p.Arduino.QuizScores)
	if err != nil {
		return fmt.Errorf("marshal quiz_scores: %w", err)
	}
	completed, err := jsonb(p.Embedded.Completed)
	if err != nil {
		return fmt.Errorf("marshal completed_challenges: %w", err)
	}

	createdAt, updatedAt := p.CreatedAt, p.UpdatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	query := `
		INSERT INTO progress (learner_id, xp, level, streak, last_login_date,
			current_day, completed_days, quiz_scores, total_quizzes_taken,
			completed_challenges, embedded_streak, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (learner_id) DO UPDATE SET
			xp = EXCLUDED.xp,
			level = EXCLUDED.level,
			streak = EXCLUDED.streak,
			last_login_date = EXCLUDED.last_login_date,
			current_day = EXCLUDED.current_day,
			completed_days = EXCLUDED.completed_days,
			quiz_scores = EXCLUDED.quiz_scores,
			total_quizzes_taken = EXCLUDED.total_quizzes_taken,
			completed_challenges = EXCLUDED.completed_challenges,
			embedded_streak = EXCLUDED.embedded_streak,
			updated_at = EXCLUDED.updated_at
	`
	_, err = s.pool.Exec(ctx, query,
		p.LearnerID, p.XP, domain.LevelForXP(p.XP), p.Streak, p.LastLoginDate,
		p.Arduino.CurrentDay, completedDays, quizScores, p.Arduino.TotalQuizzesTaken,
		completed, p.Embedded.Streak, createdAt, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// Get retrieves a record by learner ID
func (s *Store) Get(ctx context.Context, learnerID string) (*domain.UserProgress, error) {
	query := `
		SELECT learner_id, xp, level, streak, last_login_date, current_day,
			completed_days::text, quiz_scores::text, total_quizzes_taken,
			completed_challenges::text, embedded_streak, created_at, updated_at
		FROM progress WHERE learner_id = $1
	`
	var (
		p                                   domain.UserProgress
		completedDays, quizScores, finished string
	)
	err := s.pool.QueryRow(ctx, query, learnerID).Scan(
		&p.LearnerID, &p.XP, &p.Level, &p.Streak, &p.LastLoginDate, &p.Arduino.CurrentDay,
		&completedDays, &quizScores, &p.Arduino.TotalQuizzesTaken,
		&finished, &p.Embedded.Streak, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, learnerID)
	}
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}

	if err := json.Unmarshal([]byte(completedDays), &p.Arduino.CompletedDays); err != nil {
		return nil, fmt.Errorf("unmarshal completed_days: %w", err)
	}
	if err := json.Unmarshal([]byte(quizScores), &p.Arduino.QuizScores); err != nil {
		return nil, fmt.Errorf("unmarshal quiz_scores: %w", err)
	}
	if err := json.Unmarshal([]byte(finished), &p.Embedded.Completed); err != nil {
		return nil, fmt.Errorf("unmarshal completed_challenges: %w", err)
	}

	p.Hydrate()
	return &p, nil
}

// IncrementXP adds amount to XP and recomputes the level in one statement
func (s *Store) IncrementXP(ctx context.Context, learnerID string, amount int) (int, error) {
	query := `
		UPDATE progress
		SET xp = xp + $2, level = (xp + $2) / 100 + 1, updated_at = now()
		WHERE learner_id = $1
		RETURNING xp
	`
	var xp int
	err := s.pool.QueryRow(ctx, query, learnerID, amount).Scan(&xp)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, learnerID)
	}
	if err != nil {
		return 0, fmt.Errorf("increment xp: %w", err)
	}
	return xp, nil
}

// jsonb encodes v for a JSONB parameter
func jsonb(v any) (pqtype.NullRawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: true}, nil
}
