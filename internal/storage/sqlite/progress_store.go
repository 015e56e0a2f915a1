package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/circuitscribe/internal/domain"
)

// progressRow maps the progress table
type progressRow struct {
	LearnerID           string    `db:"learner_id"`
	XP                  int       `db:"xp"`
	Level               int       `db:"level"`
	Streak              int       `db:"streak"`
	LastLoginDate       string    `db:"last_login_date"`
	CurrentDay          string    `db:"current_day"`
	CompletedDays       string    `db:"completed_days"`
	QuizScores          string    `db:"quiz_scores"`
	TotalQuizzesTaken   int       `db:"total_quizzes_taken"`
	CompletedChallenges string    `db:"completed_challenges"`
	EmbeddedStreak      int       `db:"embedded_streak"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

const selectProgress = `
	SELECT learner_id, xp, level, streak, last_login_date, current_day,
		completed_days, quiz_scores, total_quizzes_taken,
		completed_challenges, embedded_streak, created_at, updated_at
	FROM progress`

// ProgressStore implements progress persistence backed by SQLite.
type ProgressStore struct {
	db *DB
}

// NewProgressStore creates a new SQLite-backed progress store.
func NewProgressStore(db *DB) *ProgressStore {
	return &ProgressStore{db: db}
}

// Maintain runs the periodic WAL checkpoint
func (s *ProgressStore) Maintain(ctx context.Context) error {
	return s.db.Checkpoint(ctx)
}

// Save persists a record (insert or update).
func (s *ProgressStore) Save(ctx context.Context, p *domain.UserProgress) error {
	row, err := toRow(p)
	if err != nil {
		return err
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO progress (learner_id, xp, level, streak, last_login_date,
			current_day, completed_days, quiz_scores, total_quizzes_taken,
			completed_challenges, embedded_streak, created_at, updated_at)
		VALUES (:learner_id, :xp, :level, :streak, :last_login_date,
			:current_day, :completed_days, :quiz_scores, :total_quizzes_taken,
			:completed_challenges, :embedded_streak, :created_at, :updated_at)
		ON CONFLICT(learner_id) DO UPDATE SET
			xp=excluded.xp,
			level=excluded.level,
			streak=excluded.streak,
			last_login_date=excluded.last_login_date,
			current_day=excluded.current_day,
			completed_days=excluded.completed_days,
			quiz_scores=excluded.quiz_scores,
			total_quizzes_taken=excluded.total_quizzes_taken,
			completed_challenges=excluded.completed_challenges,
			embedded_streak=excluded.embedded_streak,
			updated_at=excluded.updated_at`, row)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// Get retrieves a record by learner ID.
func (s *ProgressStore) Get(ctx context.Context, learnerID string) (*domain.UserProgress, error) {
	var row progressRow
	err := s.db.GetContext(ctx, &row, selectProgress+" WHERE learner_id = ?", learnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, learnerID)
	}
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	return fromRow(row)
}

// IncrementXP adds amount to the learner's XP and level in one statement.
func (s *ProgressStore) IncrementXP(ctx context.Context, learnerID string, amount int) (int, error) {
	var xp int
	err := s.db.GetContext(ctx, &xp, `
		UPDATE progress
		SET xp = xp + ?, level = (xp + ?) / 100 + 1, updated_at = ?
		WHERE learner_id = ?
		RETURNING xp`, amount, amount, time.Now(), learnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, learnerID)
	}
	if err != nil {
		return 0, fmt.Errorf("increment xp: %w", err)
	}
	return xp, nil
}

func toRow(p *domain.UserProgress) (progressRow, error) {
	completedDays, err := json.Marshal(p.Arduino.CompletedDays)
	if err != nil {
		return progressRow{}, fmt.Errorf("marshal completed_days: %w", err)
	}
	quizScores, err := json.Marshal(p.Arduino.QuizScores)
	if err != nil {
		return progressRow{}, fmt.Errorf("marshal quiz_scores: %w", err)
	}
	completed, err := json.Marshal(p.Embedded.Completed)
	if err != nil {
		return progressRow{}, fmt.Errorf("marshal completed_challenges: %w", err)
	}

	createdAt, updatedAt := p.CreatedAt, p.UpdatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	return progressRow{
		LearnerID:           p.LearnerID,
		XP:                  p.XP,
		Level:               domain.LevelForXP(p.XP),
		Streak:              p.Streak,
		LastLoginDate:       p.LastLoginDate,
		CurrentDay:          p.Arduino.CurrentDay,
		CompletedDays:       string(completedDays),
		QuizScores:          string(quizScores),
		TotalQuizzesTaken:   p.Arduino.TotalQuizzesTaken,
		CompletedChallenges: string(completed),
		EmbeddedStreak:      p.Embedded.Streak,
		CreatedAt:           createdAt,
		UpdatedAt:           updatedAt,
	}, nil
}

func fromRow(row progressRow) (*domain.UserProgress, error) {
	p := &domain.UserProgress{
		LearnerID:     row.LearnerID,
		XP:            row.XP,
		Level:         row.Level,
		Streak:        row.Streak,
		LastLoginDate: row.LastLoginDate,
		Arduino: domain.ArduinoProgress{
			CurrentDay:        row.CurrentDay,
			TotalQuizzesTaken: row.TotalQuizzesTaken,
		},
		Embedded: domain.EmbeddedProgress{
			Streak: row.EmbeddedStreak,
		},
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}

	if err := unmarshalColumn(row.CompletedDays, &p.Arduino.CompletedDays); err != nil {
		return nil, fmt.Errorf("unmarshal completed_days: %w", err)
	}
	if err := unmarshalColumn(row.QuizScores, &p.Arduino.QuizScores); err != nil {
		return nil, fmt.Errorf("unmarshal quiz_scores: %w", err)
	}
	if err := unmarshalColumn(row.CompletedChallenges, &p.Embedded.Completed); err != nil {
		return nil, fmt.Errorf("unmarshal completed_challenges: %w", err)
	}

	p.Hydrate()
	return p, nil
}

func unmarshalColumn(data string, v any) error {
	if data == "" {
		return nil
	}
	return json.Unmarshal([]byte(data), v)
}
