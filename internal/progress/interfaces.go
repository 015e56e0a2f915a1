package progress

import (
	"context"
	"time"

	"github.com/felixgeelhaar/circuitscribe/internal/domain"
)

// Store defines the persistence interface for progress records.
// The JSON file, SQLite and Postgres stores implement this.
type Store interface {
	// Get returns the record for learnerID, or an error wrapping
	// domain.ErrProfileNotFound when none exists.
	Get(ctx context.Context, learnerID string) (*domain.UserProgress, error)
	// Save creates or replaces the record.
	Save(ctx context.Context, p *domain.UserProgress) error
}

// XPIncrementer is implemented by stores that can add XP in a single
// statement, closing the read-modify-write window between concurrent sessions.
type XPIncrementer interface {
	IncrementXP(ctx context.Context, learnerID string, amount int) (newXP int, err error)
}

// Publisher receives progress events after a successful write
type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Clock returns the current time; "today" is derived from it in its own location
type Clock func() time.Time

// Ledger is the set of progress operations used by the daemon and MCP server
type Ledger interface {
	GetProfile(ctx context.Context, learnerID string) (*domain.UserProgress, error)
	InitializeOrRefreshProfile(ctx context.Context, learnerID string) (*domain.UserProgress, error)
	MarkChallengeComplete(ctx context.Context, learnerID, challengeID string) error
	MarkArduinoDayComplete(ctx context.Context, learnerID, day string) (AwardResult, error)
	UpdateQuizScore(ctx context.Context, learnerID, quizID string, score int) (int, error)
	AwardXP(ctx context.Context, learnerID string, amount int) (AwardResult, error)
	SetCurrentArduinoDay(ctx context.Context, learnerID, day string) error
}

// Ensure Service implements Ledger
var _ Ledger = (*Service)(nil)

// AwardResult is returned by XP-awarding operations
type AwardResult struct {
	NewXP     int  `json:"new_xp"`
	NewLevel  int  `json:"new_level"`
	LeveledUp bool `json:"leveled_up"`
}
