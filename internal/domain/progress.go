package domain

import (
	"math"
	"slices"
	"time"
)

// DateLayout is the day-granularity format of UserProgress.LastLoginDate
const DateLayout = "2006-01-02"

// XP constants
const (
	XPPerLevel        = 100
	MaxXPAward        = 1_000_000
	XPPerArduinoDay   = 25
	QuizXPDivisor     = 10
	DefaultArduinoDay = "1"
)

// UserProgress is a learner's persisted progress record
type UserProgress struct {
	LearnerID     string           `json:"learner_id"`
	XP            int              `json:"xp"`
	Level         int              `json:"level"`
	Streak        int              `json:"streak"`
	LastLoginDate string           `json:"last_login_date"`
	Arduino       ArduinoProgress  `json:"arduino"`
	Embedded      EmbeddedProgress `json:"embedded"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ArduinoProgress tracks the five-day Arduino course
type ArduinoProgress struct {
	CompletedDays     []string       `json:"completed_days"`
	QuizScores        map[string]int `json:"quiz_scores"`
	TotalQuizzesTaken int            `json:"total_quizzes_taken"`
	CurrentDay        string         `json:"current_day"`
}

// EmbeddedProgress tracks the coding challenges track
type EmbeddedProgress struct {
	Completed []string `json:"completed"`
	Streak    int      `json:"streak"`
}

// LevelForXP returns floor(xp/100)+1. Negative xp is treated as zero.
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// NewUserProgress creates a fresh record for a learner first seen on the given day
func NewUserProgress(learnerID string, now time.Time) *UserProgress {
	p := &UserProgress{
		LearnerID:     learnerID,
		LastLoginDate: now.Format(DateLayout),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	p.Hydrate()
	return p
}

// Hydrate fills absent collections and defaults and recomputes Level from XP.
// Stores call it on every read.
func (p *UserProgress) Hydrate() {
	if p.XP < 0 {
		p.XP = 0
	}
	if p.Streak < 0 {
		p.Streak = 0
	}
	p.Level = LevelForXP(p.XP)
	if p.Arduino.CompletedDays == nil {
		p.Arduino.CompletedDays = []string{}
	}
	if p.Arduino.QuizScores == nil {
		p.Arduino.QuizScores = make(map[string]int)
	}
	if p.Arduino.CurrentDay == "" {
		p.Arduino.CurrentDay = DefaultArduinoDay
	}
	if p.Embedded.Completed == nil {
		p.Embedded.Completed = []string{}
	}
	if p.Embedded.Streak < 0 {
		p.Embedded.Streak = 0
	}
}

// AddXP adds amount to XP and recomputes Level. It returns the previous level.
// A total past math.MaxInt saturates instead of wrapping.
func (p *UserProgress) AddXP(amount int) (previousLevel int) {
	previousLevel = LevelForXP(p.XP)
	if amount > 0 && p.XP > math.MaxInt-amount {
		p.XP = math.MaxInt
	} else {
		p.XP += amount
	}
	if p.XP < 0 {
		p.XP = 0
	}
	p.Level = LevelForXP(p.XP)
	return previousLevel
}

// CompleteChallenge adds a challenge id to the completed set.
// It reports whether the id was newly added.
func (p *UserProgress) CompleteChallenge(challengeID string) bool {
	var added bool
	p.Embedded.Completed, added = addToSet(p.Embedded.Completed, challengeID)
	return added
}

// HasCompletedChallenge reports whether the challenge is in the completed set
func (p *UserProgress) HasCompletedChallenge(challengeID string) bool {
	return slices.Contains(p.Embedded.Completed, challengeID)
}

// CompleteDay adds a day to the completed-days set.
// It reports whether the day was newly added.
func (p *UserProgress) CompleteDay(day string) bool {
	var added bool
	p.Arduino.CompletedDays, added = addToSet(p.Arduino.CompletedDays, day)
	return added
}

// RecordQuiz overwrites the score for quizID and counts the attempt
func (p *UserProgress) RecordQuiz(quizID string, score int) {
	if p.Arduino.QuizScores == nil {
		p.Arduino.QuizScores = make(map[string]int)
	}
	p.Arduino.QuizScores[quizID] = score
	p.Arduino.TotalQuizzesTaken++
}

// QuizXP returns the XP earned for a quiz score: floor(score/10)
func QuizXP(score int) int {
	if score <= 0 {
		return 0
	}
	return score / QuizXPDivisor
}

// StreakChange describes how a login affected the streak
type StreakChange int

const (
	StreakUnchanged StreakChange = iota
	StreakExtended
	StreakReset
)

func (c StreakChange) String() string {
	switch c {
	case StreakExtended:
		return "extended"
	case StreakReset:
		return "reset"
	default:
		return "unchanged"
	}
}

// RefreshLogin applies the daily-login streak rule for a login happening at now.
// Same day leaves the streak alone, exactly one day later extends it, anything
// else resets it to zero. LastLoginDate is moved to today whenever it differs.
func (p *UserProgress) RefreshLogin(now time.Time) StreakChange {
	today := now.Format(DateLayout)
	if p.LastLoginDate == today {
		return StreakUnchanged
	}

	change := StreakReset
	if last, err := time.ParseInLocation(DateLayout, p.LastLoginDate, now.Location()); err == nil {
		switch days := CalendarDaysBetween(last, now); {
		case days == 1:
			change = StreakExtended
		case days <= 0:
			change = StreakUnchanged
		}
	}

	switch change {
	case StreakExtended:
		p.Streak++
	case StreakReset:
		p.Streak = 0
	}
	p.LastLoginDate = today
	return change
}

// CalendarDaysBetween counts calendar days from a to b, ignoring time of day
// and DST shifts.
func CalendarDaysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

func addToSet(set []string, item string) ([]string, bool) {
	if slices.Contains(set, item) {
		return set, false
	}
	return append(set, item), true
}
