// Package progress implements the learner progress ledger: XP, levels,
// streaks, completed sets and quiz scores. Every operation is an independent
// read-modify-write against a Store; no lock is held across calls.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/felixgeelhaar/circuitscribe/internal/domain"
)

// Service handles progress business logic
type Service struct {
	store     Store
	publisher Publisher
	now       Clock
	atomicXP  bool
}

// Option configures a Service
type Option func(*Service)

// WithPublisher sends progress events to p after each successful write
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock overrides the time source
func WithClock(c Clock) Option {
	return func(s *Service) { s.now = c }
}

// WithAtomicXP makes AwardXP use the store's single-statement increment when
// the store supports it.
func WithAtomicXP(enabled bool) Option {
	return func(s *Service) { s.atomicXP = enabled }
}

// NewService creates a new progress service
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetProfile returns the learner's record, or nil without error when the
// learner has no progress yet.
func (s *Service) GetProfile(ctx context.Context, learnerID string) (*domain.UserProgress, error) {
	if err := requireID("learner id", learnerID); err != nil {
		return nil, err
	}

	p, err := s.store.Get(ctx, learnerID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// InitializeOrRefreshProfile creates a record on first sight of a learner,
// otherwise applies the daily-login streak rule.
func (s *Service) InitializeOrRefreshProfile(ctx context.Context, learnerID string) (*domain.UserProgress, error) {
	if err := requireID("learner id", learnerID); err != nil {
		return nil, err
	}
	now := s.now()

	p, err := s.store.Get(ctx, learnerID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		p = domain.NewUserProgress(learnerID, now)
		if err := s.store.Save(ctx, p); err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		slog.Info("profile created", "learner", learnerID)
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	before := p.LastLoginDate
	change := p.RefreshLogin(now)
	if p.LastLoginDate == before {
		return p, nil
	}

	p.UpdatedAt = now
	if err := s.store.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("refresh profile: %w", err)
	}
	slog.Debug("login refreshed", "learner", learnerID, "streak", p.Streak, "change", change)
	return p, nil
}

// MarkChallengeComplete adds challengeID to the completed set. It awards no
// XP; callers check HasCompletedChallenge before calling.
func (s *Service) MarkChallengeComplete(ctx context.Context, learnerID, challengeID string) error {
	if err := requireID("learner id", learnerID); err != nil {
		return err
	}
	if err := requireID("challenge id", challengeID); err != nil {
		return err
	}

	p, err := s.load(ctx, learnerID)
	if err != nil {
		return err
	}

	added := p.CompleteChallenge(challengeID)
	if err := s.save(ctx, p); err != nil {
		return fmt.Errorf("mark challenge complete: %w", err)
	}

	if added {
		s.publish(ctx, domain.NewChallengeCompletedEvent(learnerID, challengeID, s.now()))
	}
	return nil
}

// MarkArduinoDayComplete adds day to the completed days and then awards
// XPPerArduinoDay. The award happens on every call, including repeats for a
// day already in the set.
func (s *Service) MarkArduinoDayComplete(ctx context.Context, learnerID, day string) (AwardResult, error) {
	if err := requireID("learner id", learnerID); err != nil {
		return AwardResult{}, err
	}
	if err := requireID("day", day); err != nil {
		return AwardResult{}, err
	}

	p, err := s.load(ctx, learnerID)
	if err != nil {
		return AwardResult{}, err
	}

	added := p.CompleteDay(day)
	if err := s.save(ctx, p); err != nil {
		return AwardResult{}, fmt.Errorf("mark day complete: %w", err)
	}
	if added {
		s.publish(ctx, domain.NewDayCompletedEvent(learnerID, day, s.now()))
	}

	// TODO: award once per day once product confirms; repeats currently earn XP again.
	return s.AwardXP(ctx, learnerID, domain.XPPerArduinoDay)
}

// UpdateQuizScore overwrites the stored score for quizID, counts the attempt
// and awards floor(score/10) XP when positive. It returns the XP awarded.
func (s *Service) UpdateQuizScore(ctx context.Context, learnerID, quizID string, score int) (int, error) {
	if err := requireID("learner id", learnerID); err != nil {
		return 0, err
	}
	if err := requireID("quiz id", quizID); err != nil {
		return 0, err
	}
	if score < 0 || score > 100 {
		return 0, fmt.Errorf("%w: quiz score %d outside 0..100", domain.ErrInvalidInput, score)
	}

	p, err := s.load(ctx, learnerID)
	if err != nil {
		return 0, err
	}

	p.RecordQuiz(quizID, score)
	if err := s.save(ctx, p); err != nil {
		return 0, fmt.Errorf("update quiz score: %w", err)
	}

	xp := domain.QuizXP(score)
	s.publish(ctx, domain.NewQuizScoredEvent(learnerID, quizID, score, xp, s.now()))
	if xp == 0 {
		return 0, nil
	}

	if _, err := s.AwardXP(ctx, learnerID, xp); err != nil {
		return 0, err
	}
	return xp, nil
}

// AwardXP adds amount to the learner's XP and recomputes the level in the
// same write.
func (s *Service) AwardXP(ctx context.Context, learnerID string, amount int) (AwardResult, error) {
	if err := requireID("learner id", learnerID); err != nil {
		return AwardResult{}, err
	}
	if amount < 0 {
		return AwardResult{}, fmt.Errorf("%w: negative xp amount %d", domain.ErrInvalidInput, amount)
	}
	if amount > domain.MaxXPAward {
		return AwardResult{}, fmt.Errorf("%w: xp amount %d exceeds %d", domain.ErrInvalidInput, amount, domain.MaxXPAward)
	}

	var result AwardResult
	var previousLevel int

	if inc, ok := s.store.(XPIncrementer); ok && s.atomicXP {
		newXP, err := inc.IncrementXP(ctx, learnerID, amount)
		if err != nil {
			return AwardResult{}, fmt.Errorf("award xp: %w", err)
		}
		previousLevel = domain.LevelForXP(newXP - amount)
		result = AwardResult{NewXP: newXP, NewLevel: domain.LevelForXP(newXP)}
	} else {
		p, err := s.load(ctx, learnerID)
		if err != nil {
			return AwardResult{}, err
		}
		if amount > math.MaxInt-p.XP {
			return AwardResult{}, fmt.Errorf("%w: xp total would overflow", domain.ErrInvalidInput)
		}
		previousLevel = p.AddXP(amount)
		if err := s.save(ctx, p); err != nil {
			return AwardResult{}, fmt.Errorf("award xp: %w", err)
		}
		result = AwardResult{NewXP: p.XP, NewLevel: p.Level}
	}
	result.LeveledUp = result.NewLevel > previousLevel

	now := s.now()
	s.publish(ctx, domain.NewXPAwardedEvent(learnerID, amount, result.NewXP, now))
	if result.LeveledUp {
		s.publish(ctx, domain.NewLevelUpEvent(learnerID, previousLevel, result.NewLevel, now))
	}
	return result, nil
}

// SetCurrentArduinoDay overwrites the learner's current course day
func (s *Service) SetCurrentArduinoDay(ctx context.Context, learnerID, day string) error {
	if err := requireID("learner id", learnerID); err != nil {
		return err
	}
	if err := requireID("day", day); err != nil {
		return err
	}

	p, err := s.load(ctx, learnerID)
	if err != nil {
		return err
	}

	p.Arduino.CurrentDay = day
	if err := s.save(ctx, p); err != nil {
		return fmt.Errorf("set current day: %w", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, learnerID string) (*domain.UserProgress, error) {
	p, err := s.store.Get(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", learnerID, err)
	}
	return p, nil
}

func (s *Service) save(ctx context.Context, p *domain.UserProgress) error {
	p.UpdatedAt = s.now()
	return s.store.Save(ctx, p)
}

// publish hands the event to the publisher. The write has already happened,
// so failures are only logged.
func (s *Service) publish(ctx context.Context, event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.Warn("publish progress event failed",
			"type", event.EventType(),
			"learner", event.Learner(),
			"error", err,
		)
	}
}

func requireID(what, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is empty", domain.ErrInvalidInput, what)
	}
	return nil
}
