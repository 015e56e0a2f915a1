// Package mcp exposes the verifier, lessons and a single learner's ledger as MCP tools.
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/circuitscribe/internal/catalog"
	"github.com/felixgeelhaar/circuitscribe/internal/domain"
	"github.com/felixgeelhaar/circuitscribe/internal/lesson"
	"github.com/felixgeelhaar/circuitscribe/internal/progress"
	"github.com/felixgeelhaar/circuitscribe/internal/verifier"
	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
)

// Server wraps the MCP server with Circuit Scribe tools
type Server struct {
	mcpServer *server.Server
	ledger    progress.Ledger
	catalog   *catalog.Catalog
	lessons   *lesson.Book
	verifier  *verifier.Verifier
	learnerID string
}

// Config contains configuration for the MCP server
type Config struct {
	Ledger    progress.Ledger
	LearnerID string
	Version   string
	Catalog   *catalog.Catalog
	Lessons   *lesson.Book
}

// NewServer creates a new MCP server
func NewServer(cfg Config) *Server {
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Lessons == nil {
		cfg.Lessons = lesson.Default()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		ledger:    cfg.Ledger,
		catalog:   cfg.Catalog,
		lessons:   cfg.Lessons,
		verifier:  verifier.New(cfg.Catalog),
		learnerID: cfg.LearnerID,
	}

	s.mcpServer = server.New(server.Info{
		Name:    "circuitscribe",
		Version: version,
	}, server.WithInstructions(`
Circuit Scribe teaches Arduino programming with short coding challenges and a
five-day lesson course. Sketches are checked by looking for required code
patterns; nothing is compiled or uploaded.

Available tools:
- scribe_challenges: List challenges, optionally by difficulty
- scribe_verify: Check a sketch against a challenge without recording anything
- scribe_lesson: Read a lesson day, or list all days
- scribe_progress: Show XP, level, streak and completions
- scribe_submit: Check a sketch and record the challenge when it passes
- scribe_quiz: Record a lesson quiz score and earn XP
`))

	s.registerTools()
	return s
}

// registerTools registers all Circuit Scribe MCP tools
func (s *Server) registerTools() {
	s.mcpServer.Tool("scribe_challenges").
		Description("List Arduino coding challenges with their requirements.").
		Handler(s.handleChallenges)

	s.mcpServer.Tool("scribe_verify").
		Description("Check an Arduino sketch against a challenge. Does not record progress.").
		Handler(s.handleVerify)

	s.mcpServer.Tool("scribe_lesson").
		Description("Read an Arduino course lesson day. Omit day to list all days.").
		Handler(s.handleLesson)

	s.mcpServer.Tool("scribe_progress").
		Description("Show the learner's XP, level, streak and completions. Counts as a daily login.").
		Handler(s.handleProgress)

	s.mcpServer.Tool("scribe_submit").
		Description("Check a sketch and mark the challenge complete when it passes.").
		Handler(s.handleSubmit)

	s.mcpServer.Tool("scribe_quiz").
		Description("Record a lesson quiz score (0-100). Awards one XP per ten points.").
		Handler(s.handleQuiz)
}

// Input/Output types for tools

type ChallengesInput struct {
	Difficulty string `json:"difficulty,omitempty" jsonschema:"description=Filter by difficulty,enum=beginner,enum=intermediate,enum=advanced"`
}

type ChallengeSummary struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Difficulty   string   `json:"difficulty"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	Hints        []string `json:"hints,omitempty"`
}

type ChallengesOutput struct {
	Challenges []ChallengeSummary `json:"challenges"`
}

type VerifyInput struct {
	ChallengeID string `json:"challenge_id" jsonschema:"description=Challenge ID from scribe_challenges"`
	Code        string `json:"code" jsonschema:"description=Full Arduino sketch source"`
}

type LessonInput struct {
	Day string `json:"day,omitempty" jsonschema:"description=Lesson day number as a string, e.g. 1"`
}

type LessonOutput struct {
	Days []domain.LessonDay `json:"days"`
}

type ProgressInput struct{}

type ProgressOutput struct {
	LearnerID           string   `json:"learner_id"`
	XP                  int      `json:"xp"`
	Level               int      `json:"level"`
	Streak              int      `json:"streak"`
	CurrentDay          string   `json:"current_day"`
	CompletedDays       []string `json:"completed_days"`
	CompletedChallenges []string `json:"completed_challenges"`
	QuizzesTaken        int      `json:"quizzes_taken"`
}

type QuizInput struct {
	QuizID string `json:"quiz_id" jsonschema:"description=Quiz identifier, e.g. day1"`
	Score  int    `json:"score" jsonschema:"description=Score from 0 to 100"`
}

type QuizOutput struct {
	QuizID    string `json:"quiz_id"`
	Score     int    `json:"score"`
	XPAwarded int    `json:"xp_awarded"`
}

// Tool handlers

func (s *Server) handleChallenges(ctx context.Context, input ChallengesInput) (ChallengesOutput, error) {
	challenges := s.catalog.List()
	if input.Difficulty != "" {
		d := domain.Difficulty(input.Difficulty)
		if !d.Valid() {
			return ChallengesOutput{}, fmt.Errorf("%w: unknown difficulty %q", domain.ErrInvalidInput, input.Difficulty)
		}
		challenges = s.catalog.ByDifficulty(d)
	}

	out := ChallengesOutput{Challenges: make([]ChallengeSummary, 0, len(challenges))}
	for _, ch := range challenges {
		out.Challenges = append(out.Challenges, ChallengeSummary{
			ID:           ch.ID,
			Title:        ch.Title,
			Difficulty:   string(ch.Difficulty),
			Description:  ch.Description,
			Requirements: ch.Requirements,
			Hints:        ch.Hints,
		})
	}
	return out, nil
}

func (s *Server) handleVerify(ctx context.Context, input VerifyInput) (domain.VerificationResult, error) {
	return s.verifier.Verify(input.Code, input.ChallengeID), nil
}

func (s *Server) handleLesson(ctx context.Context, input LessonInput) (LessonOutput, error) {
	if input.Day == "" {
		return LessonOutput{Days: s.lessons.Days()}, nil
	}
	day, err := s.lessons.Day(input.Day)
	if err != nil {
		return LessonOutput{}, err
	}
	return LessonOutput{Days: []domain.LessonDay{day}}, nil
}

func (s *Server) handleProgress(ctx context.Context, _ ProgressInput) (ProgressOutput, error) {
	if err := s.ready(); err != nil {
		return ProgressOutput{}, err
	}
	p, err := s.ledger.InitializeOrRefreshProfile(ctx, s.learnerID)
	if err != nil {
		return ProgressOutput{}, fmt.Errorf("load progress: %w", err)
	}
	return ProgressOutput{
		LearnerID:           p.LearnerID,
		XP:                  p.XP,
		Level:               p.Level,
		Streak:              p.Streak,
		CurrentDay:          p.Arduino.CurrentDay,
		CompletedDays:       p.Arduino.CompletedDays,
		CompletedChallenges: p.Embedded.Completed,
		QuizzesTaken:        p.Arduino.TotalQuizzesTaken,
	}, nil
}

func (s *Server) handleSubmit(ctx context.Context, input VerifyInput) (progress.SubmissionOutcome, error) {
	if err := s.ready(); err != nil {
		return progress.SubmissionOutcome{}, err
	}
	result := s.verifier.Verify(input.Code, input.ChallengeID)
	return progress.RecordSubmission(ctx, s.ledger, s.learnerID, result)
}

func (s *Server) handleQuiz(ctx context.Context, input QuizInput) (QuizOutput, error) {
	if err := s.ready(); err != nil {
		return QuizOutput{}, err
	}
	if _, err := s.ledger.InitializeOrRefreshProfile(ctx, s.learnerID); err != nil {
		return QuizOutput{}, fmt.Errorf("load progress: %w", err)
	}
	xp, err := s.ledger.UpdateQuizScore(ctx, s.learnerID, input.QuizID, input.Score)
	if err != nil {
		return QuizOutput{}, err
	}
	return QuizOutput{QuizID: input.QuizID, Score: input.Score, XPAwarded: xp}, nil
}

func (s *Server) ready() error {
	if s.ledger == nil {
		return errors.New("progress tracking is not configured")
	}
	if s.learnerID == "" {
		return fmt.Errorf("%w: no learner id configured", domain.ErrInvalidInput)
	}
	return nil
}

// ServeStdio starts the MCP server on stdio
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
