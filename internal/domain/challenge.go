package domain

import (
	"fmt"
	"strings"
)

// Challenge is a coding task checked by requirement substrings
type Challenge struct {
	ID           string     `json:"id" yaml:"id"`
	Title        string     `json:"title" yaml:"title"`
	Description  string     `json:"description" yaml:"description"`
	Difficulty   Difficulty `json:"difficulty" yaml:"difficulty"`
	Requirements []string   `json:"requirements" yaml:"requirements"`
	Solution     string     `json:"solution,omitempty" yaml:"solution"`
	Hints        []string   `json:"hints" yaml:"hints"`
}

// Difficulty represents challenge difficulty level
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Valid reports whether d is one of the known difficulty levels
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	default:
		return false
	}
}

// WithoutSolution returns a copy safe to hand out before the learner asks for the answer
func (c Challenge) WithoutSolution() Challenge {
	c.Solution = ""
	c.Requirements = append([]string(nil), c.Requirements...)
	c.Hints = append([]string(nil), c.Hints...)
	return c
}

// Validate checks the catalog fitness rules for a single challenge
func (c Challenge) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: challenge id is empty", ErrInvalidInput)
	}
	if !c.Difficulty.Valid() {
		return fmt.Errorf("%w: challenge %s has unknown difficulty %q", ErrInvalidInput, c.ID, c.Difficulty)
	}
	if len(c.Requirements) == 0 {
		return fmt.Errorf("%w: challenge %s has no requirements", ErrInvalidInput, c.ID)
	}
	for _, req := range c.Requirements {
		if req == "" {
			return fmt.Errorf("%w: challenge %s has an empty requirement", ErrInvalidInput, c.ID)
		}
		if !strings.Contains(c.Solution, req) {
			return fmt.Errorf("%w: challenge %s solution is missing requirement %q", ErrInvalidInput, c.ID, req)
		}
	}
	for _, marker := range []string{SetupMarker, LoopMarker} {
		if !strings.Contains(c.Solution, marker) {
			return fmt.Errorf("%w: challenge %s solution is missing %q", ErrInvalidInput, c.ID, marker)
		}
	}
	return nil
}
