// Package catalog holds the immutable set of coding challenges shipped with
// the binary.
package catalog

import (
	_ "embed"
	"fmt"

	"github.com/felixgeelhaar/circuitscribe/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed challenges.yaml
var challengesYAML []byte

// catalogFile represents the YAML structure of the challenge catalog
type catalogFile struct {
	Challenges []domain.Challenge `yaml:"challenges"`
}

// Catalog is a read-only, ordered set of challenges
type Catalog struct {
	challenges []domain.Challenge
	index      map[string]int
}

var defaultCatalog = mustParse(challengesYAML)

// Default returns the catalog embedded in the binary
func Default() *Catalog {
	return defaultCatalog
}

// New builds a catalog, rejecting duplicate ids and challenges whose
// reference solution does not satisfy their own requirements.
func New(challenges []domain.Challenge) (*Catalog, error) {
	c := &Catalog{
		challenges: make([]domain.Challenge, 0, len(challenges)),
		index:      make(map[string]int, len(challenges)),
	}
	for _, ch := range challenges {
		if err := ch.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.index[ch.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate challenge id %s", domain.ErrInvalidInput, ch.ID)
		}
		c.index[ch.ID] = len(c.challenges)
		c.challenges = append(c.challenges, clone(ch))
	}
	return c, nil
}

// Parse builds a catalog from its YAML representation
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(file.Challenges)
}

func mustParse(data []byte) *Catalog {
	c, err := Parse(data)
	if err != nil {
		panic(fmt.Sprintf("embedded challenge catalog: %v", err))
	}
	return c
}

// List returns all challenges in catalog order
func (c *Catalog) List() []domain.Challenge {
	out := make([]domain.Challenge, len(c.challenges))
	for i, ch := range c.challenges {
		out[i] = clone(ch)
	}
	return out
}

// Get returns a challenge by ID
func (c *Catalog) Get(id string) (domain.Challenge, error) {
	i, ok := c.index[id]
	if !ok {
		return domain.Challenge{}, fmt.Errorf("%w: %s", domain.ErrChallengeNotFound, id)
	}
	return clone(c.challenges[i]), nil
}

// Has reports whether id names a challenge in the catalog
func (c *Catalog) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// Len returns the number of challenges
func (c *Catalog) Len() int {
	return len(c.challenges)
}

// ByDifficulty returns challenges filtered by difficulty, in catalog order
func (c *Catalog) ByDifficulty(difficulty domain.Difficulty) []domain.Challenge {
	out := []domain.Challenge{}
	for _, ch := range c.challenges {
		if ch.Difficulty == difficulty {
			out = append(out, clone(ch))
		}
	}
	return out
}

func clone(ch domain.Challenge) domain.Challenge {
	ch.Requirements = append([]string(nil), ch.Requirements...)
	ch.Hints = append([]string(nil), ch.Hints...)
	return ch
}
