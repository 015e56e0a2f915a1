// Package lesson serves the static Arduino course content.
package lesson

import (
	_ "embed"
	"fmt"

	"github.com/felixgeelhaar/circuitscribe/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed lessons.yaml
var lessonsYAML []byte

type lessonsFile struct {
	Lessons []domain.LessonDay `yaml:"lessons"`
}

// Book is an ordered, read-only set of lesson days
type Book struct {
	days  []domain.LessonDay
	index map[string]int
}

var defaultBook = mustParse(lessonsYAML)

// Default returns the lessons embedded in the binary
func Default() *Book {
	return defaultBook
}

// Parse builds a Book from YAML
func Parse(data []byte) (*Book, error) {
	var file lessonsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse lessons: %w", err)
	}

	b := &Book{index: make(map[string]int, len(file.Lessons))}
	for _, d := range file.Lessons {
		if d.Day == "" {
			return nil, fmt.Errorf("%w: lesson %q has no day", domain.ErrInvalidInput, d.Title)
		}
		if _, dup := b.index[d.Day]; dup {
			return nil, fmt.Errorf("%w: duplicate lesson day %s", domain.ErrInvalidInput, d.Day)
		}
		if d.Questions == nil {
			d.Questions = []domain.Question{}
		}
		if d.Assignment.Requirements == nil {
			d.Assignment.Requirements = []string{}
		}
		b.index[d.Day] = len(b.days)
		b.days = append(b.days, d)
	}
	return b, nil
}

func mustParse(data []byte) *Book {
	b, err := Parse(data)
	if err != nil {
		panic(fmt.Sprintf("embedded lessons: %v", err))
	}
	return b
}

// Days returns every lesson day in course order
func (b *Book) Days() []domain.LessonDay {
	out := make([]domain.LessonDay, len(b.days))
	for i, d := range b.days {
		out[i] = clone(d)
	}
	return out
}

// Day returns the lesson for one day
func (b *Book) Day(day string) (domain.LessonDay, error) {
	i, ok := b.index[day]
	if !ok {
		return domain.LessonDay{}, fmt.Errorf("%w: day %s", domain.ErrLessonNotFound, day)
	}
	return clone(b.days[i]), nil
}

// Has reports whether day is part of the course
func (b *Book) Has(day string) bool {
	_, ok := b.index[day]
	return ok
}

func clone(d domain.LessonDay) domain.LessonDay {
	d.Questions = append([]domain.Question{}, d.Questions...)
	d.Assignment.Requirements = append([]string{}, d.Assignment.Requirements...)
	return d
}
