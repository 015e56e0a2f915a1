package lesson

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/felixgeelhaar/circuitscribe/internal/domain"
)

func TestDefault(t *testing.T) {
	days := Default().Days()
	if len(days) != 5 {
		t.Fatalf("len(Days()) = %d, want 5", len(days))
	}
	for i, d := range days {
		want := string(rune('1' + i))
		if d.Day != want {
			t.Errorf("days[%d].Day = %q, want %q", i, d.Day, want)
		}
		if d.Title == "" || d.Content == "" {
			t.Errorf("day %s is missing title or content", d.Day)
		}
		if len(d.Assignment.Requirements) == 0 {
			t.Errorf("day %s has no assignment requirements", d.Day)
		}
	}
}

func TestDay(t *testing.T) {
	d, err := Default().Day("3")
	if err != nil {
		t.Fatalf("Day() error = %v", err)
	}
	if d.Title != "Buttons and Digital Input" {
		t.Errorf("Title = %q", d.Title)
	}

	_, err = Default().Day("9")
	if !errors.Is(err, domain.ErrLessonNotFound) {
		t.Errorf("Day(9) error = %v, want ErrLessonNotFound", err)
	}
}

func TestLessonJSONShape(t *testing.T) {
	d, _ := Default().Day("1")
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"day", "title", "content", "questions", "assignment"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	assignment := raw["assignment"].(map[string]any)
	for _, key := range []string{"task", "requirements", "expectedOutput"} {
		if _, ok := assignment[key]; !ok {
			t.Errorf("assignment missing key %q", key)
		}
	}
}

func TestParseRejectsDuplicateDays(t *testing.T) {
	_, err := Parse([]byte(`
lessons:
  - day: "1"
    title: A
  - day: "1"
    title: B
`))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Parse() error = %v, want ErrInvalidInput", err)
	}
}
