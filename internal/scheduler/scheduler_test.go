package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDaily(t *testing.T) {
	s := New(time.UTC)
	noop := func(context.Context) error { return nil }

	if err := s.Daily(context.Background(), "03:30", "checkpoint", noop); err != nil {
		t.Fatalf("Daily() error = %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}

	if err := s.Daily(context.Background(), "not-a-time", "bad", noop); err == nil {
		t.Error("Daily() with an invalid time should fail")
	}
}

func TestStartStop(t *testing.T) {
	s := New(time.UTC)
	if err := s.Daily(context.Background(), "03:30", "checkpoint", func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	s.Start()
	s.Stop()
}

func TestRun(t *testing.T) {
	tests := []struct {
		name      string
		cancelled bool
		err       error
		wantCalls int
	}{
		{"success", false, nil, 1},
		{"failure is logged", false, errors.New("disk full"), 1},
		{"cancelled context skips", true, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancelled {
				cancel()
			}

			calls := 0
			run(ctx, "job", func(context.Context) error {
				calls++
				return tt.err
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}
