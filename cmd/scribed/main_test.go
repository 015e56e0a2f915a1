package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/felixgeelhaar/circuitscribe/internal/domain"
	"github.com/felixgeelhaar/circuitscribe/internal/progress"
)

type plainStore struct{}

func (plainStore) Get(context.Context, string) (*domain.UserProgress, error) {
	return nil, domain.ErrProfileNotFound
}

func (plainStore) Save(context.Context, *domain.UserProgress) error { return nil }

type incrementingStore struct{ plainStore }

func (incrementingStore) IncrementXP(context.Context, string, int) (int, error) { return 0, nil }

func TestWarnAtomicFallback(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		name     string
		atomicXP bool
		store    progress.Store
		want     bool
	}{
		{"atomic on local store", true, plainStore{}, true},
		{"atomic on incrementing store", true, incrementingStore{}, false},
		{"atomic off", false, plainStore{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			if got := warnAtomicFallback(tt.atomicXP, "local", tt.store); got != tt.want {
				t.Errorf("warnAtomicFallback() = %v, want %v", got, tt.want)
			}
			if logged := strings.Contains(buf.String(), "atomic_xp"); logged != tt.want {
				t.Errorf("warning logged = %v, want %v (log: %q)", logged, tt.want, buf.String())
			}
		})
	}
}
