//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/circuitscribe/internal/domain"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupPostgres(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("scribe"),
		tcpostgres.WithUsername("scribe"),
		tcpostgres.WithPassword("scribe"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(pool.Close)

	store := NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	return store
}

func TestIntegration_SaveGet(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	p := domain.NewUserProgress("learner-1", time.Now())
	p.AddXP(180)
	p.CompleteDay("1")
	p.RecordQuiz("q1", 80)
	p.CompleteChallenge("servo-sweep")

	if err := store.Save(ctx, p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Get(ctx, "learner-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if loaded.XP != 180 || loaded.Level != 2 {
		t.Errorf("xp/level = %d/%d, want 180/2", loaded.XP, loaded.Level)
	}
	if loaded.Arduino.QuizScores["q1"] != 80 {
		t.Errorf("quiz score = %d, want 80", loaded.Arduino.QuizScores["q1"])
	}
	if !loaded.HasCompletedChallenge("servo-sweep") {
		t.Error("completed challenge lost")
	}

	if _, err := store.Get(ctx, "ghost"); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Errorf("Get(ghost) error = %v, want ErrProfileNotFound", err)
	}
}

func TestIntegration_IncrementXPConcurrent(t *testing.T) {
	store := setupPostgres(t)
	ctx := context.Background()

	if err := store.Save(ctx, domain.NewUserProgress("racer", time.Now())); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.IncrementXP(ctx, "racer", 10); err != nil {
				t.Errorf("IncrementXP() error = %v", err)
			}
		}()
	}
	wg.Wait()

	loaded, err := store.Get(ctx, "racer")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.XP != 200 || loaded.Level != 3 {
		t.Errorf("xp/level = %d/%d, want 200/3", loaded.XP, loaded.Level)
	}
}
