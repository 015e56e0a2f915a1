package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/circuitscribe/internal/domain"
)

func TestRecordSubmission(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewService(store, WithClock(fixedClock(today)))

	failing := domain.VerificationResult{ChallengeID: "blink-led", Score: 40}
	out, err := RecordSubmission(ctx, svc, "l1", failing)
	if err != nil {
		t.Fatalf("RecordSubmission(failing) error = %v", err)
	}
	if out.Recorded || out.AlreadyCompleted {
		t.Errorf("failing outcome = %+v", out)
	}
	if p, _ := svc.GetProfile(ctx, "l1"); p != nil {
		t.Error("failing submission created a profile")
	}

	passing := domain.VerificationResult{ChallengeID: "blink-led", Score: 100, Passed: true}
	out, err = RecordSubmission(ctx, svc, "l1", passing)
	if err != nil {
		t.Fatalf("RecordSubmission(passing) error = %v", err)
	}
	if !out.Recorded {
		t.Errorf("passing outcome = %+v", out)
	}

	out, err = RecordSubmission(ctx, svc, "l1", passing)
	if err != nil {
		t.Fatalf("RecordSubmission(repeat) error = %v", err)
	}
	if out.Recorded || !out.AlreadyCompleted {
		t.Errorf("repeat outcome = %+v", out)
	}

	p, _ := svc.GetProfile(ctx, "l1")
	if len(p.Embedded.Completed) != 1 || p.XP != 0 {
		t.Errorf("profile after submissions = %+v", p)
	}
}

func TestRecordSubmission_StoreFailure(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("connection reset")
	svc := NewService(store)

	passing := domain.VerificationResult{ChallengeID: "blink-led", Score: 100, Passed: true}
	if _, err := RecordSubmission(context.Background(), svc, "l1", passing); err == nil {
		t.Error("RecordSubmission() should surface store failures")
	}
}
