package progress

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/circuitscribe/internal/domain"
)

// SubmissionOutcome reports what a submission changed in the ledger
type SubmissionOutcome struct {
	Result           domain.VerificationResult `json:"result"`
	Recorded         bool                      `json:"recorded"`
	AlreadyCompleted bool                      `json:"already_completed"`
}

// RecordSubmission stores a passing verification as a completed challenge.
// A learner without a profile gets one first. Failing results and repeats
// leave the ledger untouched.
func RecordSubmission(ctx context.Context, l Ledger, learnerID string, result domain.VerificationResult) (SubmissionOutcome, error) {
	out := SubmissionOutcome{Result: result}
	if !result.Passed {
		return out, nil
	}

	p, err := l.GetProfile(ctx, learnerID)
	if err == nil && p == nil {
		p, err = l.InitializeOrRefreshProfile(ctx, learnerID)
	}
	if err != nil {
		return out, fmt.Errorf("record submission: %w", err)
	}

	if p.HasCompletedChallenge(result.ChallengeID) {
		out.AlreadyCompleted = true
		return out, nil
	}

	if err := l.MarkChallengeComplete(ctx, learnerID, result.ChallengeID); err != nil {
		return out, err
	}
	out.Recorded = true
	return out, nil
}
