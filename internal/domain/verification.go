package domain

// Markers a sketch must contain to count as structurally complete
const (
	SetupMarker = "void setup()"
	LoopMarker  = "void loop()"
)

// PassingScore is the minimum score for a passing verification
const PassingScore = 70

// VerificationResult is the outcome of checking one submission
type VerificationResult struct {
	ChallengeID string   `json:"challenge_id"`
	Score       int      `json:"score"`
	Feedback    []string `json:"feedback"`
	Passed      bool     `json:"passed"`
	Suggestions []string `json:"suggestions"`
}

// RoundPercent returns round-half-up(100 * part / total) using integer math.
// A zero total yields 0.
func RoundPercent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*part + total) / (2 * total)
}
