// Package verifier scores a submitted Arduino sketch against a challenge's
// requirement list. Checks are literal substring tests; nothing is compiled
// or parsed.
package verifier

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/circuitscribe/internal/catalog"
	"github.com/felixgeelhaar/circuitscribe/internal/domain"
)

// Feedback and suggestion text
const (
	structureOK      = "✅ Has setup() and loop() functions"
	structureMissing = "❌ Missing setup() or loop() function"
	bracesOK         = "✅ Has opening and closing braces"
	bracesMissing    = "⚠️ Missing braces { }"

	closingPassed    = "🎉 Great job! Your code meets all the challenge requirements."
	closingKeepGoing = "💪 Almost there! Keep going, you're close."
	closingTryAgain  = "🔄 Not quite yet. Review the requirements and try again."

	suggestStructure = "Define both void setup() and void loop() functions"
)

// keepGoingScore is the lower bound of the "keep going" closing tier
const keepGoingScore = 50

// ChallengeSource resolves challenge ids
type ChallengeSource interface {
	Get(id string) (domain.Challenge, error)
}

// Verifier checks submissions against a challenge source
type Verifier struct {
	challenges ChallengeSource
}

// New creates a verifier backed by the given challenges
func New(challenges ChallengeSource) *Verifier {
	return &Verifier{challenges: challenges}
}

var defaultVerifier = New(catalog.Default())

// Verify checks code against the embedded catalog
func Verify(code, challengeID string) domain.VerificationResult {
	return defaultVerifier.Verify(code, challengeID)
}

// Verify scores code against the challenge's requirements. It never fails:
// an unknown challenge yields a zero score with a single feedback line.
func (v *Verifier) Verify(code, challengeID string) domain.VerificationResult {
	challenge, err := v.challenges.Get(challengeID)
	if err != nil {
		return domain.VerificationResult{
			ChallengeID: challengeID,
			Score:       0,
			Passed:      false,
			Feedback:    []string{fmt.Sprintf("❌ Unknown challenge: %s", challengeID)},
			Suggestions: []string{},
		}
	}

	feedback := make([]string, 0, len(challenge.Requirements)+3)
	suggestions := []string{}

	matched := 0
	for _, req := range challenge.Requirements {
		if strings.Contains(code, req) {
			matched++
			feedback = append(feedback, "✅ Found: "+req)
		} else {
			feedback = append(feedback, "❌ Missing: "+req)
			suggestions = append(suggestions, fmt.Sprintf("Add %s to your code", req))
		}
	}
	score := domain.RoundPercent(matched, len(challenge.Requirements))

	structured := HasStructure(code)
	if structured {
		feedback = append(feedback, structureOK)
	} else {
		feedback = append(feedback, structureMissing)
		suggestions = append(suggestions, suggestStructure)
	}

	// Presence only; unbalanced or misplaced braces still pass.
	if HasBraces(code) {
		feedback = append(feedback, bracesOK)
	} else {
		feedback = append(feedback, bracesMissing)
	}

	passed := score >= domain.PassingScore && structured
	feedback = append(feedback, closingLine(score, passed))

	return domain.VerificationResult{
		ChallengeID: challengeID,
		Score:       score,
		Feedback:    feedback,
		Passed:      passed,
		Suggestions: suggestions,
	}
}

// HasStructure reports whether code defines both setup() and loop()
func HasStructure(code string) bool {
	return strings.Contains(code, domain.SetupMarker) && strings.Contains(code, domain.LoopMarker)
}

// HasBraces reports whether code contains at least one '{' and one '}'
func HasBraces(code string) bool {
	return strings.Contains(code, "{") && strings.Contains(code, "}")
}

func closingLine(score int, passed bool) string {
	switch {
	case passed:
		return closingPassed
	case score >= keepGoingScore:
		return closingKeepGoing
	default:
		return closingTryAgain
	}
}
