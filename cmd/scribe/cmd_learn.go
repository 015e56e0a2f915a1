package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/felixgeelhaar/circuitscribe/internal/catalog"
	"github.com/felixgeelhaar/circuitscribe/internal/domain"
	"github.com/felixgeelhaar/circuitscribe/internal/lesson"
	"github.com/felixgeelhaar/circuitscribe/internal/verifier"
)

// cmdVerify checks a sketch file locally without touching progress
func cmdVerify(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: scribe verify <challenge> <file.ino>")
	}

	code, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read sketch: %w", err)
	}

	result := verifier.Verify(string(code), args[0])
	printResult(result)
	if !result.Passed {
		os.Exit(2)
	}
	return nil
}

func printResult(result domain.VerificationResult) {
	fmt.Printf("Challenge: %s\n", result.ChallengeID)
	fmt.Printf("Score:     %d %s\n\n", result.Score, bar(float64(result.Score)/100))
	for _, line := range result.Feedback {
		fmt.Println(line)
	}
	if len(result.Suggestions) > 0 {
		fmt.Println("\nSuggestions")
		fmt.Println("-----------")
		for _, s := range result.Suggestions {
			fmt.Printf("  - %s\n", s)
		}
	}
}

// cmdChallenges lists the catalog
func cmdChallenges(args []string) error {
	cat := catalog.Default()
	challenges := cat.List()
	if len(args) > 0 {
		d := domain.Difficulty(args[0])
		if !d.Valid() {
			return fmt.Errorf("unknown difficulty %q (valid: beginner, intermediate, advanced)", args[0])
		}
		challenges = cat.ByDifficulty(d)
	}

	fmt.Println("Challenges")
	fmt.Println("==========")
	for _, ch := range challenges {
		fmt.Printf("%-22s %-13s %s\n", ch.ID, ch.Difficulty, ch.Title)
		fmt.Printf("%-22s needs: %s\n", "", strings.Join(ch.Requirements, ", "))
	}
	return nil
}

// cmdLessons lists lesson days or prints one
func cmdLessons(args []string) error {
	book := lesson.Default()

	if len(args) == 0 {
		fmt.Println("Arduino Course")
		fmt.Println("==============")
		for _, d := range book.Days() {
			fmt.Printf("Day %s  %s\n", d.Day, d.Title)
		}
		return nil
	}

	day, err := book.Day(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Day %s: %s\n\n", day.Day, day.Title)
	fmt.Println(strings.TrimSpace(day.Content))

	if len(day.Questions) > 0 {
		fmt.Println("\nQuestions")
		fmt.Println("---------")
		for i, q := range day.Questions {
			fmt.Printf("%d. %s\n", i+1, q.Question)
			if q.Code != "" {
				fmt.Println(indent(q.Code, "     "))
			}
		}
	}

	fmt.Println("\nAssignment")
	fmt.Println("----------")
	fmt.Println(day.Assignment.Task)
	for _, req := range day.Assignment.Requirements {
		fmt.Printf("  - %s\n", req)
	}
	if day.Assignment.ExpectedOutput != "" {
		fmt.Printf("Expected output: %s\n", day.Assignment.ExpectedOutput)
	}
	return nil
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
