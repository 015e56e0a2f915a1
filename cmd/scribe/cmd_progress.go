package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/felixgeelhaar/circuitscribe/internal/config"
	"github.com/felixgeelhaar/circuitscribe/internal/domain"
	"github.com/felixgeelhaar/circuitscribe/internal/progress"
)

type profileResponse struct {
	Profile *domain.UserProgress `json:"profile"`
}

func requireDaemon(cfg *config.Config) error {
	if !isRunning(cfg.Daemon.URL()) {
		return fmt.Errorf("daemon not running (run 'scribe start' first)")
	}
	return nil
}

// cmdLogin records today's login and prints the refreshed profile
func cmdLogin(cfg *config.Config) error {
	if err := requireDaemon(cfg); err != nil {
		return err
	}

	var resp profileResponse
	if err := newClient(cfg).sendJSON(http.MethodPost, "/v1/profile/login", nil, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	fmt.Printf("Welcome back, %s!\n\n", cfg.MCP.LearnerID)
	printProfile(resp.Profile)
	return nil
}

// cmdProgress prints the stored profile without touching the streak
func cmdProgress(cfg *config.Config) error {
	if err := requireDaemon(cfg); err != nil {
		return err
	}

	var resp profileResponse
	if err := newClient(cfg).getJSON("/v1/profile", &resp); err != nil {
		return fmt.Errorf("get profile: %w", err)
	}
	if resp.Profile == nil {
		fmt.Println("No progress yet. Run 'scribe login' to start.")
		return nil
	}
	printProfile(resp.Profile)
	return nil
}

// cmdSubmit verifies a sketch on the daemon and records a pass
func cmdSubmit(cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: scribe submit <challenge> <file.ino>")
	}
	if err := requireDaemon(cfg); err != nil {
		return err
	}

	code, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read sketch: %w", err)
	}

	var outcome progress.SubmissionOutcome
	path := "/v1/challenges/" + url.PathEscape(args[0]) + "/submit"
	if err := newClient(cfg).sendJSON(http.MethodPost, path, map[string]string{"code": string(code)}, &outcome); err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	printResult(outcome.Result)
	fmt.Println()
	switch {
	case outcome.AlreadyCompleted:
		fmt.Println("Already completed. Nothing new recorded.")
	case outcome.Recorded:
		fmt.Println("✓ Challenge recorded as completed")
	default:
		fmt.Println("Not recorded. Fix the issues above and submit again.")
	}
	return nil
}

// cmdExport downloads the learner's report. The file extension picks the
// format: .pdf for a certificate, anything else for a workbook.
func cmdExport(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: scribe export <file.xlsx|file.pdf>")
	}
	if err := requireDaemon(cfg); err != nil {
		return err
	}

	path := "/v1/profile/report.xlsx"
	if strings.EqualFold(filepath.Ext(args[0]), ".pdf") {
		path = "/v1/profile/report.pdf"
	}

	resp, err := newClient(cfg).do(http.MethodGet, path, nil)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return fmt.Errorf("no progress recorded yet (run 'scribe login' first)")
		}
		return fmt.Errorf("export: %w", err)
	}
	defer resp.Body.Close()

	out, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	fmt.Printf("Report written to %s\n", args[0])
	return nil
}

func printProfile(p *domain.UserProgress) {
	intoLevel := p.XP % domain.XPPerLevel

	fmt.Println("Progress")
	fmt.Println("========")
	fmt.Printf("Level:   %d %s %d/%d XP\n", p.Level,
		bar(float64(intoLevel)/domain.XPPerLevel), intoLevel, domain.XPPerLevel)
	fmt.Printf("XP:      %d\n", p.XP)
	fmt.Printf("Streak:  %d day(s)\n", p.Streak)
	fmt.Printf("Day:     %s\n", p.Arduino.CurrentDay)

	fmt.Printf("\nArduino days completed: %s\n", listOrNone(p.Arduino.CompletedDays))
	fmt.Printf("Quizzes taken:          %d\n", p.Arduino.TotalQuizzesTaken)
	fmt.Printf("Challenges completed:   %s\n", listOrNone(p.Embedded.Completed))
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
