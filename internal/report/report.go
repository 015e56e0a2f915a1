// Package report renders a learner's progress as an XLSX workbook or a PDF
// certificate.
package report

import (
	"fmt"
	"io"
	"slices"

	"github.com/felixgeelhaar/circuitscribe/internal/domain"
	"github.com/xuri/excelize/v2"
)

// Sheet names
const (
	SheetSummary    = "Summary"
	SheetChallenges = "Challenges"
	SheetDays       = "Arduino Days"
	SheetQuizzes    = "Quizzes"
)

// ChallengeLister supplies the catalog rows
type ChallengeLister interface {
	List() []domain.Challenge
}

// DayLister supplies the lesson rows
type DayLister interface {
	Days() []domain.LessonDay
}

// Write renders p as a workbook to w. Every catalog challenge and lesson day
// gets a row, completed or not.
func Write(w io.Writer, p *domain.UserProgress, challenges ChallengeLister, days DayLister) error {
	if p == nil {
		return fmt.Errorf("%w: no progress to report", domain.ErrInvalidInput)
	}

	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", SheetSummary)

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	summary := [][]any{
		{"Learner", p.LearnerID},
		{"XP", p.XP},
		{"Level", p.Level},
		{"Streak", p.Streak},
		{"Last login", p.LastLoginDate},
		{"Current day", p.Arduino.CurrentDay},
		{"Quizzes taken", p.Arduino.TotalQuizzesTaken},
		{"Challenges completed", len(p.Embedded.Completed)},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetSummary, "A1", fmt.Sprintf("A%d", len(summary)), header); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}

	rows := [][]any{{"ID", "Title", "Difficulty", "Completed"}}
	for _, ch := range challenges.List() {
		rows = append(rows, []any{ch.ID, ch.Title, string(ch.Difficulty), yesNo(p.HasCompletedChallenge(ch.ID))})
	}
	if err := addSheet(f, SheetChallenges, rows, header); err != nil {
		return err
	}

	rows = [][]any{{"Day", "Title", "Completed"}}
	for _, d := range days.Days() {
		rows = append(rows, []any{d.Day, d.Title, yesNo(slices.Contains(p.Arduino.CompletedDays, d.Day))})
	}
	if err := addSheet(f, SheetDays, rows, header); err != nil {
		return err
	}

	quizIDs := make([]string, 0, len(p.Arduino.QuizScores))
	for id := range p.Arduino.QuizScores {
		quizIDs = append(quizIDs, id)
	}
	slices.Sort(quizIDs)

	rows = [][]any{{"Quiz", "Score", "XP"}}
	for _, id := range quizIDs {
		score := p.Arduino.QuizScores[id]
		rows = append(rows, []any{id, score, domain.QuizXP(score)})
	}
	if err := addSheet(f, SheetQuizzes, rows, header); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func addSheet(f *excelize.File, name string, rows [][]any, headerStyle int) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	if err := writeRows(f, name, rows); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", name, err)
	}
	return f.SetColWidth(name, "A", "B", 24)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
