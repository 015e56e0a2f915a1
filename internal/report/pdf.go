package report

import (
	"fmt"
	"io"
	"slices"

	"github.com/felixgeelhaar/circuitscribe/internal/domain"
	"github.com/jung-kurt/gofpdf"
)

// WritePDF renders a one-page progress certificate to w
func WritePDF(w io.Writer, p *domain.UserProgress, challenges ChallengeLister, days DayLister) error {
	if p == nil {
		return fmt.Errorf("%w: no progress to report", domain.ErrInvalidInput)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Circuit Scribe progress", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 12, "Circuit Scribe", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, tr("Progress report for "+p.LearnerID), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	section(pdf, "Summary")
	for _, row := range [][2]string{
		{"Level", fmt.Sprint(p.Level)},
		{"XP", fmt.Sprint(p.XP)},
		{"Streak", fmt.Sprintf("%d day(s)", p.Streak)},
		{"Last login", p.LastLoginDate},
		{"Current day", p.Arduino.CurrentDay},
		{"Quizzes taken", fmt.Sprint(p.Arduino.TotalQuizzesTaken)},
	} {
		pdf.CellFormat(50, 7, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	section(pdf, "Arduino course")
	for _, d := range days.Days() {
		mark := "[ ]"
		if slices.Contains(p.Arduino.CompletedDays, d.Day) {
			mark = "[x]"
		}
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("%s Day %s: %s", mark, d.Day, d.Title)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	section(pdf, "Challenges")
	for _, ch := range challenges.List() {
		mark := "[ ]"
		if p.HasCompletedChallenge(ch.ID) {
			mark = "[x]"
		}
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("%s %s (%s)", mark, ch.Title, ch.Difficulty)), "", 1, "L", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 9, title, "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.Ln(2)
}
