package daemon

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/felixgeelhaar/circuitscribe/internal/auth"
	"github.com/felixgeelhaar/circuitscribe/internal/domain"
	"github.com/felixgeelhaar/circuitscribe/internal/progress"
	"github.com/felixgeelhaar/circuitscribe/internal/report"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfContentType  = "application/pdf"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":     "running",
		"version":    s.version,
		"store":      s.storeDriver,
		"challenges": s.catalog.Len(),
		"lessons":    len(s.lessons.Days()),
	})
}

// Challenge handlers

func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	challenges := s.catalog.List()
	if d := r.URL.Query().Get("difficulty"); d != "" {
		challenges = s.catalog.ByDifficulty(domain.Difficulty(d))
	}
	for i := range challenges {
		challenges[i] = challenges[i].WithoutSolution()
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"challenges": challenges,
	})
}

func (s *Server) handleGetChallenge(w http.ResponseWriter, r *http.Request) {
	ch, err := s.catalog.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, "challenge not found", err)
		return
	}
	if withSolution, _ := strconv.ParseBool(r.URL.Query().Get("solution")); !withSolution {
		ch = ch.WithoutSolution()
	}
	jsonResponse(w, http.StatusOK, ch)
}

type verifyRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "invalid request body", err)
		return
	}
	jsonResponse(w, http.StatusOK, s.verifier.Verify(req.Code, r.PathValue("id")))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	learnerID, _ := auth.LearnerFrom(r.Context())

	var req verifyRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "invalid request body", err)
		return
	}

	result := s.verifier.Verify(req.Code, r.PathValue("id"))
	outcome, err := progress.RecordSubmission(r.Context(), s.ledger, learnerID, result)
	if err != nil {
		writeError(w, "failed to record completion", err)
		return
	}
	jsonResponse(w, http.StatusOK, outcome)
}

// Lesson handlers

func (s *Server) handleListLessons(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, s.lessons.Days())
}

func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	day, err := s.lessons.Day(r.PathValue("day"))
	if err != nil {
		writeError(w, "lesson not found", err)
		return
	}
	jsonResponse(w, http.StatusOK, day)
}

// Profile handlers

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	learnerID, _ := auth.LearnerFrom(r.Context())
	profile, err := s.ledger.InitializeOrRefreshProfile(r.Context(), learnerID)
	if err != nil {
		writeError(w, "failed to refresh profile", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"profile": profile,
	})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	learnerID, _ := auth.LearnerFrom(r.Context())
	profile, err := s.ledger.GetProfile(r.Context(), learnerID)
	if err != nil {
		writeError(w, "failed to get profile", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"profile": profile,
	})
}

func (s *Server) handleMarkChallenge(w http.ResponseWriter, r *http.Request) {
	learnerID, _ := auth.LearnerFrom(r.Context())
	challengeID := r.PathValue("id")
	if !s.catalog.Has(challengeID) {
		writeError(w, "challenge not found", fmt.Errorf("%w: %s", domain.ErrChallengeNotFound, challengeID))
		return
	}

	if err := s.ledger.MarkChallengeComplete(r.Context(), learnerID, challengeID); err != nil {
		writeError(w, "failed to mark challenge complete", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"challenge_id": challengeID,
	})
}

func (s *Server) handleMarkDay(w http.ResponseWriter, r *http.Request) {
	learnerID, _ := auth.LearnerFrom(r.Context())
	day := r.PathValue("day")
	if !s.lessons.Has(day) {
		writeError(w, "lesson not found", fmt.Errorf("%w: day %s", domain.ErrLessonNotFound, day))
		return
	}

	result, err := s.ledger.MarkArduinoDayComplete(r.Context(), learnerID, day)
	if err != nil {
		writeError(w, "failed to mark day complete", err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleSetCurrentDay(w http.ResponseWriter, r *http.Request) {
	learnerID, _ := auth.LearnerFrom(r.Context())

	var req struct {
		Day string `json:"day"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "invalid request body", err)
		return
	}
	if !s.lessons.Has(req.Day) {
		writeError(w, "lesson not found", fmt.Errorf("%w: day %q", domain.ErrLessonNotFound, req.Day))
		return
	}

	if err := s.ledger.SetCurrentArduinoDay(r.Context(), learnerID, req.Day); err != nil {
		writeError(w, "failed to set current day", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"current_day": req.Day,
	})
}

func (s *Server) handleQuizScore(w http.ResponseWriter, r *http.Request) {
	learnerID, _ := auth.LearnerFrom(r.Context())

	var req struct {
		Score *int `json:"score"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "invalid request body", err)
		return
	}
	if req.Score == nil {
		writeError(w, "score is required", fmt.Errorf("%w: score is required", domain.ErrInvalidInput))
		return
	}

	xp, err := s.ledger.UpdateQuizScore(r.Context(), learnerID, r.PathValue("quiz"), *req.Score)
	if err != nil {
		writeError(w, "failed to record quiz score", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]interface{}{
		"xp_awarded": xp,
	})
}

func (s *Server) handleAwardXP(w http.ResponseWriter, r *http.Request) {
	learnerID, _ := auth.LearnerFrom(r.Context())

	var req struct {
		Amount int `json:"amount"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, "invalid request body", err)
		return
	}

	result, err := s.ledger.AwardXP(r.Context(), learnerID, req.Amount)
	if err != nil {
		writeError(w, "failed to award xp", err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// reportRenderer writes one report format for a profile
type reportRenderer func(w io.Writer, p *domain.UserProgress, challenges report.ChallengeLister, days report.DayLister) error

func (s *Server) handleReport(contentType, ext string, render reportRenderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		learnerID, _ := auth.LearnerFrom(r.Context())
		profile, err := s.ledger.GetProfile(r.Context(), learnerID)
		if err != nil {
			writeError(w, "failed to get profile", err)
			return
		}
		if profile == nil {
			writeError(w, "profile not found", fmt.Errorf("%w: %s", domain.ErrProfileNotFound, learnerID))
			return
		}

		var buf bytes.Buffer
		if err := render(&buf, profile, s.catalog, s.lessons); err != nil {
			writeError(w, "failed to render report", err)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "progress-"+learnerID+ext))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}
