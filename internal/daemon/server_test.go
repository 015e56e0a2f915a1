package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/circuitscribe/internal/auth"
	"github.com/felixgeelhaar/circuitscribe/internal/catalog"
	"github.com/felixgeelhaar/circuitscribe/internal/domain"
	"github.com/felixgeelhaar/circuitscribe/internal/progress"
	"github.com/felixgeelhaar/circuitscribe/internal/storage/local"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/xuri/excelize/v2"
)

const learner = "learner-1"

// setupTestServer creates a server backed by a JSON store in a temp dir
func setupTestServer(t *testing.T) (*Server, *progress.Service) {
	t.Helper()

	store, err := local.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	ledger := progress.NewService(store)

	server, err := NewServer(ServerConfig{
		Addr:        "127.0.0.1:0",
		Version:     "test",
		StoreDriver: "local",
		Ledger:      ledger,
		Auth:        auth.HeaderAuthenticator{},
	})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}
	return server, ledger
}

func do(t *testing.T, s *Server, method, path string, body any, learnerID string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if learnerID != "" {
		req.Header.Set(auth.LearnerHeader, learnerID)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func solution(t *testing.T, id string) string {
	t.Helper()
	ch, err := catalog.Default().Get(id)
	if err != nil {
		t.Fatal(err)
	}
	return ch.Solution
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	if _, err := NewServer(ServerConfig{Auth: auth.HeaderAuthenticator{}}); err == nil {
		t.Error("NewServer() without ledger should fail")
	}
	if _, err := NewServer(ServerConfig{Ledger: progress.NewService(nil)}); err == nil {
		t.Error("NewServer() without authenticator should fail")
	}
}

func TestHealthAndStatus(t *testing.T) {
	server, _ := setupTestServer(t)

	w := do(t, server, http.MethodGet, "/v1/health", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	if resp := decode[map[string]any](t, w); resp["status"] != "healthy" {
		t.Errorf("health = %v", resp)
	}

	w = do(t, server, http.MethodGet, "/v1/status", nil, "")
	resp := decode[map[string]any](t, w)
	if resp["store"] != "local" || resp["version"] != "test" {
		t.Errorf("status = %v", resp)
	}
	if int(resp["challenges"].(float64)) != catalog.Default().Len() {
		t.Errorf("challenges = %v", resp["challenges"])
	}
}

func TestListChallenges_OmitsSolutions(t *testing.T) {
	server, _ := setupTestServer(t)

	w := do(t, server, http.MethodGet, "/v1/challenges", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[struct {
		Challenges []domain.Challenge `json:"challenges"`
	}](t, w)

	if len(resp.Challenges) != catalog.Default().Len() {
		t.Fatalf("got %d challenges", len(resp.Challenges))
	}
	for _, ch := range resp.Challenges {
		if ch.Solution != "" {
			t.Errorf("challenge %s leaked its solution", ch.ID)
		}
		if len(ch.Requirements) == 0 {
			t.Errorf("challenge %s has no requirements", ch.ID)
		}
	}
}

func TestListChallenges_UnknownDifficulty(t *testing.T) {
	server, _ := setupTestServer(t)

	w := do(t, server, http.MethodGet, "/v1/challenges?difficulty=expert", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"challenges":[]`) {
		t.Errorf("body = %s, want an empty challenges array", w.Body.String())
	}
}

func TestGetChallenge(t *testing.T) {
	server, _ := setupTestServer(t)

	w := do(t, server, http.MethodGet, "/v1/challenges/blink-led", nil, "")
	ch := decode[domain.Challenge](t, w)
	if ch.ID != "blink-led" || ch.Solution != "" {
		t.Errorf("challenge = %+v", ch)
	}

	w = do(t, server, http.MethodGet, "/v1/challenges/blink-led?solution=true", nil, "")
	ch = decode[domain.Challenge](t, w)
	if ch.Solution == "" {
		t.Error("solution=true should include the solution")
	}

	w = do(t, server, http.MethodGet, "/v1/challenges/does-not-exist", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown challenge status = %d, want 404", w.Code)
	}
}

func TestVerify(t *testing.T) {
	server, _ := setupTestServer(t)

	w := do(t, server, http.MethodPost, "/v1/challenges/blink-led/verify", verifyRequest{Code: solution(t, "blink-led")}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	result := decode[domain.VerificationResult](t, w)
	if !result.Passed || result.Score != 100 {
		t.Errorf("result = %+v", result)
	}

	// Unknown challenges are reported in the result, not as an HTTP error
	w = do(t, server, http.MethodPost, "/v1/challenges/nope/verify", verifyRequest{Code: "void setup() {}"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("unknown status = %d", w.Code)
	}
	result = decode[domain.VerificationResult](t, w)
	if result.Score != 0 || result.Passed || len(result.Feedback) != 1 {
		t.Errorf("unknown result = %+v", result)
	}
}

func TestVerify_BadBody(t *testing.T) {
	server, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/challenges/blink-led/verify", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	resp := decode[map[string]any](t, w)
	if resp["error"] == nil || resp["details"] == nil {
		t.Errorf("error body = %v", resp)
	}
}

func TestVerify_RateLimited(t *testing.T) {
	store, err := local.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	server, err := NewServer(ServerConfig{
		Ledger: progress.NewService(store),
		Auth:   auth.HeaderAuthenticator{},
		VerifyLimiter: ratelimit.New(&ratelimit.Config{
			Rate:     1,
			Burst:    1,
			Interval: time.Hour,
		}),
	})
	if err != nil {
		t.Fatal(err)
	}

	body := verifyRequest{Code: "void setup() {} void loop() {}"}
	if w := do(t, server, http.MethodPost, "/v1/challenges/blink-led/verify", body, ""); w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}
	w := do(t, server, http.MethodPost, "/v1/challenges/blink-led/verify", body, "")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", w.Code)
	}
}

func TestSubmit(t *testing.T) {
	server, ledger := setupTestServer(t)
	ctx := context.Background()

	// Failing submission records nothing and needs no profile
	w := do(t, server, http.MethodPost, "/v1/challenges/blink-led/submit", verifyRequest{Code: "void setup() {}"}, learner)
	resp := decode[map[string]any](t, w)
	if resp["recorded"] != false {
		t.Errorf("failing submit recorded = %v", resp["recorded"])
	}
	if p, _ := ledger.GetProfile(ctx, learner); p != nil {
		t.Error("failing submit should not create a profile")
	}

	// Passing submission creates the profile and records completion
	w = do(t, server, http.MethodPost, "/v1/challenges/blink-led/submit", verifyRequest{Code: solution(t, "blink-led")}, learner)
	resp = decode[map[string]any](t, w)
	if resp["recorded"] != true {
		t.Errorf("passing submit recorded = %v", resp["recorded"])
	}
	p, err := ledger.GetProfile(ctx, learner)
	if err != nil || p == nil {
		t.Fatalf("GetProfile() = %v, %v", p, err)
	}
	if !p.HasCompletedChallenge("blink-led") {
		t.Error("challenge not recorded")
	}
	if p.XP != 0 {
		t.Errorf("challenge completion awarded %d XP, want 0", p.XP)
	}

	// Repeat is reported, not re-recorded
	w = do(t, server, http.MethodPost, "/v1/challenges/blink-led/submit", verifyRequest{Code: solution(t, "blink-led")}, learner)
	resp = decode[map[string]any](t, w)
	if resp["recorded"] != false || resp["already_completed"] != true {
		t.Errorf("repeat submit = %v", resp)
	}
}

func TestSubmit_RequiresLearner(t *testing.T) {
	server, _ := setupTestServer(t)

	w := do(t, server, http.MethodPost, "/v1/challenges/blink-led/submit", verifyRequest{Code: "x"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestLessons(t *testing.T) {
	server, _ := setupTestServer(t)

	w := do(t, server, http.MethodGet, "/v1/lessons", nil, "")
	days := decode[[]domain.LessonDay](t, w)
	if len(days) != 5 {
		t.Fatalf("got %d lesson days, want 5", len(days))
	}

	w = do(t, server, http.MethodGet, "/v1/lessons/1", nil, "")
	day := decode[domain.LessonDay](t, w)
	if day.Day != "1" || day.Title == "" {
		t.Errorf("day = %+v", day)
	}

	w = do(t, server, http.MethodGet, "/v1/lessons/9", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing day status = %d, want 404", w.Code)
	}
}

func TestProfileFlow(t *testing.T) {
	server, _ := setupTestServer(t)

	// No profile yet
	w := do(t, server, http.MethodGet, "/v1/profile", nil, learner)
	if w.Code != http.StatusOK {
		t.Fatalf("get profile status = %d", w.Code)
	}
	if resp := decode[map[string]any](t, w); resp["profile"] != nil {
		t.Errorf("profile = %v, want null", resp["profile"])
	}

	// Mutations before login are 404
	w = do(t, server, http.MethodPost, "/v1/profile/xp", map[string]int{"amount": 10}, learner)
	if w.Code != http.StatusNotFound {
		t.Errorf("award before login status = %d, want 404", w.Code)
	}

	w = do(t, server, http.MethodPost, "/v1/profile/login", nil, learner)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d", w.Code)
	}
	login := decode[struct {
		Profile domain.UserProgress `json:"profile"`
	}](t, w)
	if login.Profile.Level != 1 || login.Profile.Arduino.CurrentDay != "1" {
		t.Errorf("new profile = %+v", login.Profile)
	}

	w = do(t, server, http.MethodPost, "/v1/profile/days/1", nil, learner)
	award := decode[progress.AwardResult](t, w)
	if award.NewXP != 25 {
		t.Errorf("day award = %+v", award)
	}

	w = do(t, server, http.MethodPost, "/v1/profile/quizzes/day1", map[string]int{"score": 87}, learner)
	if resp := decode[map[string]int](t, w); resp["xp_awarded"] != 8 {
		t.Errorf("quiz xp = %v, want 8", resp)
	}

	w = do(t, server, http.MethodPost, "/v1/profile/xp", map[string]int{"amount": 70}, learner)
	award = decode[progress.AwardResult](t, w)
	if award.NewXP != 103 || award.NewLevel != 2 || !award.LeveledUp {
		t.Errorf("xp award = %+v", award)
	}

	w = do(t, server, http.MethodPut, "/v1/profile/current-day", map[string]string{"day": "3"}, learner)
	if w.Code != http.StatusOK {
		t.Errorf("set current day status = %d", w.Code)
	}

	w = do(t, server, http.MethodPost, "/v1/profile/challenges/servo-sweep", nil, learner)
	if w.Code != http.StatusOK {
		t.Errorf("mark challenge status = %d", w.Code)
	}

	w = do(t, server, http.MethodGet, "/v1/profile", nil, learner)
	got := decode[struct {
		Profile domain.UserProgress `json:"profile"`
	}](t, w).Profile

	if got.XP != 103 || got.Level != 2 {
		t.Errorf("xp/level = %d/%d", got.XP, got.Level)
	}
	if got.Arduino.CurrentDay != "3" {
		t.Errorf("current day = %q", got.Arduino.CurrentDay)
	}
	if got.Arduino.QuizScores["day1"] != 87 || got.Arduino.TotalQuizzesTaken != 1 {
		t.Errorf("quiz state = %+v", got.Arduino)
	}
	if len(got.Embedded.Completed) != 1 || got.Embedded.Completed[0] != "servo-sweep" {
		t.Errorf("completed = %v", got.Embedded.Completed)
	}
}

func TestProfile_BadInput(t *testing.T) {
	server, _ := setupTestServer(t)
	do(t, server, http.MethodPost, "/v1/profile/login", nil, learner)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"quiz score missing", http.MethodPost, "/v1/profile/quizzes/q1", map[string]string{}, http.StatusBadRequest},
		{"quiz score out of range", http.MethodPost, "/v1/profile/quizzes/q1", map[string]int{"score": 101}, http.StatusBadRequest},
		{"negative xp", http.MethodPost, "/v1/profile/xp", map[string]int{"amount": -5}, http.StatusBadRequest},
		{"unknown day", http.MethodPost, "/v1/profile/days/42", nil, http.StatusNotFound},
		{"unknown current day", http.MethodPut, "/v1/profile/current-day", map[string]string{"day": "42"}, http.StatusNotFound},
		{"unknown challenge", http.MethodPost, "/v1/profile/challenges/nope", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, server, tt.method, tt.path, tt.body, learner)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestReport(t *testing.T) {
	server, _ := setupTestServer(t)

	w := do(t, server, http.MethodGet, "/v1/profile/report.xlsx", nil, learner)
	if w.Code != http.StatusNotFound {
		t.Errorf("report without profile status = %d, want 404", w.Code)
	}

	do(t, server, http.MethodPost, "/v1/profile/login", nil, learner)
	w = do(t, server, http.MethodGet, "/v1/profile/report.xlsx", nil, learner)
	if w.Code != http.StatusOK {
		t.Fatalf("report status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type = %q", ct)
	}

	f, err := excelize.OpenReader(w.Body)
	if err != nil {
		t.Fatalf("report is not a workbook: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue("Summary", "B1"); v != learner {
		t.Errorf("report learner = %q", v)
	}
}

func TestReportPDF(t *testing.T) {
	server, _ := setupTestServer(t)
	do(t, server, http.MethodPost, "/v1/profile/login", nil, learner)

	w := do(t, server, http.MethodGet, "/v1/profile/report.pdf", nil, learner)
	if w.Code != http.StatusOK {
		t.Fatalf("report status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != pdfContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, ".pdf") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.HasPrefix(w.Body.String(), "%PDF-") {
		t.Error("body is not a PDF")
	}
}

// failingLedger returns err from every operation
type failingLedger struct {
	progress.Ledger
	err error
}

func (f failingLedger) GetProfile(context.Context, string) (*domain.UserProgress, error) {
	return nil, f.err
}

func (f failingLedger) AwardXP(context.Context, string, int) (progress.AwardResult, error) {
	return progress.AwardResult{}, f.err
}

func TestStoreErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unavailable", domain.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{"wrapped unavailable", errors.Join(errors.New("get profile"), domain.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"disk failure", errors.New("disk on fire"), http.StatusInternalServerError},
		{"not found", domain.ErrProfileNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(ServerConfig{
				Ledger: failingLedger{err: tt.err},
				Auth:   auth.HeaderAuthenticator{},
			})
			if err != nil {
				t.Fatal(err)
			}

			w := do(t, server, http.MethodGet, "/v1/profile", nil, learner)
			if w.Code != tt.want {
				t.Errorf("GET profile status = %d, want %d", w.Code, tt.want)
			}
			w = do(t, server, http.MethodPost, "/v1/profile/xp", map[string]int{"amount": 1}, learner)
			if w.Code != tt.want {
				t.Errorf("POST xp status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestJWTAuth(t *testing.T) {
	store, err := local.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	jwtAuth := auth.NewJWT([]byte("secret"), "circuitscribe")
	server, err := NewServer(ServerConfig{Ledger: progress.NewService(store), Auth: jwtAuth})
	if err != nil {
		t.Fatal(err)
	}

	token, err := jwtAuth.Issue("jwt-learner", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/profile/login", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	resp := decode[struct {
		Profile domain.UserProgress `json:"profile"`
	}](t, w)
	if resp.Profile.LearnerID != "jwt-learner" {
		t.Errorf("learner = %q", resp.Profile.LearnerID)
	}

	// The header shortcut is not honoured in jwt mode
	w = do(t, server, http.MethodGet, "/v1/profile", nil, "jwt-learner")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("header-only status = %d, want 401", w.Code)
	}
}
