package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"examview-server/db"
	"examview-server/exam"
	"examview-server/middleware"
	"examview-server/models"
	"examview-server/templates"
)

type submissionKey struct {
	examID int64
	userID string
}

type fakeStore struct {
	exams       map[int64]*models.ExamRecord
	submissions map[submissionKey]models.UserExam
	events      []string
	logged      []string
	examReads   int
	failSave    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		exams:       make(map[int64]*models.ExamRecord),
		submissions: make(map[submissionKey]models.UserExam),
	}
}

func (f *fakeStore) UpsertExam(_ context.Context, rec models.ExamRecord) (bool, error) {
	if old, ok := f.exams[rec.ID]; ok && old.Checksum == rec.Checksum {
		return false, nil
	}
	f.exams[rec.ID] = &rec
	return true, nil
}

func (f *fakeStore) LogError(source, examRef, filePath, fieldName, errMsg, fixSug string) {
	f.logged = append(f.logged, source+":"+errMsg)
}

func (f *fakeStore) GetExam(_ context.Context, id int64) (*models.ExamRecord, error) {
	f.examReads++
	rec, ok := f.exams[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) SaveUserExam(_ context.Context, ue models.UserExam) error {
	if f.failSave {
		return errors.New("connection reset")
	}
	f.submissions[submissionKey{ue.ExamID, ue.UserID}] = ue
	return nil
}

func (f *fakeStore) ListUserExams(_ context.Context, userID string) ([]models.UserExamSummary, error) {
	out := []models.UserExamSummary{}
	for k, ue := range f.submissions {
		if k.userID == userID {
			out = append(out, models.UserExamSummary{ExamID: ue.ExamID, ExamFinishTime: ue.ExamFinishTime, CorrectCount: ue.CorrectCount, TotalQuestions: ue.TotalQuestions})
		}
	}
	return out, nil
}

func (f *fakeStore) GetUserExam(_ context.Context, examID int64, userID string) (*models.UserExam, error) {
	ue, ok := f.submissions[submissionKey{examID, userID}]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &ue, nil
}

func (f *fakeStore) DashboardStats(context.Context) (models.DashboardStats, error) {
	return models.DashboardStats{TotalExams: len(f.exams), TotalSubmissions: len(f.submissions)}, nil
}

func (f *fakeStore) ListErrorLogs(context.Context, string, string) ([]models.ErrorLog, error) {
	return []models.ErrorLog{{Source: "ingestion", ExamRef: "9", ErrorMessage: "Subquestion has no options"}}, nil
}

func (f *fakeStore) LogAdminEvent(actor, action, target, notes string) {
	f.events = append(f.events, action)
}

func strPtr(s string) *string { return &s }

func sampleData() *models.ExamData {
	return &models.ExamData{
		QuizID: 1,
		Title:  "Sample exam",
		Groups: &models.Groups{
			FillShort: models.GroupList{{
				ID:      "fs1",
				Context: strPtr("Choose the **best** word"),
				Subquestions: []models.SubQuestion{
					{Content: "I ___ here.", Options: []string{"A. am", "B. is"}, CorrectAnswer: "A", Explanation: "First person."},
					{Content: "She ___ here.", Options: []string{"A. am", "B. is"}, CorrectAnswer: "B"},
				},
			}},
		},
	}
}

func setup(t *testing.T, user string) (*gin.Engine, *fakeStore, *Deps) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := newFakeStore()
	store.exams[1] = &models.ExamRecord{ID: 1, Title: "Sample exam", Data: sampleData(), Checksum: "c1"}
	d := &Deps{Store: store, Memo: exam.NewMemo(8), ChatEnabled: true, DataPath: t.TempDir()}

	renderer, err := templates.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	r := gin.New()
	r.HTMLRender = renderer
	r.Use(func(c *gin.Context) {
		if user != "" {
			c.Set(middleware.UserIDKey, user)
		}
		c.Next()
	})
	r.GET("/exams/:exam_id", ExamPage(d))
	r.GET("/submissions/:exam_id", SubmissionPage(d))
	r.POST("/api/v1/exams/:exam_id/render", RenderQuestions(d))
	r.GET("/api/v1/exams/:exam_id/questions", GetQuestions(d))
	r.POST("/api/v1/exams/:exam_id/progress", GetProgress(d))
	r.POST("/api/v1/submissions", SubmitExam(d))
	r.GET("/api/v1/submissions", GetSubmissions(d))
	r.GET("/admin/dashboard", AdminDashboard(d))
	r.GET("/admin/error_logs", AdminErrorLogs(d))
	r.POST("/admin/ingest", TriggerIngestion(d))
	return r, store, d
}

func perform(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestExamPage(t *testing.T) {
	r, store, d := setup(t, "u1")

	w := perform(r, http.MethodGet, "/exams/1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	for _, want := range []string{
		"<title>Sample exam</title>",
		"Part 1: Short fill-in",
		"Choose the <strong>best</strong> word",
		`data-action="select-answer" data-question-id="fs1-0" data-option="A"`,
		`href="#question-2"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}

	perform(r, http.MethodGet, "/exams/1", nil)
	if d.Memo.Len() != 1 || store.examReads != 2 {
		t.Fatalf("memo len = %d, store reads = %d", d.Memo.Len(), store.examReads)
	}
}

func TestExamPageErrors(t *testing.T) {
	r, _, _ := setup(t, "u1")
	tests := []struct {
		path   string
		status int
	}{
		{"/exams/abc", http.StatusBadRequest},
		{"/exams/0", http.StatusBadRequest},
		{"/exams/99", http.StatusNotFound},
	}
	for _, tc := range tests {
		w := perform(r, http.MethodGet, tc.path, nil)
		if w.Code != tc.status {
			t.Fatalf("%s: status = %d, want %d", tc.path, w.Code, tc.status)
		}
		if !strings.Contains(w.Body.String(), `class="error-page"`) {
			t.Fatalf("%s: expected the HTML error page", tc.path)
		}
	}
}

func TestRenderQuestions(t *testing.T) {
	r, _, _ := setup(t, "u1")

	w := perform(r, http.MethodPost, "/api/v1/exams/1/render", models.RenderRequest{
		Mode:               models.ModeSubmission,
		Answers:            models.AnswersMap{"fs1-0": "B", "fs1-1": "B"},
		ActiveChatQuestion: "fs1-1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	for _, want := range []string{"user-answer-incorrect", "user-answer-correct", "correct-answer-highlight", "chat-bubble active"} {
		if !strings.Contains(body, want) {
			t.Errorf("fragment missing %q", want)
		}
	}
	if strings.Contains(body, "<html") {
		t.Error("fragment must not include the page layout")
	}

	w = perform(r, http.MethodPost, "/api/v1/exams/1/render", map[string]any{"mode": "preview"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown mode: status = %d", w.Code)
	}
	w = perform(r, http.MethodPost, "/api/v1/exams/42/render", models.RenderRequest{})
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing exam: status = %d", w.Code)
	}
}

func TestGetQuestions(t *testing.T) {
	r, _, _ := setup(t, "u1")
	w := perform(r, http.MethodGet, "/api/v1/exams/1/questions", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Total     int                   `json:"total"`
		Questions []models.FlatQuestion `json:"questions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || len(resp.Questions) != 2 || resp.Questions[1].ID != "fs1-1" || resp.Questions[1].Num != 2 {
		t.Fatalf("unexpected questions: %+v", resp)
	}
}

func TestGetProgress(t *testing.T) {
	r, _, _ := setup(t, "u1")
	w := perform(r, http.MethodPost, "/api/v1/exams/1/progress", models.ProgressRequest{
		Answers:     models.AnswersMap{"fs1-0": "B", "gone-3": "A"},
		ShowResults: true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Total    int              `json:"total"`
		Answered int              `json:"answered"`
		Stale    []string         `json:"stale_answer_keys"`
		Buttons  []exam.NavButton `json:"buttons"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || resp.Answered != 1 {
		t.Fatalf("counts = %d/%d", resp.Answered, resp.Total)
	}
	if len(resp.Stale) != 1 || resp.Stale[0] != "gone-3" {
		t.Fatalf("stale keys = %v", resp.Stale)
	}
	if resp.Buttons[0].State != exam.StateIncorrect || resp.Buttons[1].State != exam.StateNotAnswered {
		t.Fatalf("unexpected buttons: %+v", resp.Buttons)
	}
	if resp.Buttons[0].Title != "Question 1 - Selected: B" {
		t.Fatalf("title = %q", resp.Buttons[0].Title)
	}
}

func TestSubmitAndReview(t *testing.T) {
	r, store, _ := setup(t, "u1")

	w := perform(r, http.MethodPost, "/api/v1/submissions", models.SubmissionRequest{
		ExamData:      sampleData(),
		Answers:       models.AnswersMap{"fs1-0": "A", "fs1-1": "A"},
		ExamStartTime: "2026-10-17T08:00:00Z",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp models.SubmissionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.ExamID != 1 || resp.CorrectCount != 1 || resp.TotalQuestions != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	saved := store.submissions[submissionKey{1, "u1"}]
	if saved.ExamFinishTime == "" || len(saved.Questions) != 2 || saved.Questions[1].SubquestionIndex != 1 {
		t.Fatalf("unexpected stored submission: %+v", saved)
	}

	w = perform(r, http.MethodGet, "/api/v1/submissions?type=single&exam_id=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("single: status = %d", w.Code)
	}
	var detail models.SubmissionDetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatal(err)
	}
	if len(detail.QuestionIDs) != 2 || detail.QuestionIDs[0] != "fs1-0" || detail.ExamInfo.CorrectCount != 1 {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	w = perform(r, http.MethodGet, "/api/v1/submissions", nil)
	var list models.SubmissionListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if list.Count != 1 || list.Exams[0].ExamID != 1 {
		t.Fatalf("unexpected list: %+v", list)
	}

	w = perform(r, http.MethodGet, "/submissions/1?chat=fs1-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("review page: status = %d: %s", w.Code, w.Body.String())
	}
	page := w.Body.String()
	for _, want := range []string{"Results: Sample exam (1/2)", "user-answer-correct", "user-answer-incorrect", "question-btn correct", "question-btn incorrect", "chat-bubble active"} {
		if !strings.Contains(page, want) {
			t.Errorf("review page missing %q", want)
		}
	}
}

func TestSubmitGradesStoredExam(t *testing.T) {
	r, store, _ := setup(t, "u1")

	forged := sampleData()
	forged.Title = "Forged"
	forged.Groups.FillShort[0].Subquestions[1].CorrectAnswer = "A"
	w := perform(r, http.MethodPost, "/api/v1/submissions", models.SubmissionRequest{
		ExamData: forged,
		Answers:  models.AnswersMap{"fs1-0": "A", "fs1-1": "A"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp models.SubmissionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.CorrectCount != 1 {
		t.Fatalf("correct_count = %d, the submitted answer key must be ignored", resp.CorrectCount)
	}
	saved := store.submissions[submissionKey{1, "u1"}]
	if saved.ExamData.Title != "Sample exam" || saved.ExamData.Groups.FillShort[0].Subquestions[1].CorrectAnswer != "B" {
		t.Fatalf("stored exam should be the server copy: %+v", saved.ExamData)
	}

	forged.QuizID = 77
	w = perform(r, http.MethodPost, "/api/v1/submissions", models.SubmissionRequest{ExamData: forged})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown exam: status = %d", w.Code)
	}
}

func TestSubmissionErrors(t *testing.T) {
	r, store, _ := setup(t, "u1")
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"missing quiz id", http.MethodPost, "/api/v1/submissions", map[string]any{"examData": map[string]any{"title": "x"}}, http.StatusBadRequest},
		{"missing exam data", http.MethodPost, "/api/v1/submissions", map[string]any{"answers": map[string]string{}}, http.StatusBadRequest},
		{"bad type", http.MethodGet, "/api/v1/submissions?type=some", nil, http.StatusBadRequest},
		{"missing exam id", http.MethodGet, "/api/v1/submissions?type=single", nil, http.StatusBadRequest},
		{"unknown submission", http.MethodGet, "/api/v1/submissions?type=single&exam_id=5", nil, http.StatusNotFound},
		{"unknown review page", http.MethodGet, "/submissions/5", nil, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := perform(r, tc.method, tc.path, tc.body)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tc.status, w.Body.String())
			}
		})
	}

	store.failSave = true
	w := perform(r, http.MethodPost, "/api/v1/submissions", models.SubmissionRequest{ExamData: sampleData()})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("save failure: status = %d", w.Code)
	}
	if len(store.logged) != 1 || !strings.HasPrefix(store.logged[0], "submission:") {
		t.Fatalf("save failure not logged: %v", store.logged)
	}
}

func TestSubmissionsRequireUser(t *testing.T) {
	r, _, _ := setup(t, "")
	if w := perform(r, http.MethodGet, "/api/v1/submissions", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if w := perform(r, http.MethodPost, "/api/v1/submissions", models.SubmissionRequest{ExamData: sampleData()}); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAdminPages(t *testing.T) {
	r, _, _ := setup(t, "admin1")
	w := perform(r, http.MethodGet, "/admin/dashboard", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Examview Admin Dashboard") {
		t.Fatalf("dashboard: status = %d", w.Code)
	}
	w = perform(r, http.MethodGet, "/admin/error_logs?source=ingestion", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Subquestion has no options") {
		t.Fatalf("error logs: status = %d: %s", w.Code, w.Body.String())
	}
}

func TestTriggerIngestion(t *testing.T) {
	r, store, d := setup(t, "admin1")
	doc := "quiz_id: 1\ntitle: Revised\ngroups:\n  fill_long:\n    - id: fl1\n      subquestions:\n        - options: [\"A. a\", \"B. b\"]\n          correct_answer: B\n"
	if err := os.WriteFile(filepath.Join(d.DataPath, "exam1.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	perform(r, http.MethodGet, "/exams/1", nil)
	if d.Memo.Len() != 1 {
		t.Fatal("layout should be memoized before ingestion")
	}

	w := perform(r, http.MethodPost, "/admin/ingest", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Processed int     `json:"processed"`
		Updated   []int64 `json:"updated"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Processed != 1 || len(resp.Updated) != 1 || resp.Updated[0] != 1 {
		t.Fatalf("unexpected result: %+v", resp)
	}
	if store.exams[1].Title != "Revised" {
		t.Fatal("exam was not replaced")
	}
	if d.Memo.Len() != 0 {
		t.Fatal("re-ingested exam should be evicted from the memo")
	}
	if len(store.events) != 1 || store.events[0] != "ingestion_success" {
		t.Fatalf("events = %v", store.events)
	}

	w = perform(r, http.MethodGet, "/exams/1", nil)
	if !strings.Contains(w.Body.String(), "Part 3: Sentence completion") {
		t.Fatal("page should show the re-ingested exam")
	}
}

func TestTriggerIngestionMissingDir(t *testing.T) {
	r, store, d := setup(t, "admin1")
	d.DataPath = filepath.Join(d.DataPath, "missing")
	w := perform(r, http.MethodPost, "/admin/ingest", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if len(store.events) != 1 || store.events[0] != "ingestion_failed" {
		t.Fatalf("events = %v", store.events)
	}
}
