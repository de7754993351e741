package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"examview-server/db"
	"examview-server/exam"
	"examview-server/middleware"
	"examview-server/models"
	"examview-server/templates"
)

// ExamPage renders an exam for answering.
// GET /exams/:exam_id
func ExamPage(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := d.examFromParam(c, true)
		if !ok {
			return
		}
		layout := d.layout(rec)
		c.HTML(http.StatusOK, templates.ExamPage, gin.H{
			"Title":   rec.Title,
			"ExamID":  rec.ID,
			"UserID":  c.GetString(middleware.UserIDKey),
			"View":    exam.BuildView(layout, exam.RenderOptions{Mode: models.ModeExam, ChatEnabled: d.ChatEnabled}),
			"Sidebar": exam.BuildSidebar(layout.Questions, nil, false),
		})
	}
}

// SubmissionPage renders the caller's stored submission with results.
// GET /submissions/:exam_id?show_all=true&chat=<question id>
func SubmissionPage(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := userID(c, true)
		if !ok {
			return
		}
		examID, err := parseExamID(c.Param("exam_id"))
		if err != nil {
			respondError(c, true, http.StatusBadRequest, "Invalid exam ID")
			return
		}
		ue, err := d.Store.GetUserExam(c.Request.Context(), examID, uid)
		if errors.Is(err, db.ErrNotFound) {
			respondError(c, true, http.StatusNotFound, "Submission not found")
			return
		}
		if err != nil {
			log.Printf("Error loading submission of exam %d for %s: %v", examID, uid, err)
			respondError(c, true, http.StatusInternalServerError, "Failed to load submission")
			return
		}

		// The submitted exam data is per user, so it bypasses the memo.
		layout := exam.NewLayout(ue.ExamData)
		view := exam.BuildView(layout, exam.RenderOptions{
			Mode:               models.ModeSubmission,
			Answers:            ue.UserAnswers,
			ActiveChatQuestion: c.Query("chat"),
			ShowResultsAlways:  c.Query("show_all") == "true",
			ChatEnabled:        d.ChatEnabled,
		})
		title := fmt.Sprintf("Results: exam %d (%d/%d)", ue.ExamID, ue.CorrectCount, ue.TotalQuestions)
		if ue.ExamData != nil && ue.ExamData.Title != "" {
			title = fmt.Sprintf("Results: %s (%d/%d)", ue.ExamData.Title, ue.CorrectCount, ue.TotalQuestions)
		}
		c.HTML(http.StatusOK, templates.ExamPage, gin.H{
			"Title":   title,
			"ExamID":  ue.ExamID,
			"UserID":  uid,
			"View":    view,
			"Sidebar": exam.BuildSidebar(layout.Questions, ue.UserAnswers, true),
		})
	}
}

// RenderQuestions renders the questions fragment for client-held state.
// POST /api/v1/exams/:exam_id/render
func RenderQuestions(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RenderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		switch req.Mode {
		case "":
			req.Mode = models.ModeExam
		case models.ModeExam, models.ModeSubmission:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown mode %q", req.Mode)})
			return
		}
		rec, ok := d.examFromParam(c, false)
		if !ok {
			return
		}
		c.HTML(http.StatusOK, templates.QuestionsFragment, exam.BuildView(d.layout(rec), exam.RenderOptions{
			Mode:               req.Mode,
			Answers:            req.Answers,
			ActiveChatQuestion: req.ActiveChatQuestion,
			ShowResultsAlways:  req.ShowResultsAlways,
			ChatEnabled:        d.ChatEnabled,
		}))
	}
}

// GetQuestions returns the flattened questions of an exam.
// GET /api/v1/exams/:exam_id/questions
func GetQuestions(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := d.examFromParam(c, false)
		if !ok {
			return
		}
		questions := d.layout(rec).Questions
		c.JSON(http.StatusOK, gin.H{
			"exam_id":   rec.ID,
			"title":     rec.Title,
			"total":     len(questions),
			"questions": questions,
		})
	}
}

type progressResponse struct {
	exam.Sidebar
	StaleAnswerKeys []string `json:"stale_answer_keys,omitempty"`
}

// GetProgress counts answers and classifies each question button.
// POST /api/v1/exams/:exam_id/progress
func GetProgress(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ProgressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rec, ok := d.examFromParam(c, false)
		if !ok {
			return
		}
		questions := d.layout(rec).Questions
		stale := exam.StaleAnswerKeys(questions, req.Answers)
		if len(stale) > 0 {
			log.Printf("Exam %d: ignoring answers for unknown questions %s", rec.ID, strings.Join(stale, ", "))
		}
		c.JSON(http.StatusOK, progressResponse{
			Sidebar:         exam.BuildSidebar(questions, req.Answers, req.ShowResults),
			StaleAnswerKeys: stale,
		})
	}
}
