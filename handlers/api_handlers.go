// --- examview-server/handlers/api_handlers.go ---
package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"examview-server/db"
	"examview-server/exam"
	"examview-server/models"
)

// SubmitExam grades and stores a finished exam for the caller.
// POST /api/v1/submissions
func SubmitExam(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := userID(c, false)
		if !ok {
			return
		}
		var req models.SubmissionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.ExamData == nil || req.ExamData.QuizID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing quiz_id in examData"})
			return
		}

		// the client's copy only names the exam; grading uses the stored one
		rec, err := d.loadExam(c.Request.Context(), req.ExamData.QuizID)
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Exam not found"})
			return
		}
		if err != nil {
			log.Printf("Error loading exam %d for submission: %v", req.ExamData.QuizID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load exam"})
			return
		}

		report := exam.Grade(rec.Data, req.Answers)
		answers := req.Answers
		if answers == nil {
			answers = models.AnswersMap{}
		}
		ue := models.UserExam{
			ExamID:         rec.ID,
			UserID:         uid,
			ExamStartTime:  req.ExamStartTime,
			ExamFinishTime: time.Now().UTC().Format(time.RFC3339),
			CorrectCount:   report.CorrectCount,
			TotalQuestions: report.TotalQuestions,
			Questions:      report.Questions,
			ExamData:       rec.Data,
			UserAnswers:    answers,
		}
		if err := d.Store.SaveUserExam(c.Request.Context(), ue); err != nil {
			log.Printf("Error saving submission of exam %d for %s: %v", ue.ExamID, uid, err)
			d.Store.LogError("submission", strconv.FormatInt(ue.ExamID, 10), "", "", "Failed to save submission", fmt.Sprintf("Database error: %v", err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save submission"})
			return
		}
		c.JSON(http.StatusOK, models.SubmissionResponse{
			Message:        "Exam submitted successfully",
			ExamID:         ue.ExamID,
			CorrectCount:   ue.CorrectCount,
			TotalQuestions: ue.TotalQuestions,
		})
	}
}

// GetSubmissions lists the caller's submissions or describes one of them.
// GET /api/v1/submissions?type=all
// GET /api/v1/submissions?type=single&exam_id=N
func GetSubmissions(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := userID(c, false)
		if !ok {
			return
		}
		switch c.DefaultQuery("type", "all") {
		case "all":
			exams, err := d.Store.ListUserExams(c.Request.Context(), uid)
			if err != nil {
				log.Printf("Error listing submissions for %s: %v", uid, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve submissions"})
				return
			}
			c.JSON(http.StatusOK, models.SubmissionListResponse{Exams: exams, Count: len(exams)})

		case "single":
			examID, err := parseExamID(c.Query("exam_id"))
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid exam_id"})
				return
			}
			ue, err := d.Store.GetUserExam(c.Request.Context(), examID, uid)
			if errors.Is(err, db.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
				return
			}
			if err != nil {
				log.Printf("Error fetching submission of exam %d for %s: %v", examID, uid, err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve submission"})
				return
			}
			ids := make([]string, 0, len(ue.Questions))
			for _, q := range ue.Questions {
				ids = append(ids, q.QuestionID)
			}
			c.JSON(http.StatusOK, models.SubmissionDetailResponse{
				ExamID:      ue.ExamID,
				QuestionIDs: ids,
				ExamInfo: models.UserExamSummary{
					ExamID:         ue.ExamID,
					ExamStartTime:  ue.ExamStartTime,
					ExamFinishTime: ue.ExamFinishTime,
					CorrectCount:   ue.CorrectCount,
					TotalQuestions: ue.TotalQuestions,
				},
			})

		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "type must be 'all' or 'single'"})
		}
	}
}
