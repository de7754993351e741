package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"examview-server/cache"
	"examview-server/db"
	"examview-server/exam"
	"examview-server/ingestion"
	"examview-server/middleware"
	"examview-server/models"
	"examview-server/templates"
)

// Store is the persistence the handlers need; *db.Store implements it.
type Store interface {
	ingestion.Store
	GetExam(ctx context.Context, id int64) (*models.ExamRecord, error)
	SaveUserExam(ctx context.Context, ue models.UserExam) error
	ListUserExams(ctx context.Context, userID string) ([]models.UserExamSummary, error)
	GetUserExam(ctx context.Context, examID int64, userID string) (*models.UserExam, error)
	DashboardStats(ctx context.Context) (models.DashboardStats, error)
	ListErrorLogs(ctx context.Context, search, source string) ([]models.ErrorLog, error)
	LogAdminEvent(actor, action, target, notes string)
}

var _ Store = (*db.Store)(nil)

// Deps bundles what the handlers share.
type Deps struct {
	Store       Store
	Cache       *cache.ExamCache // nil disables the shared cache
	Memo        *exam.Memo
	ChatEnabled bool
	DataPath    string
}

var errBadExamID = errors.New("invalid exam id")

func parseExamID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadExamID
	}
	return id, nil
}

// loadExam reads through the shared cache. Cache failures are logged and
// fall back to the database.
func (d *Deps) loadExam(ctx context.Context, id int64) (*models.ExamRecord, error) {
	rec, ok, err := d.Cache.Get(ctx, id)
	if err != nil {
		log.Printf("Cache read failed for exam %d: %v", id, err)
	}
	if ok {
		return rec, nil
	}
	rec, err = d.Store.GetExam(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := d.Cache.Set(ctx, rec); err != nil {
		log.Printf("Cache write failed for exam %d: %v", id, err)
	}
	return rec, nil
}

// layout returns the memoized layout of an exam revision.
func (d *Deps) layout(rec *models.ExamRecord) exam.Layout {
	return d.Memo.Layout(exam.MemoKey{ExamID: rec.ID, Checksum: rec.Checksum}, rec.Data)
}

// examFromParam resolves :exam_id, writing the error response itself when it fails.
func (d *Deps) examFromParam(c *gin.Context, html bool) (*models.ExamRecord, bool) {
	id, err := parseExamID(c.Param("exam_id"))
	if err != nil {
		respondError(c, html, http.StatusBadRequest, "Invalid exam ID")
		return nil, false
	}
	rec, err := d.loadExam(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		respondError(c, html, http.StatusNotFound, "Exam not found")
		return nil, false
	}
	if err != nil {
		log.Printf("Error loading exam %d: %v", id, err)
		respondError(c, html, http.StatusInternalServerError, "Failed to load exam")
		return nil, false
	}
	return rec, true
}

func respondError(c *gin.Context, html bool, status int, msg string) {
	if html {
		c.HTML(status, templates.ErrorPage, gin.H{
			"Title":  "Error",
			"Status": status,
			"Error":  msg,
			"UserID": c.GetString(middleware.UserIDKey),
		})
		return
	}
	c.JSON(status, gin.H{"error": msg})
}

// userID returns the authenticated user, or responds 401.
func userID(c *gin.Context, html bool) (string, bool) {
	id := c.GetString(middleware.UserIDKey)
	if id == "" {
		respondError(c, html, http.StatusUnauthorized, "Unauthorized: user not found")
		return "", false
	}
	return id, true
}
