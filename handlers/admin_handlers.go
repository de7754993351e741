// --- examview-server/handlers/admin_handlers.go ---
package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"examview-server/ingestion"
	"examview-server/middleware"
	"examview-server/templates"
)

// AdminDashboard renders the admin dashboard with metrics and recent activity.
// GET /admin/dashboard
func AdminDashboard(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := d.Store.DashboardStats(c.Request.Context())
		if err != nil {
			// partial stats are still worth showing
			log.Printf("Error fetching dashboard metrics: %v", err)
		}
		c.HTML(http.StatusOK, templates.AdminDashboardPage, gin.H{
			"Title":  "Examview Admin Dashboard",
			"Stats":  stats,
			"UserID": c.GetString(middleware.UserIDKey),
		})
	}
}

// AdminErrorLogs lists error log entries with optional search and source filter.
// GET /admin/error_logs?search=&source=
func AdminErrorLogs(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		search := strings.TrimSpace(c.Query("search"))
		source := c.Query("source")
		logs, err := d.Store.ListErrorLogs(c.Request.Context(), search, source)
		if err != nil {
			log.Printf("Error querying error logs: %v", err)
			respondError(c, true, http.StatusInternalServerError, "Failed to retrieve error logs")
			return
		}
		c.HTML(http.StatusOK, templates.AdminErrorLogsPage, gin.H{
			"Title":  "Error Logs",
			"Logs":   logs,
			"Search": search,
			"Source": source,
			"UserID": c.GetString(middleware.UserIDKey),
		})
	}
}

// TriggerIngestion re-reads the exam directory now.
// POST /admin/ingest
func TriggerIngestion(d *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := RunIngestion(c.Request.Context(), d, c.GetString(middleware.UserIDKey))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Ingestion failed: %v", err)})
			return
		}
		updated := res.Updated
		if updated == nil {
			updated = []int64{}
		}
		c.JSON(http.StatusOK, gin.H{
			"message":   "Ingestion completed",
			"processed": res.Processed,
			"unchanged": res.Unchanged,
			"skipped":   res.Skipped,
			"updated":   updated,
		})
	}
}

// RunIngestion ingests the exam directory, evicts stale cached exams and
// records the outcome as an admin event.
func RunIngestion(ctx context.Context, d *Deps, actor string) (ingestion.Result, error) {
	res, err := ingestion.ProcessExamDirectory(ctx, d.Store, d.DataPath)
	if err != nil {
		log.Printf("Error during ingestion of %s: %v", d.DataPath, err)
		d.Store.LogAdminEvent(actor, "ingestion_failed", d.DataPath, fmt.Sprintf("Error: %v", err))
		return res, err
	}
	if len(res.Updated) > 0 {
		if err := d.Cache.Delete(ctx, res.Updated...); err != nil {
			log.Printf("Failed to evict re-ingested exams from cache: %v", err)
		}
		for _, id := range res.Updated {
			d.Memo.Forget(id)
		}
	}
	d.Store.LogAdminEvent(actor, "ingestion_success", d.DataPath,
		fmt.Sprintf("%d processed, %d updated, %d unchanged, %d skipped", res.Processed, len(res.Updated), res.Unchanged, res.Skipped))
	return res, nil
}

