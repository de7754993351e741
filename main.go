package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"examview-server/cache"
	"examview-server/config"
	"examview-server/db"
	"examview-server/exam"
	"examview-server/handlers"
	"examview-server/middleware"
	"examview-server/templates"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	// Initialize database connection pool
	pool, err := db.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.CreateSchema(pool); err != nil {
		log.Fatalf("Error creating database schema: %v", err)
	}
	store := db.NewStore(pool)

	examCache, err := cache.NewExamCache(cfg.Redis)
	if err != nil {
		log.Fatalf("Unable to connect to Redis: %v", err)
	}
	if examCache == nil {
		log.Println("REDIS.ADDR not set, exam cache disabled")
	}
	defer examCache.Close()

	deps := &handlers.Deps{
		Store:       store,
		Cache:       examCache,
		Memo:        exam.NewMemo(cfg.Render.MemoSize),
		ChatEnabled: cfg.Render.ChatEnabled,
		DataPath:    cfg.Exams.DataPath,
	}

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())

	renderer, err := templates.NewRenderer()
	if err != nil {
		log.Fatalf("Error loading templates: %v", err)
	}
	router.HTMLRender = renderer

	assets, err := templates.StaticFS()
	if err != nil {
		log.Fatalf("Error loading static assets: %v", err)
	}
	router.StaticFS("/static", assets)

	authMiddleware := middleware.AuthMiddleware(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer)

	// Pages
	pages := router.Group("/")
	pages.Use(authMiddleware)
	{
		pages.GET("/exams/:exam_id", handlers.ExamPage(deps))
		pages.GET("/submissions/:exam_id", handlers.SubmissionPage(deps))
	}

	// API Routes (version 1)
	apiV1 := router.Group("/api/v1")
	apiV1.Use(authMiddleware)
	{
		apiV1.POST("/exams/:exam_id/render", handlers.RenderQuestions(deps))
		apiV1.GET("/exams/:exam_id/questions", handlers.GetQuestions(deps))
		apiV1.POST("/exams/:exam_id/progress", handlers.GetProgress(deps))
		apiV1.POST("/submissions", handlers.SubmitExam(deps))
		apiV1.GET("/submissions", handlers.GetSubmissions(deps))
	}

	// Admin UI Routes
	admin := router.Group("/admin")
	admin.Use(authMiddleware)
	admin.Use(middleware.RoleCheckMiddleware([]string{"admin", "instructor"}))
	{
		admin.GET("/dashboard", handlers.AdminDashboard(deps))
		admin.GET("/error_logs", handlers.AdminErrorLogs(deps))
		admin.POST("/ingest", handlers.TriggerIngestion(deps))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initial ingestion, then periodic re-ingestion of the exam directory
	if _, err := handlers.RunIngestion(ctx, deps, "system"); err != nil {
		log.Printf("Initial ingestion failed: %v", err)
	}
	go func() {
		ticker := time.NewTicker(cfg.IngestionInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Println("Running scheduled exam ingestion...")
				if _, err := handlers.RunIngestion(ctx, deps, "system"); err != nil {
					log.Printf("Scheduled ingestion failed: %v", err)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:    cfg.ServerPort,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("Examview server starting on %s", cfg.ServerPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server startup error: %v", err)
	}
	log.Println("Server exited gracefully.")
}
