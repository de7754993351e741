// --- examview-server/db/db.go ---
package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"examview-server/models"
	"examview-server/utils"
)

// InitDB initializes the PostgreSQL database connection pool
func InitDB(connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Ping the database to verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to PostgreSQL database!")
	return pool, nil
}

// CreateSchema sets up the tables used by the exam view server.
func CreateSchema(pool *pgxpool.Pool) error {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS exams (
		id BIGINT PRIMARY KEY,          -- quiz_id from the exam file
		title TEXT NOT NULL DEFAULT '',
		exam_data JSONB NOT NULL,
		checksum VARCHAR(64) NOT NULL,  -- sha256 of the canonical exam JSON
		source_path TEXT,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS user_exams (
		exam_id BIGINT NOT NULL,
		user_id VARCHAR(255) NOT NULL,
		exam_start_time TEXT,
		exam_finish_time TEXT NOT NULL,
		correct_count INT NOT NULL,
		total_questions INT NOT NULL,
		questions JSONB NOT NULL,
		exam_data JSONB NOT NULL,       -- exam as submitted, so reviews survive re-ingestion
		user_answers JSONB NOT NULL,
		PRIMARY KEY (exam_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_user_exams_user ON user_exams (user_id);

	CREATE TABLE IF NOT EXISTS error_logs (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		source TEXT NOT NULL, -- e.g., "ingestion"
		exam_ref TEXT,
		file_path TEXT,
		field_name TEXT,
		error_message TEXT NOT NULL,
		suggested_fix TEXT
	);

	CREATE TABLE IF NOT EXISTS admin_events (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		action VARCHAR(255),
		actor VARCHAR(255), -- User id or 'system'
		target TEXT,        -- e.g., exam id, file path
		notes TEXT
	);
	`
	_, err := pool.Exec(context.Background(), schemaSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}
	return nil
}

// LogError adds an entry to the error_logs table
func LogError(pool *pgxpool.Pool, source, examRef, filePath, fieldName, errMsg, fixSug string) {
	entry := newErrorLog(source, examRef, filePath, fieldName, errMsg, fixSug)
	_, err := pool.Exec(context.Background(), `
		INSERT INTO error_logs (source, exam_ref, file_path, field_name, error_message, suggested_fix)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.Source, entry.ExamRef, entry.FilePath, entry.FieldName, entry.ErrorMessage, entry.SuggestedFix)
	if err != nil {
		log.Printf("ERROR: Failed to log error to database: %v. Original error: %s", err, errMsg)
	}
}

// newErrorLog builds an error_logs row; empty optional fields become NULL.
func newErrorLog(source, examRef, filePath, fieldName, errMsg, fixSug string) models.ErrorLog {
	return models.ErrorLog{
		Source:       source,
		ExamRef:      examRef,
		FilePath:     utils.StringPtr(filePath),
		FieldName:    utils.StringPtr(fieldName),
		ErrorMessage: errMsg,
		SuggestedFix: utils.StringPtr(fixSug),
	}
}

// LogAdminEvent adds an entry to the admin_events table
func LogAdminEvent(pool *pgxpool.Pool, actor, action, target, notes string) {
	_, err := pool.Exec(context.Background(), `
		INSERT INTO admin_events (action, actor, target, notes)
		VALUES ($1, $2, $3, $4)
	`, action, actor, target, notes)
	if err != nil {
		log.Printf("ERROR: Failed to log admin event to database: %v. Event: %s by %s on %s", err, action, actor, target)
	}
}
