package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"examview-server/models"
)

// ErrNotFound is returned when a requested exam or submission does not exist.
var ErrNotFound = errors.New("not found")

// Store is the PostgreSQL-backed exam and submission store.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps a connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// UpsertExam inserts or replaces an exam. It reports false when the stored
// checksum already matched and nothing was written.
func (s *Store) UpsertExam(ctx context.Context, rec models.ExamRecord) (bool, error) {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return false, fmt.Errorf("failed to marshal exam %d: %w", rec.ID, err)
	}
	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO exams (id, title, exam_data, checksum, source_path, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			exam_data = EXCLUDED.exam_data,
			checksum = EXCLUDED.checksum,
			source_path = EXCLUDED.source_path,
			updated_at = NOW()
		WHERE exams.checksum <> EXCLUDED.checksum
		RETURNING id
	`, rec.ID, rec.Title, data, rec.Checksum, rec.SourcePath).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to upsert exam %d: %w", rec.ID, err)
	}
	return true, nil
}

// GetExam fetches one exam with its data.
func (s *Store) GetExam(ctx context.Context, id int64) (*models.ExamRecord, error) {
	var (
		rec  models.ExamRecord
		data []byte
		src  *string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, exam_data, checksum, source_path, updated_at FROM exams WHERE id = $1
	`, id).Scan(&rec.ID, &rec.Title, &data, &rec.Checksum, &src, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch exam %d: %w", id, err)
	}
	if src != nil {
		rec.SourcePath = *src
	}
	rec.Data = &models.ExamData{}
	if err := json.Unmarshal(data, rec.Data); err != nil {
		return nil, fmt.Errorf("failed to decode exam %d: %w", id, err)
	}
	return &rec, nil
}

// SaveUserExam stores a graded submission, replacing an earlier one for the same exam and user.
func (s *Store) SaveUserExam(ctx context.Context, ue models.UserExam) error {
	questions, err := json.Marshal(ue.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal graded questions: %w", err)
	}
	examData, err := json.Marshal(ue.ExamData)
	if err != nil {
		return fmt.Errorf("failed to marshal exam data: %w", err)
	}
	answers, err := json.Marshal(ue.UserAnswers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO user_exams (exam_id, user_id, exam_start_time, exam_finish_time, correct_count, total_questions, questions, exam_data, user_answers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (exam_id, user_id) DO UPDATE SET
			exam_start_time = EXCLUDED.exam_start_time,
			exam_finish_time = EXCLUDED.exam_finish_time,
			correct_count = EXCLUDED.correct_count,
			total_questions = EXCLUDED.total_questions,
			questions = EXCLUDED.questions,
			exam_data = EXCLUDED.exam_data,
			user_answers = EXCLUDED.user_answers
	`, ue.ExamID, ue.UserID, ue.ExamStartTime, ue.ExamFinishTime, ue.CorrectCount, ue.TotalQuestions, questions, examData, answers)
	if err != nil {
		return fmt.Errorf("failed to save submission of exam %d for %s: %w", ue.ExamID, ue.UserID, err)
	}
	return nil
}

// ListUserExams lists a user's submissions, newest first.
func (s *Store) ListUserExams(ctx context.Context, userID string) ([]models.UserExamSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT exam_id, COALESCE(exam_start_time, ''), exam_finish_time, correct_count, total_questions
		FROM user_exams WHERE user_id = $1
		ORDER BY exam_finish_time DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions for %s: %w", userID, err)
	}
	defer rows.Close()

	summaries := []models.UserExamSummary{}
	for rows.Next() {
		var ue models.UserExamSummary
		if err := rows.Scan(&ue.ExamID, &ue.ExamStartTime, &ue.ExamFinishTime, &ue.CorrectCount, &ue.TotalQuestions); err != nil {
			return nil, fmt.Errorf("failed to scan submission row: %w", err)
		}
		summaries = append(summaries, ue)
	}
	return summaries, rows.Err()
}

// GetUserExam fetches one submission with everything needed to review it.
func (s *Store) GetUserExam(ctx context.Context, examID int64, userID string) (*models.UserExam, error) {
	var (
		ue                          models.UserExam
		questions, examData, answer []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT exam_id, user_id, COALESCE(exam_start_time, ''), exam_finish_time, correct_count, total_questions, questions, exam_data, user_answers
		FROM user_exams WHERE exam_id = $1 AND user_id = $2
	`, examID, userID).Scan(&ue.ExamID, &ue.UserID, &ue.ExamStartTime, &ue.ExamFinishTime, &ue.CorrectCount, &ue.TotalQuestions, &questions, &examData, &answer)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch submission of exam %d for %s: %w", examID, userID, err)
	}
	if err := json.Unmarshal(questions, &ue.Questions); err != nil {
		return nil, fmt.Errorf("failed to decode graded questions: %w", err)
	}
	ue.ExamData = &models.ExamData{}
	if err := json.Unmarshal(examData, ue.ExamData); err != nil {
		return nil, fmt.Errorf("failed to decode submitted exam: %w", err)
	}
	if err := json.Unmarshal(answer, &ue.UserAnswers); err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}
	return &ue, nil
}

// DashboardStats collects the admin dashboard metrics.
func (s *Store) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	var st models.DashboardStats
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM exams),
			(SELECT COUNT(*) FROM user_exams),
			(SELECT COUNT(DISTINCT user_id) FROM user_exams),
			(SELECT COUNT(*) FROM error_logs WHERE source = 'ingestion')
	`).Scan(&st.TotalExams, &st.TotalSubmissions, &st.DistinctUsers, &st.IngestionFailures)
	if err != nil {
		return st, fmt.Errorf("failed to query dashboard metrics: %w", err)
	}

	events, err := s.pool.Query(ctx, `SELECT id, timestamp, action, actor, target, notes FROM admin_events ORDER BY timestamp DESC LIMIT 5`)
	if err != nil {
		return st, fmt.Errorf("failed to query admin events: %w", err)
	}
	for events.Next() {
		var ae models.AdminEvent
		if err := events.Scan(&ae.ID, &ae.Timestamp, &ae.Action, &ae.Actor, &ae.Target, &ae.Notes); err != nil {
			events.Close()
			return st, fmt.Errorf("failed to scan admin event: %w", err)
		}
		st.RecentEvents = append(st.RecentEvents, ae)
	}
	events.Close()

	exams, err := s.pool.Query(ctx, `SELECT id, title, checksum, updated_at FROM exams ORDER BY updated_at DESC LIMIT 5`)
	if err != nil {
		return st, fmt.Errorf("failed to query recent exams: %w", err)
	}
	defer exams.Close()
	for exams.Next() {
		var rec models.ExamRecord
		if err := exams.Scan(&rec.ID, &rec.Title, &rec.Checksum, &rec.UpdatedAt); err != nil {
			return st, fmt.Errorf("failed to scan exam row: %w", err)
		}
		st.RecentExams = append(st.RecentExams, rec)
	}
	return st, exams.Err()
}

// ListErrorLogs returns error log entries matching search and, when set, source.
func (s *Store) ListErrorLogs(ctx context.Context, search, source string) ([]models.ErrorLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, timestamp, source, COALESCE(exam_ref, ''), file_path, field_name, error_message, suggested_fix
		FROM error_logs
		WHERE (COALESCE(exam_ref, '') ILIKE $1 OR error_message ILIKE $1)
		AND ($2 = '' OR source = $2)
		ORDER BY timestamp DESC
		LIMIT 200
	`, "%"+search+"%", source)
	if err != nil {
		return nil, fmt.Errorf("failed to query error logs: %w", err)
	}
	defer rows.Close()

	var logs []models.ErrorLog
	for rows.Next() {
		var e models.ErrorLog
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Source, &e.ExamRef, &e.FilePath, &e.FieldName, &e.ErrorMessage, &e.SuggestedFix); err != nil {
			return nil, fmt.Errorf("failed to scan error log row: %w", err)
		}
		logs = append(logs, e)
	}
	return logs, rows.Err()
}

// LogError records an error_logs entry.
func (s *Store) LogError(source, examRef, filePath, fieldName, errMsg, fixSug string) {
	LogError(s.pool, source, examRef, filePath, fieldName, errMsg, fixSug)
}

// LogAdminEvent records an admin_events entry.
func (s *Store) LogAdminEvent(actor, action, target, notes string) {
	LogAdminEvent(s.pool, actor, action, target, notes)
}
