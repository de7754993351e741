package models

import (
	"time"
)

// QuestionType names the section a flattened question came from.
type QuestionType string

const (
	TypeFillShort QuestionType = "fill_short"
	TypeReorder   QuestionType = "reorder"
	TypeFillLong  QuestionType = "fill_long"
	TypeReading   QuestionType = "reading"
)

// Mode selects how the question view is rendered.
type Mode string

const (
	ModeExam       Mode = "exam"       // answers can be selected
	ModeSubmission Mode = "submission" // review with correctness and explanations
)

// ReorderNoContext is the sentinel reorder groups use for "no shared context".
const ReorderNoContext = "_"

// ExamData is a full exam definition as produced by the loader.
// Sections are nil when absent or malformed; see decode.go.
type ExamData struct {
	QuizID           int64     `json:"quiz_id,omitempty"`
	Title            string    `json:"title,omitempty"`
	Groups           *Groups   `json:"groups,omitempty"`
	ReorderQuestions GroupList `json:"reorder_questions,omitempty"`
}

// Groups holds the named sections under "groups".
type Groups struct {
	FillShort GroupList `json:"fill_short,omitempty"`
	FillLong  GroupList `json:"fill_long,omitempty"`
	Reading   GroupList `json:"reading,omitempty"`
}

// GroupList is an ordered list of group entries of one section.
type GroupList []GroupEntry

// GroupEntry is a set of subquestions sharing one context (e.g. a reading passage).
// Subquestions is nil when the source had no usable subquestions array.
type GroupEntry struct {
	ID           string        `json:"id"`
	Context      *string       `json:"context"`
	Subquestions []SubQuestion `json:"subquestions"`
}

// SubQuestion is a single multiple-choice question. Options are formatted "A. text".
type SubQuestion struct {
	Content       string   `json:"content,omitempty"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// FlatQuestion is a numbered question derived from ExamData. Never mutated after creation.
type FlatQuestion struct {
	Num            int          `json:"num"`
	ID             string       `json:"id"`
	Type           QuestionType `json:"type"`
	Data           *SubQuestion `json:"data"`
	Context        *string      `json:"context"`
	IsFirstInGroup bool         `json:"is_first_in_group"`
	GroupID        string       `json:"group_id"`
}

// ContextGroup is a contiguous run of flattened questions sharing one originating group.
type ContextGroup struct {
	Context   *string        `json:"context"`
	Type      QuestionType   `json:"type"`
	GroupID   string         `json:"group_id"`
	Questions []FlatQuestion `json:"questions"`
}

// AnswersMap maps FlatQuestion.ID to the selected option letter.
type AnswersMap map[string]string

// ExamRecord is an ingested exam as stored in the exams table.
type ExamRecord struct {
	ID         int64     `json:"exam_id"`
	Title      string    `json:"title"`
	Data       *ExamData `json:"exam_data,omitempty"`
	Checksum   string    `json:"checksum"`
	SourcePath string    `json:"source_path"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GradedQuestion is the per-question result stored with a submission.
type GradedQuestion struct {
	QuestionID       string `json:"question_id"`
	GroupID          string `json:"group_id"`
	SubquestionIndex int    `json:"subquestion_index"`
	CorrectAnswer    string `json:"correct_answer"`
	UserChoice       string `json:"user_choice,omitempty"`
}

// UserExam is a graded submission of one exam by one user.
type UserExam struct {
	ExamID         int64            `json:"exam_id"`
	UserID         string           `json:"user_id"`
	ExamStartTime  string           `json:"exam_start_time"`
	ExamFinishTime string           `json:"exam_finish_time"`
	CorrectCount   int              `json:"correct_count"`
	TotalQuestions int              `json:"total_questions"`
	Questions      []GradedQuestion `json:"questions"`
	ExamData       *ExamData        `json:"exam_data"`
	UserAnswers    AnswersMap       `json:"user_answers"`
}

// UserExamSummary is the list view of a submission.
type UserExamSummary struct {
	ExamID         int64  `json:"exam_id"`
	ExamStartTime  string `json:"exam_start_time"`
	ExamFinishTime string `json:"exam_finish_time"`
	CorrectCount   int    `json:"correct_count"`
	TotalQuestions int    `json:"total_questions"`
}

// SubmissionRequest is the body of POST /api/v1/submissions.
type SubmissionRequest struct {
	ExamData      *ExamData  `json:"examData"`
	Answers       AnswersMap `json:"answers"`
	ExamStartTime string     `json:"examStartTime"`
}

// SubmissionResponse acknowledges a stored submission.
type SubmissionResponse struct {
	Message        string `json:"message"`
	ExamID         int64  `json:"exam_id"`
	CorrectCount   int    `json:"correct_count"`
	TotalQuestions int    `json:"total_questions"`
}

// SubmissionListResponse for GET /api/v1/submissions?type=all
type SubmissionListResponse struct {
	Exams []UserExamSummary `json:"exams"`
	Count int               `json:"count"`
}

// SubmissionDetailResponse for GET /api/v1/submissions?type=single
type SubmissionDetailResponse struct {
	ExamID      int64           `json:"exam_id"`
	QuestionIDs []string        `json:"question_ids"`
	ExamInfo    UserExamSummary `json:"exam_info"`
}

// RenderRequest carries the caller-owned state for a render pass.
type RenderRequest struct {
	Mode               Mode       `json:"mode"`
	Answers            AnswersMap `json:"answers"`
	ActiveChatQuestion string     `json:"active_chat_question"`
	ShowResultsAlways  bool       `json:"show_results_always"`
}

// ProgressRequest is the body of POST /api/v1/exams/:exam_id/progress.
type ProgressRequest struct {
	Answers     AnswersMap `json:"answers"`
	ShowResults bool       `json:"show_results"`
}

// ErrorLog represents an entry in the error_logs table
type ErrorLog struct {
	ID           int       `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Source       string    `json:"source"`
	ExamRef      string    `json:"exam_ref"`
	FilePath     *string   `json:"file_path"`
	FieldName    *string   `json:"field_name"`
	ErrorMessage string    `json:"error_message"`
	SuggestedFix *string   `json:"suggested_fix"`
}

// AdminEvent represents an entry in the admin_events table
type AdminEvent struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Target    string    `json:"target"`
	Notes     string    `json:"notes"`
}

// DashboardStats feeds the admin dashboard.
type DashboardStats struct {
	TotalExams        int
	TotalSubmissions  int
	DistinctUsers     int
	IngestionFailures int
	RecentEvents      []AdminEvent
	RecentExams       []ExamRecord
}
