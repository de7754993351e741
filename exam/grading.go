package exam

import (
	"strconv"
	"strings"

	"examview-server/models"
)

// GradeReport is the outcome of grading one submission.
type GradeReport struct {
	CorrectCount   int
	TotalQuestions int
	Questions      []models.GradedQuestion
}

// Grade scores answers against data in flattened order, so graded question
// ids match the ids the view renders.
func Grade(data *models.ExamData, answers models.AnswersMap) GradeReport {
	flat := Flatten(data)
	report := GradeReport{
		TotalQuestions: len(flat),
		Questions:      make([]models.GradedQuestion, 0, len(flat)),
	}
	for _, q := range flat {
		choice := answers[q.ID]
		if IsCorrect(choice, q.Data.CorrectAnswer) {
			report.CorrectCount++
		}
		report.Questions = append(report.Questions, models.GradedQuestion{
			QuestionID:       q.ID,
			GroupID:          q.GroupID,
			SubquestionIndex: subquestionIndex(q.ID),
			CorrectAnswer:    q.Data.CorrectAnswer,
			UserChoice:       choice,
		})
	}
	return report
}

// subquestionIndex recovers the index suffix of a question id.
func subquestionIndex(id string) int {
	i := strings.LastIndexByte(id, '-')
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil {
		return 0
	}
	return n
}
