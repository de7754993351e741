package exam

import (
	"fmt"

	"examview-server/models"
)

// section pairs a question type with the groups it is read from.
type section struct {
	qType  models.QuestionType
	groups models.GroupList
}

// sections lists the exam's sections in display order. The order defines
// question numbering and must match the order submissions are graded in.
func sections(data *models.ExamData) []section {
	var g models.Groups
	if data.Groups != nil {
		g = *data.Groups
	}
	return []section{
		{qType: models.TypeFillShort, groups: g.FillShort},
		{qType: models.TypeReorder, groups: data.ReorderQuestions},
		{qType: models.TypeFillLong, groups: g.FillLong},
		{qType: models.TypeReading, groups: g.Reading},
	}
}

// QuestionID builds the id of the idx-th subquestion of a group.
func QuestionID(groupID string, idx int) string {
	return fmt.Sprintf("%s-%d", groupID, idx)
}

// Flatten walks every section and returns the exam's questions numbered 1..N.
// Entries without subquestions contribute nothing. A nil exam yields nil.
func Flatten(data *models.ExamData) []models.FlatQuestion {
	if data == nil {
		return nil
	}
	var questions []models.FlatQuestion
	num := 1
	for _, s := range sections(data) {
		for gi := range s.groups {
			group := &s.groups[gi]
			context := groupContext(s.qType, group.Context)
			for i := range group.Subquestions {
				questions = append(questions, models.FlatQuestion{
					Num:            num,
					ID:             QuestionID(group.ID, i),
					Type:           s.qType,
					Data:           &group.Subquestions[i],
					Context:        context,
					IsFirstInGroup: i == 0,
					GroupID:        group.ID,
				})
				num++
			}
		}
	}
	return questions
}

// groupContext maps the reorder "_" sentinel and empty reorder contexts to nil.
func groupContext(qType models.QuestionType, context *string) *string {
	if qType == models.TypeReorder && context != nil && (*context == models.ReorderNoContext || *context == "") {
		return nil
	}
	return context
}
