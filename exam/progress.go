package exam

import (
	"fmt"
	"sort"

	"examview-server/models"
)

// Progress is the answered-vs-total count shown by the question list.
type Progress struct {
	Total    int `json:"total"`
	Answered int `json:"answered"`
}

// Count counts stored answers against the question set. Answered is the number
// of keys in answers, whether or not they name a known question.
func Count(questions []models.FlatQuestion, answers models.AnswersMap) Progress {
	return Progress{Total: len(questions), Answered: len(answers)}
}

// CountKnown is Count restricted to answers whose key is a question id and
// whose value is non-empty.
func CountKnown(questions []models.FlatQuestion, answers models.AnswersMap) Progress {
	p := Progress{Total: len(questions)}
	for _, q := range questions {
		if answers[q.ID] != "" {
			p.Answered++
		}
	}
	return p
}

// StaleAnswerKeys returns answer keys that match no question, sorted.
func StaleAnswerKeys(questions []models.FlatQuestion, answers models.AnswersMap) []string {
	known := make(map[string]struct{}, len(questions))
	for _, q := range questions {
		known[q.ID] = struct{}{}
	}
	var stale []string
	for k := range answers {
		if _, ok := known[k]; !ok {
			stale = append(stale, k)
		}
	}
	sort.Strings(stale)
	return stale
}

// ButtonState classifies a navigation button.
type ButtonState string

const (
	StateNotAnswered ButtonState = "not-answered"
	StateAnswered    ButtonState = "answered"
	StateCorrect     ButtonState = "correct"
	StateIncorrect   ButtonState = "incorrect"
)

// Classify returns the button state of q. Without showResults only
// answered/not-answered is distinguished.
func Classify(q models.FlatQuestion, answers models.AnswersMap, showResults bool) ButtonState {
	answer := answers[q.ID]
	switch {
	case answer == "":
		return StateNotAnswered
	case !showResults:
		return StateAnswered
	case q.Data != nil && answer == q.Data.CorrectAnswer:
		return StateCorrect
	default:
		return StateIncorrect
	}
}

// NavButton is one numbered button of the question list.
type NavButton struct {
	Num   int         `json:"num"`
	ID    string      `json:"id"`
	State ButtonState `json:"state"`
	Title string      `json:"title"`
}

// Sidebar is the question-list widget.
type Sidebar struct {
	Progress
	ShowResults bool        `json:"show_results"`
	Buttons     []NavButton `json:"buttons"`
}

// BuildSidebar computes counts and one button per question.
func BuildSidebar(questions []models.FlatQuestion, answers models.AnswersMap, showResults bool) Sidebar {
	sb := Sidebar{
		Progress:    CountKnown(questions, answers),
		ShowResults: showResults,
		Buttons:     make([]NavButton, 0, len(questions)),
	}
	for _, q := range questions {
		title := fmt.Sprintf("Question %d", q.Num)
		if a := answers[q.ID]; a != "" {
			title = fmt.Sprintf("%s - Selected: %s", title, a)
		}
		sb.Buttons = append(sb.Buttons, NavButton{
			Num:   q.Num,
			ID:    q.ID,
			State: Classify(q, answers, showResults),
			Title: title,
		})
	}
	return sb
}
