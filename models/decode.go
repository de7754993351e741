package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Exam data arrives from loaders and clients in loosely shaped JSON. Decoding
// never fails on shape: sections that are not arrays become nil, entries that
// are not objects are dropped, and a subquestions field that is not an array
// leaves Subquestions nil so the entry contributes zero questions.

// UnmarshalJSON decodes ExamData, accepting quiz_id as a number or numeric string.
func (e *ExamData) UnmarshalJSON(b []byte) error {
	var aux struct {
		QuizID           json.RawMessage `json:"quiz_id"`
		Title            json.RawMessage `json:"title"`
		Groups           json.RawMessage `json:"groups"`
		ReorderQuestions GroupList       `json:"reorder_questions"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*e = ExamData{
		QuizID:           rawInt64(aux.QuizID),
		Title:            rawText(aux.Title),
		ReorderQuestions: aux.ReorderQuestions,
	}
	if isObject(aux.Groups) {
		var g Groups
		if err := json.Unmarshal(aux.Groups, &g); err == nil {
			e.Groups = &g
		}
	}
	return nil
}

// UnmarshalJSON decodes a section; anything but an array yields nil.
func (l *GroupList) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		*l = nil
		return nil
	}
	out := make(GroupList, 0, len(raw))
	for _, r := range raw {
		var entry GroupEntry
		if err := json.Unmarshal(r, &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	*l = out
	return nil
}

// UnmarshalJSON decodes a group entry. The id may be a string or a number.
func (g *GroupEntry) UnmarshalJSON(b []byte) error {
	var aux struct {
		ID           json.RawMessage `json:"id"`
		Context      json.RawMessage `json:"context"`
		Subquestions json.RawMessage `json:"subquestions"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*g = GroupEntry{ID: rawText(aux.ID)}
	if s, ok := rawString(aux.Context); ok {
		g.Context = &s
	}
	var subs []json.RawMessage
	if err := json.Unmarshal(aux.Subquestions, &subs); err == nil && subs != nil {
		g.Subquestions = make([]SubQuestion, len(subs))
		for i, r := range subs {
			// a non-object element still occupies its slot
			_ = json.Unmarshal(r, &g.Subquestions[i])
		}
	}
	return nil
}

// UnmarshalJSON decodes a subquestion, coercing scalar fields to text.
func (q *SubQuestion) UnmarshalJSON(b []byte) error {
	var aux struct {
		Content       json.RawMessage   `json:"content"`
		Options       []json.RawMessage `json:"options"`
		CorrectAnswer json.RawMessage   `json:"correct_answer"`
		Explanation   json.RawMessage   `json:"explanation"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		var loose map[string]json.RawMessage
		if json.Unmarshal(b, &loose) != nil {
			return err
		}
		// options was present but not an array
		aux.Content, aux.CorrectAnswer, aux.Explanation = loose["content"], loose["correct_answer"], loose["explanation"]
	}
	*q = SubQuestion{
		Content:       rawText(aux.Content),
		CorrectAnswer: rawText(aux.CorrectAnswer),
		Explanation:   rawText(aux.Explanation),
	}
	if aux.Options != nil {
		q.Options = make([]string, len(aux.Options))
		for i, o := range aux.Options {
			q.Options[i] = rawText(o)
		}
	}
	return nil
}

func isObject(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}

func rawString(b json.RawMessage) (string, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return "", false
	}
	return s, true
}

// rawText renders strings and numbers as text; everything else is "".
func rawText(b json.RawMessage) string {
	if s, ok := rawString(b); ok {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		return n.String()
	}
	return ""
}

func rawInt64(b json.RawMessage) int64 {
	v, err := strconv.ParseInt(rawText(b), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
