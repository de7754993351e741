package exam

import (
	"strconv"
	"strings"

	"examview-server/models"
	"examview-server/utils"
)

// sectionTitles holds the fixed section number and heading of each question type.
var sectionTitles = map[models.QuestionType]struct {
	number int
	title  string
}{
	models.TypeFillShort: {1, "Short fill-in"},
	models.TypeReorder:   {2, "Sentence ordering"},
	models.TypeFillLong:  {3, "Sentence completion"},
	models.TypeReading:   {4, "Reading comprehension"},
}

// SectionLayout is the context grouping of one question type.
type SectionLayout struct {
	Type   models.QuestionType
	Groups []models.ContextGroup
}

// Layout is everything about an exam view that depends only on the exam data.
type Layout struct {
	Questions []models.FlatQuestion
	Sections  []SectionLayout
}

// NewLayout flattens data and groups each non-empty section by context.
func NewLayout(data *models.ExamData) Layout {
	questions := Flatten(data)
	byType := make(map[models.QuestionType][]models.FlatQuestion)
	for _, q := range questions {
		byType[q.Type] = append(byType[q.Type], q)
	}
	layout := Layout{Questions: questions}
	for _, t := range []models.QuestionType{models.TypeFillShort, models.TypeReorder, models.TypeFillLong, models.TypeReading} {
		if len(byType[t]) == 0 {
			continue
		}
		layout.Sections = append(layout.Sections, SectionLayout{Type: t, Groups: GroupByContext(byType[t])})
	}
	return layout
}

// RenderOptions is the caller-owned state of a render pass.
type RenderOptions struct {
	Mode               models.Mode
	Answers            models.AnswersMap
	ActiveChatQuestion string
	ShowResultsAlways  bool
	ChatEnabled        bool
}

// Badge labels an option in submission mode.
type Badge struct {
	Kind  string
	Label string
}

var (
	badgeUserCorrect   = &Badge{Kind: "correct", Label: "✓ Your answer"}
	badgeUserIncorrect = &Badge{Kind: "incorrect", Label: "✗ Your answer is wrong"}
	badgeCorrectAnswer = &Badge{Kind: "correct-ans", Label: "✓ Correct answer"}
)

// OptionView is one rendered option.
type OptionView struct {
	Letter string
	Text   string
	Tags   []OptionTag
	Badge  *Badge
}

// Class is the option's class attribute.
func (o OptionView) Class() string {
	classes := []string{"option-item"}
	for _, t := range o.Tags {
		classes = append(classes, t.CSSClass())
	}
	return strings.Join(classes, " ")
}

// ExplanationView is a shown explanation block.
type ExplanationView struct {
	Text    string
	Correct bool
}

// QuestionView is one rendered question block.
type QuestionView struct {
	Num         int
	ID          string
	Content     string
	Options     []OptionView
	ShowChat    bool
	ChatActive  bool
	Explanation *ExplanationView
}

// Anchor is the element id used for jump navigation.
func (q QuestionView) Anchor() string {
	return "question-" + strconv.Itoa(q.Num)
}

// GroupView is a context block followed by its questions.
type GroupView struct {
	GroupID   string
	Context   string
	Reading   bool
	Questions []QuestionView
}

// SectionView is one titled section.
type SectionView struct {
	Number int
	Type   models.QuestionType
	Title  string
	Groups []GroupView
}

// ExamView is the full rendered tree.
type ExamView struct {
	Mode       models.Mode
	Submission bool
	Sections   []SectionView
}

// BuildView applies answers and mode to a layout.
func BuildView(layout Layout, opts RenderOptions) ExamView {
	if opts.Mode == "" {
		opts.Mode = models.ModeExam
	}
	view := ExamView{Mode: opts.Mode, Submission: opts.Mode == models.ModeSubmission}
	for _, s := range layout.Sections {
		meta := sectionTitles[s.Type]
		sv := SectionView{Number: meta.number, Type: s.Type, Title: meta.title}
		for _, g := range s.Groups {
			gv := GroupView{GroupID: g.GroupID, Reading: g.Type == models.TypeReading}
			if g.Context != nil {
				gv.Context = *g.Context
			}
			for _, q := range g.Questions {
				gv.Questions = append(gv.Questions, buildQuestion(q, opts))
			}
			sv.Groups = append(sv.Groups, gv)
		}
		view.Sections = append(view.Sections, sv)
	}
	return view
}

func buildQuestion(q models.FlatQuestion, opts RenderOptions) QuestionView {
	var data models.SubQuestion
	if q.Data != nil {
		data = *q.Data
	}
	userAnswer := opts.Answers[q.ID]
	submission := opts.Mode == models.ModeSubmission

	qv := QuestionView{
		Num:        q.Num,
		ID:         q.ID,
		Content:    data.Content,
		ShowChat:   submission && opts.ChatEnabled,
		ChatActive: submission && opts.ChatEnabled && opts.ActiveChatQuestion == q.ID,
		Options:    make([]OptionView, 0, len(data.Options)),
	}
	for i, option := range data.Options {
		letter := utils.OptionLetter(i)
		state := ResolveOptionState(opts.Mode, userAnswer, data.CorrectAnswer, letter, opts.ShowResultsAlways)
		ov := OptionView{Letter: letter, Text: utils.OptionText(option), Tags: state.Tags()}
		switch {
		case state.UserCorrect:
			ov.Badge = badgeUserCorrect
		case state.UserIncorrect:
			ov.Badge = badgeUserIncorrect
		case state.RevealCorrect:
			ov.Badge = badgeCorrectAnswer
		}
		qv.Options = append(qv.Options, ov)
	}
	if exp := ResolveExplanation(opts.Mode, data.Explanation, userAnswer, data.CorrectAnswer, opts.ShowResultsAlways); exp.Visible {
		qv.Explanation = &ExplanationView{Text: data.Explanation, Correct: exp.Correct}
	}
	return qv
}
