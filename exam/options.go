package exam

import "examview-server/models"

// OptionTag is a display state carried by a rendered option.
type OptionTag string

const (
	TagSelected      OptionTag = "selected"
	TagUserCorrect   OptionTag = "user-correct"
	TagUserIncorrect OptionTag = "user-incorrect"
	TagRevealCorrect OptionTag = "correct-answer-highlight"
)

// CSSClass returns the stylesheet class for the tag.
func (t OptionTag) CSSClass() string {
	switch t {
	case TagUserCorrect:
		return "user-answer-correct"
	case TagUserIncorrect:
		return "user-answer-incorrect"
	default:
		return string(t)
	}
}

// OptionState is the resolved display state of one option.
type OptionState struct {
	Selected      bool
	UserCorrect   bool
	UserIncorrect bool
	RevealCorrect bool
}

// Tags lists the active tags in a stable order.
func (s OptionState) Tags() []OptionTag {
	var tags []OptionTag
	if s.Selected {
		tags = append(tags, TagSelected)
	}
	if s.UserCorrect {
		tags = append(tags, TagUserCorrect)
	}
	if s.UserIncorrect {
		tags = append(tags, TagUserIncorrect)
	}
	if s.RevealCorrect {
		tags = append(tags, TagRevealCorrect)
	}
	return tags
}

// IsCorrect reports whether a stored answer matches the key. An empty answer never does.
func IsCorrect(userAnswer, correctAnswer string) bool {
	return userAnswer != "" && userAnswer == correctAnswer
}

// Revealed reports whether results are shown for a question in submission mode.
func Revealed(userAnswer string, showResultsAlways bool) bool {
	return showResultsAlways || userAnswer != ""
}

// ResolveOptionState computes the tags of optionLetter. userAnswer is "" when
// the question is unanswered.
//
// In exam mode only the selection is shown. In submission mode the user's own
// choice is marked correct or incorrect, and once results are revealed the
// right option is highlighted whenever the user did not pick it.
func ResolveOptionState(mode models.Mode, userAnswer, correctAnswer, optionLetter string, showResultsAlways bool) OptionState {
	isUserAnswer := userAnswer != "" && optionLetter == userAnswer
	if mode != models.ModeSubmission {
		return OptionState{Selected: isUserAnswer}
	}
	correct := IsCorrect(userAnswer, correctAnswer)
	return OptionState{
		UserCorrect:   isUserAnswer && correct,
		UserIncorrect: isUserAnswer && !correct,
		RevealCorrect: Revealed(userAnswer, showResultsAlways) && !correct && optionLetter == correctAnswer,
	}
}

// ExplanationState decides whether an explanation block is shown and how it is styled.
type ExplanationState struct {
	Visible bool
	Correct bool
}

// ResolveExplanation applies the explanation rule for one question. Styling is
// computed even when the block stays hidden.
func ResolveExplanation(mode models.Mode, explanation, userAnswer, correctAnswer string, showResultsAlways bool) ExplanationState {
	return ExplanationState{
		Visible: mode == models.ModeSubmission && explanation != "" && Revealed(userAnswer, showResultsAlways),
		Correct: IsCorrect(userAnswer, correctAnswer),
	}
}
