package game

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError is a user-correctable authoring mistake. It blocks the
// offending commit and is never persisted.
type ValidationError struct {
	Type   GameType
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Reason)
}

func validationErr(t GameType, format string, args ...any) error {
	return &ValidationError{Type: t, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a validation error.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

const (
	// MaxItems bounds the limit-5 stage types; exceeding it is rejected
	// when the extra item is added, not only at commit.
	MaxItems = 5
	// MinQuizOptions and MaxQuizOptions bound the option list of a quiz
	// question per mutation.
	MinQuizOptions = 2
	MaxQuizOptions = 8
)

// limitedTypes are the stage types capped at MaxItems items.
func limited(t GameType) bool {
	switch t {
	case TypeMatching, TypeTrueFalse, TypeFlashcard, TypeScramble:
		return true
	}
	return false
}

// CanAddItem guards item insertion for the limit-5 types: the cap is
// enforced at the point of adding the item.
func CanAddItem(t GameType, current int) error {
	if limited(t) && current >= MaxItems {
		return validationErr(t, "at most %d items allowed", MaxItems)
	}
	return nil
}

// Validate checks edit state against the per-type commit rules. It runs
// before Encode; a failure means the stage must not be committed.
func Validate(t GameType, st EditState) error {
	switch t {
	case TypeQuiz:
		if st.Quiz == nil || len(st.Quiz.Items()) != 1 {
			return validationErr(t, "compose the question and commit it first")
		}
	case TypeSequence:
		if len(st.SequenceTexts) < 2 {
			return validationErr(t, "at least 2 items required")
		}
	case TypeCloze:
		if _, answers := SplitCloze(st.ClozeText); len(answers) == 0 {
			return validationErr(t, "mark at least one blank with [brackets]")
		}
	case TypeMatching:
		return validateCount(t, len(st.Pairs))
	case TypeTrueFalse:
		return validateCount(t, len(st.TrueFalse))
	case TypeFlashcard:
		return validateCount(t, len(st.Cards))
	case TypeScramble:
		return validateCount(t, len(st.Scramble))
	default:
		return validationErr(t, "unknown stage type")
	}
	return nil
}

func validateCount(t GameType, n int) error {
	if n == 0 {
		return validationErr(t, "add at least 1 item")
	}
	if n > MaxItems {
		return validationErr(t, "at most %d items allowed", MaxItems)
	}
	return nil
}

// ErrQuestionExists is returned when committing a second quiz question;
// the caller must confirm the replacement explicitly.
var ErrQuestionExists = errors.New("quiz already holds a question")

// QuizForm is the single-question editing form. A quiz stage carries
// exactly one question; the form's option list stays within
// [MinQuizOptions, MaxQuizOptions] under every mutation.
type QuizForm struct {
	Question string
	Options  []string
	Correct  int

	items []QuizItem
}

// NewQuizForm starts with two empty options and the first marked correct.
func NewQuizForm() *QuizForm {
	return &QuizForm{Options: []string{"", ""}}
}

// AddOption appends an empty option, refusing to grow past MaxQuizOptions.
func (f *QuizForm) AddOption() error {
	if len(f.Options) >= MaxQuizOptions {
		return validationErr(TypeQuiz, "at most %d options allowed", MaxQuizOptions)
	}
	f.Options = append(f.Options, "")
	return nil
}

// RemoveOption deletes the option at i, refusing to shrink below
// MinQuizOptions. Removing any option resets the marked-correct index to 0.
func (f *QuizForm) RemoveOption(i int) error {
	if len(f.Options) <= MinQuizOptions {
		return validationErr(TypeQuiz, "at least %d options required", MinQuizOptions)
	}
	if i < 0 || i >= len(f.Options) {
		return validationErr(TypeQuiz, "option index %d out of range", i)
	}
	f.Options = append(f.Options[:i], f.Options[i+1:]...)
	f.Correct = 0
	return nil
}

// SetCorrect marks the option at i as the correct answer.
func (f *QuizForm) SetCorrect(i int) error {
	if i < 0 || i >= len(f.Options) {
		return validationErr(TypeQuiz, "option index %d out of range", i)
	}
	f.Correct = i
	return nil
}

// Commit turns the form into the stage's single question. A second commit
// without replace confirmation fails with ErrQuestionExists.
func (f *QuizForm) Commit() error {
	return f.commit(false)
}

// CommitReplace commits, overwriting an already committed question.
func (f *QuizForm) CommitReplace() error {
	return f.commit(true)
}

func (f *QuizForm) commit(replace bool) error {
	if strings.TrimSpace(f.Question) == "" {
		return validationErr(TypeQuiz, "question text is required")
	}
	for _, opt := range f.Options {
		if strings.TrimSpace(opt) == "" {
			return validationErr(TypeQuiz, "every option must be filled in")
		}
	}
	if len(f.items) > 0 && !replace {
		return ErrQuestionExists
	}
	f.items = []QuizItem{{
		Question:      f.Question,
		Options:       append([]string(nil), f.Options...),
		CorrectAnswer: f.Options[f.Correct],
	}}
	return nil
}

// Items returns the committed question, at most one.
func (f *QuizForm) Items() []QuizItem {
	return append([]QuizItem(nil), f.items...)
}
