package game

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// EditState mirrors the authoring surface's temporary holders: one field
// per stage type, only the field matching the type in play is meaningful.
type EditState struct {
	Quiz             *QuizForm
	Pairs            []MatchingPair
	TrueFalse        []TrueFalseItem
	Cards            []FlashcardItem
	Scramble         []ScrambleItem
	SequenceTexts    []string
	SequenceQuestion string
	ClozeText        string
}

// NewEditState returns a blank edit state with an empty quiz form.
func NewEditState() EditState {
	return EditState{Quiz: NewQuizForm()}
}

// Encode translates edit state into the canonical stored payload for the
// given stage type. Validation is expected to have passed already; Encode
// still refuses shapes it cannot represent.
func Encode(t GameType, st EditState, now time.Time) (Payload, error) {
	switch t {
	case TypeQuiz:
		if st.Quiz == nil || len(st.Quiz.Items()) == 0 {
			return nil, fmt.Errorf("encode quiz: no committed question")
		}
		return &QuizPayload{Items: st.Quiz.Items()}, nil
	case TypeMatching:
		return &MatchingPayload{Pairs: append([]MatchingPair(nil), st.Pairs...)}, nil
	case TypeTrueFalse:
		return &TrueFalsePayload{Items: append([]TrueFalseItem(nil), st.TrueFalse...)}, nil
	case TypeFlashcard:
		return &FlashcardPayload{Items: append([]FlashcardItem(nil), st.Cards...)}, nil
	case TypeScramble:
		return &ScramblePayload{Items: append([]ScrambleItem(nil), st.Scramble...)}, nil
	case TypeSequence:
		items := make([]SequenceItem, len(st.SequenceTexts))
		for i, text := range st.SequenceTexts {
			items[i] = SequenceItem{
				ID:    fmt.Sprintf("%d-%d", now.UnixMilli(), i),
				Text:  text,
				Order: i,
			}
		}
		return &SequencePayload{Items: items, Question: st.SequenceQuestion}, nil
	case TypeCloze:
		parts, answers := SplitCloze(st.ClozeText)
		return &ClozePayload{TextParts: parts, Answers: answers}, nil
	}
	return nil, fmt.Errorf("encode: unknown stage type %s", t)
}

// Decode hydrates edit state from a stored payload. It is the inverse of
// Encode up to the documented quiz repair and sequence id regeneration.
func Decode(t GameType, p Payload) (EditState, error) {
	st := NewEditState()
	if p == nil {
		return st, fmt.Errorf("decode %s: nil payload", t)
	}
	if p.Kind() != t {
		return st, fmt.Errorf("decode: payload tag %s does not match stage type %s", p.Kind(), t)
	}

	switch v := p.(type) {
	case *QuizPayload:
		if len(v.Items) > 0 {
			st.Quiz = quizFormFromItem(v.Items[0])
		}
	case *MatchingPayload:
		st.Pairs = append([]MatchingPair(nil), v.Pairs...)
	case *TrueFalsePayload:
		st.TrueFalse = append([]TrueFalseItem(nil), v.Items...)
	case *FlashcardPayload:
		st.Cards = append([]FlashcardItem(nil), v.Items...)
	case *ScramblePayload:
		st.Scramble = append([]ScrambleItem(nil), v.Items...)
	case *SequencePayload:
		items := append([]SequenceItem(nil), v.Items...)
		sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
		st.SequenceTexts = make([]string, len(items))
		for i, it := range items {
			st.SequenceTexts[i] = it.Text
		}
		st.SequenceQuestion = v.Question
	case *ClozePayload:
		st.ClozeText = JoinCloze(v.TextParts, v.Answers)
	default:
		return st, fmt.Errorf("decode: unknown payload %T", p)
	}
	return st, nil
}

// quizFormFromItem rebuilds the single-question form. When the stored
// correct answer matches no option the first option is treated as correct;
// the corruption is repaired silently rather than surfaced.
func quizFormFromItem(item QuizItem) *QuizForm {
	correct := -1
	for i, opt := range item.Options {
		if opt == item.CorrectAnswer {
			correct = i
			break
		}
	}
	if correct == -1 {
		slog.Debug("quiz correct answer not among options, defaulting to first",
			"question", item.Question)
		correct = 0
	}
	f := &QuizForm{
		Question: item.Question,
		Options:  append([]string(nil), item.Options...),
		Correct:  correct,
	}
	f.items = []QuizItem{item}
	return f
}

// SplitCloze splits free text at bracket-delimited spans. The returned
// parts and answers satisfy len(parts) == len(answers)+1 and interleaving
// parts[i] + "[" + answers[i] + "]" reconstructs the text exactly.
// An opening bracket without a closing one is plain text.
func SplitCloze(text string) (parts []string, answers []string) {
	rest := text
	for {
		open := strings.Index(rest, "[")
		if open < 0 {
			break
		}
		end := strings.Index(rest[open:], "]")
		if end < 0 {
			break
		}
		parts = append(parts, rest[:open])
		answers = append(answers, rest[open+1:open+end])
		rest = rest[open+end+1:]
	}
	parts = append(parts, rest)
	return parts, answers
}

// JoinCloze is the exact inverse of SplitCloze.
func JoinCloze(parts []string, answers []string) string {
	var b strings.Builder
	for i, p := range parts {
		b.WriteString(p)
		if i < len(answers) {
			b.WriteString("[")
			b.WriteString(answers[i])
			b.WriteString("]")
		}
	}
	return b.String()
}
