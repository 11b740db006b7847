package game_test

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/playforge/playforge/internal/game"
)

func TestSplitCloze(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantParts   []string
		wantAnswers []string
	}{
		{
			"single-blank",
			"Capital is [Ankara].",
			[]string{"Capital is ", "."},
			[]string{"Ankara"},
		},
		{
			"two-blanks",
			"[Water] boils at [100] degrees",
			[]string{"", " boils at ", " degrees"},
			[]string{"Water", "100"},
		},
		{
			"no-blanks",
			"plain text",
			[]string{"plain text"},
			nil,
		},
		{
			"unclosed-bracket",
			"missing [bracket",
			[]string{"missing [bracket"},
			nil,
		},
		{
			"empty-answer",
			"a[]b",
			[]string{"a", "b"},
			[]string{""},
		},
		{
			"adjacent-blanks",
			"[a][b]",
			[]string{"", "", ""},
			[]string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts, answers := game.SplitCloze(tt.text)
			if !reflect.DeepEqual(parts, tt.wantParts) {
				t.Errorf("parts = %q, want %q", parts, tt.wantParts)
			}
			if !reflect.DeepEqual(answers, tt.wantAnswers) {
				t.Errorf("answers = %q, want %q", answers, tt.wantAnswers)
			}
		})
	}
}

func TestClozeRoundTrip(t *testing.T) {
	texts := []string{
		"Capital is [Ankara].",
		"[a] then [b] then [c]",
		"no blanks here",
		"trailing [answer]",
		"[leading] text",
		"odd ] before [pair]",
		"unicode [çiçek] dolu",
	}
	for _, text := range texts {
		parts, answers := game.SplitCloze(text)
		if got := game.JoinCloze(parts, answers); got != text {
			t.Errorf("JoinCloze(SplitCloze(%q)) = %q, want original", text, got)
		}
	}
}

func TestEncodeCloze(t *testing.T) {
	st := game.NewEditState()
	st.ClozeText = "Capital is [Ankara]."

	p, err := game.Encode(game.TypeCloze, st, time.Now())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	cloze, ok := p.(*game.ClozePayload)
	if !ok {
		t.Fatalf("payload type = %T, want *ClozePayload", p)
	}
	if len(cloze.TextParts) != len(cloze.Answers)+1 {
		t.Errorf("textParts = %d, answers = %d, want parts == answers+1",
			len(cloze.TextParts), len(cloze.Answers))
	}

	back, err := game.Decode(game.TypeCloze, cloze)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if back.ClozeText != st.ClozeText {
		t.Errorf("decoded text = %q, want %q", back.ClozeText, st.ClozeText)
	}
}

func TestEncodeSequence_AssignsOrderAndIDs(t *testing.T) {
	st := game.NewEditState()
	st.SequenceTexts = []string{"first", "second", "third"}
	st.SequenceQuestion = "Sort ascending"

	now := time.UnixMilli(1700000000000)
	p, err := game.Encode(game.TypeSequence, st, now)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	seq := p.(*game.SequencePayload)

	if seq.Question != "Sort ascending" {
		t.Errorf("question = %q, want 'Sort ascending'", seq.Question)
	}
	for i, item := range seq.Items {
		if item.Order != i {
			t.Errorf("items[%d].Order = %d, want %d", i, item.Order, i)
		}
		want := fmt.Sprintf("1700000000000-%d", i)
		if item.ID != want {
			t.Errorf("items[%d].ID = %q, want %q", i, item.ID, want)
		}
	}
}

func TestDecodeSequence_SortsByOrder(t *testing.T) {
	p := &game.SequencePayload{
		Question: "Sort",
		Items: []game.SequenceItem{
			{ID: "x-2", Text: "third", Order: 2},
			{ID: "x-0", Text: "first", Order: 0},
			{ID: "x-1", Text: "second", Order: 1},
		},
	}
	st, err := game.Decode(game.TypeSequence, p)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(st.SequenceTexts, want) {
		t.Errorf("SequenceTexts = %v, want %v", st.SequenceTexts, want)
	}
}

func TestDecodeQuiz_LocatesCorrectOption(t *testing.T) {
	p := &game.QuizPayload{Items: []game.QuizItem{{
		Question:      "2+2?",
		Options:       []string{"3", "4", "5"},
		CorrectAnswer: "4",
	}}}
	st, err := game.Decode(game.TypeQuiz, p)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if st.Quiz.Correct != 1 {
		t.Errorf("Correct = %d, want 1", st.Quiz.Correct)
	}
}

func TestDecodeQuiz_CorruptCorrectAnswerFallsBackToFirst(t *testing.T) {
	// Stored correct answer does not match any option; the decode repairs
	// silently to the first option instead of failing.
	p := &game.QuizPayload{Items: []game.QuizItem{{
		Question:      "2+2?",
		Options:       []string{"3", "4"},
		CorrectAnswer: "7",
	}}}
	st, err := game.Decode(game.TypeQuiz, p)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if st.Quiz.Correct != 0 {
		t.Errorf("Correct = %d, want fallback 0", st.Quiz.Correct)
	}
	if len(st.Quiz.Items()) != 1 {
		t.Errorf("Items() len = %d, want 1", len(st.Quiz.Items()))
	}
}

func TestCodec_IdentityTypes(t *testing.T) {
	st := game.NewEditState()
	st.Pairs = []game.MatchingPair{{ID: "p1", ItemA: "cat", ItemB: "kedi"}}
	st.TrueFalse = []game.TrueFalseItem{{Statement: "Sky is blue", IsTrue: true}}
	st.Cards = []game.FlashcardItem{{Front: "dog", Back: "köpek"}}
	st.Scramble = []game.ScrambleItem{{Word: "ankara", Hint: "capital"}}

	for _, typ := range []game.GameType{
		game.TypeMatching, game.TypeTrueFalse, game.TypeFlashcard, game.TypeScramble,
	} {
		p, err := game.Encode(typ, st, time.Now())
		if err != nil {
			t.Fatalf("Encode(%s) error = %v", typ, err)
		}
		back, err := game.Decode(typ, p)
		if err != nil {
			t.Fatalf("Decode(%s) error = %v", typ, err)
		}
		switch typ {
		case game.TypeMatching:
			if !reflect.DeepEqual(back.Pairs, st.Pairs) {
				t.Errorf("%s round trip = %v, want %v", typ, back.Pairs, st.Pairs)
			}
		case game.TypeTrueFalse:
			if !reflect.DeepEqual(back.TrueFalse, st.TrueFalse) {
				t.Errorf("%s round trip = %v, want %v", typ, back.TrueFalse, st.TrueFalse)
			}
		case game.TypeFlashcard:
			if !reflect.DeepEqual(back.Cards, st.Cards) {
				t.Errorf("%s round trip = %v, want %v", typ, back.Cards, st.Cards)
			}
		case game.TypeScramble:
			if !reflect.DeepEqual(back.Scramble, st.Scramble) {
				t.Errorf("%s round trip = %v, want %v", typ, back.Scramble, st.Scramble)
			}
		}
	}
}

func TestDecode_TagMismatch(t *testing.T) {
	_, err := game.Decode(game.TypeQuiz, &game.ClozePayload{TextParts: []string{"a", "b"}, Answers: []string{"x"}})
	if err == nil {
		t.Error("Decode() should reject payload tag not matching stage type")
	}
}
