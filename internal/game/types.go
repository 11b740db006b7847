// Package game holds the stage and module data model: the tagged payload
// union for the seven mini-game types, the codec between editor state and
// the stored shape, validation rules, and module assembly.
package game

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
)

// GameType is the closed enumeration of mini-game types. MIXED marks a
// multi-stage module and never appears as a stage type.
type GameType string

const (
	TypeQuiz      GameType = "QUIZ"
	TypeMatching  GameType = "MATCHING"
	TypeTrueFalse GameType = "TRUE_FALSE"
	TypeFlashcard GameType = "FLASHCARD"
	TypeSequence  GameType = "SEQUENCE"
	TypeScramble  GameType = "SCRAMBLE"
	TypeCloze     GameType = "CLOZE"
	TypeMixed     GameType = "MIXED"
)

// StageTypes lists every type a stage may carry, in the order the authoring
// surface offers them.
var StageTypes = []GameType{
	TypeQuiz, TypeSequence, TypeCloze,
	TypeMatching, TypeTrueFalse, TypeScramble, TypeFlashcard,
}

// Valid reports whether t is a known stage type (MIXED excluded).
func (t GameType) Valid() bool {
	switch t {
	case TypeQuiz, TypeMatching, TypeTrueFalse, TypeFlashcard,
		TypeSequence, TypeScramble, TypeCloze:
		return true
	}
	return false
}

// Payload is the tagged union over per-type stage data. Kind returns the
// tag; it always equals the owning stage's type.
type Payload interface {
	Kind() GameType
}

// QuizItem is a single multiple-choice question.
type QuizItem struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

type QuizPayload struct {
	Items []QuizItem `json:"items"`
}

func (QuizPayload) Kind() GameType { return TypeQuiz }

// MatchingPair joins two items the player has to match.
type MatchingPair struct {
	ID    string `json:"id"`
	ItemA string `json:"itemA"`
	ItemB string `json:"itemB"`
}

type MatchingPayload struct {
	Pairs []MatchingPair `json:"pairs"`
}

func (MatchingPayload) Kind() GameType { return TypeMatching }

type TrueFalseItem struct {
	Statement string `json:"statement"`
	IsTrue    bool   `json:"isTrue"`
}

type TrueFalsePayload struct {
	Items []TrueFalseItem `json:"items"`
}

func (TrueFalsePayload) Kind() GameType { return TypeTrueFalse }

type FlashcardItem struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type FlashcardPayload struct {
	Items []FlashcardItem `json:"items"`
}

func (FlashcardPayload) Kind() GameType { return TypeFlashcard }

// SequenceItem carries its 0-based target position in Order.
type SequenceItem struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

type SequencePayload struct {
	Items    []SequenceItem `json:"items"`
	Question string         `json:"question"`
}

func (SequencePayload) Kind() GameType { return TypeSequence }

type ScrambleItem struct {
	Word string `json:"word"`
	Hint string `json:"hint,omitempty"`
}

type ScramblePayload struct {
	Items []ScrambleItem `json:"items"`
}

func (ScramblePayload) Kind() GameType { return TypeScramble }

// ClozePayload stores a fill-in-the-blank passage split at its blanks:
// len(TextParts) == len(Answers)+1, and interleaving them with bracketed
// answers reproduces the authored text exactly.
type ClozePayload struct {
	TextParts []string `json:"textParts"`
	Answers   []string `json:"answers"`
}

func (ClozePayload) Kind() GameType { return TypeCloze }

// Stage is one self-contained mini-game unit within a module. The id is
// assigned at creation and stable across edits.
type Stage struct {
	ID      string
	Type    GameType
	Title   string
	Payload Payload
}

// stageWire is the stored shape of a stage.
type stageWire struct {
	ID    string          `json:"id"`
	Type  GameType        `json:"type"`
	Title string          `json:"title"`
	Data  json.RawMessage `json:"data"`
}

func (s Stage) MarshalJSON() ([]byte, error) {
	data, err := marshalPayload(s.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal stage %s: %w", s.ID, err)
	}
	return json.Marshal(stageWire{ID: s.ID, Type: s.Type, Title: s.Title, Data: data})
}

func (s *Stage) UnmarshalJSON(b []byte) error {
	var w stageWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	p, err := UnmarshalPayload(w.Type, w.Data)
	if err != nil {
		return fmt.Errorf("unmarshal stage %s: %w", w.ID, err)
	}
	s.ID = w.ID
	s.Type = w.Type
	s.Title = w.Title
	s.Payload = p
	return nil
}

// marshalPayload emits the payload with its type tag included, the shape
// the document store holds.
func marshalPayload(p Payload) (json.RawMessage, error) {
	if p == nil {
		return nil, fmt.Errorf("payload is nil")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	tag, _ := json.Marshal(p.Kind())
	m["type"] = tag
	return json.Marshal(m)
}

// UnmarshalPayload decodes stored payload data for the given stage type.
func UnmarshalPayload(t GameType, raw []byte) (Payload, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty payload for type %s", t)
	}
	var p Payload
	switch t {
	case TypeQuiz:
		p = &QuizPayload{}
	case TypeMatching:
		p = &MatchingPayload{}
	case TypeTrueFalse:
		p = &TrueFalsePayload{}
	case TypeFlashcard:
		p = &FlashcardPayload{}
	case TypeSequence:
		p = &SequencePayload{}
	case TypeScramble:
		p = &ScramblePayload{}
	case TypeCloze:
		p = &ClozePayload{}
	default:
		return nil, fmt.Errorf("unknown stage type: %s", t)
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, err)
	}
	return p, nil
}

// Settings are per-module play options.
type Settings struct {
	TimeLimit      int  `json:"timeLimit"`
	RandomizeOrder bool `json:"randomizeOrder"`
	AllowRetry     bool `json:"allowRetry"`
	CaseSensitive  bool `json:"caseSensitive"`
}

// DefaultSettings mirrors the authoring surface defaults.
func DefaultSettings() Settings {
	return Settings{TimeLimit: 0, RandomizeOrder: true, AllowRetry: true, CaseSensitive: false}
}

// NewStageID returns a fresh opaque stage id.
func NewStageID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
