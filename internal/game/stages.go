package game

import (
	"fmt"
	"time"
)

// MaxStages is the hard cap on stages per module.
const MaxStages = 40

// StageList is the ordered stage collection of one module draft. Display
// order is array order; there is no reorder operation beyond delete/re-add.
type StageList struct {
	stages []Stage
}

// NewStageList wraps existing stages, e.g. when re-editing a saved module.
func NewStageList(stages []Stage) *StageList {
	return &StageList{stages: append([]Stage(nil), stages...)}
}

func (l *StageList) Len() int { return len(l.stages) }

// All returns a copy of the stages in display order.
func (l *StageList) All() []Stage {
	return append([]Stage(nil), l.stages...)
}

// At returns the stage at index i.
func (l *StageList) At(i int) (Stage, error) {
	if i < 0 || i >= len(l.stages) {
		return Stage{}, fmt.Errorf("stage index %d out of range", i)
	}
	return l.stages[i], nil
}

// Append adds a stage at the end, refusing once the module is full.
func (l *StageList) Append(s Stage) error {
	if len(l.stages) >= MaxStages {
		return validationErr(s.Type, "at most %d stages per module", MaxStages)
	}
	l.stages = append(l.stages, s)
	return nil
}

// ReplaceAt swaps the stage at index i, keeping the original id so stage
// identity survives edits.
func (l *StageList) ReplaceAt(i int, s Stage) error {
	if i < 0 || i >= len(l.stages) {
		return fmt.Errorf("stage index %d out of range", i)
	}
	s.ID = l.stages[i].ID
	l.stages[i] = s
	return nil
}

// RemoveAt deletes the stage at index i unconditionally.
func (l *StageList) RemoveAt(i int) error {
	if i < 0 || i >= len(l.stages) {
		return fmt.Errorf("stage index %d out of range", i)
	}
	l.stages = append(l.stages[:i], l.stages[i+1:]...)
	return nil
}

// ErrEditInProgress is returned when a second editing session is opened
// while one is still unsaved. Edit mode is modal, not stacked: the active
// session must be committed or discarded first.
var ErrEditInProgress = fmt.Errorf("a stage is already being edited")

// Session is the modal stage-editing session over a StageList. At most one
// stage is in edit at a time; the temporary edit state is owned exclusively
// by the session.
type Session struct {
	list      *StageList
	now       func() time.Time
	active    bool
	editIndex int // -1 while adding a new stage
	stageType GameType
	state     EditState
}

// NewSession creates an editing session for the given stage list.
func NewSession(list *StageList) *Session {
	return &Session{list: list, now: time.Now, editIndex: -1}
}

// BeginAdd opens the session for a new stage of the given type.
func (s *Session) BeginAdd(t GameType) error {
	if s.active {
		return ErrEditInProgress
	}
	if !t.Valid() {
		return validationErr(t, "unknown stage type")
	}
	if s.list.Len() >= MaxStages {
		return validationErr(t, "at most %d stages per module", MaxStages)
	}
	s.active = true
	s.editIndex = -1
	s.stageType = t
	s.state = NewEditState()
	return nil
}

// BeginEdit opens the session on the stored stage at index, hydrating the
// temporary editor fields from its payload.
func (s *Session) BeginEdit(index int) error {
	if s.active {
		return ErrEditInProgress
	}
	stage, err := s.list.At(index)
	if err != nil {
		return err
	}
	st, err := Decode(stage.Type, stage.Payload)
	if err != nil {
		return fmt.Errorf("begin edit: %w", err)
	}
	s.active = true
	s.editIndex = index
	s.stageType = stage.Type
	s.state = st
	return nil
}

// Active reports whether a stage is currently in edit.
func (s *Session) Active() bool { return s.active }

// EditingIndex returns the index under edit, or -1 when adding.
func (s *Session) EditingIndex() int { return s.editIndex }

// Type returns the stage type of the active session.
func (s *Session) Type() GameType { return s.stageType }

// State exposes the session's mutable edit state.
func (s *Session) State() *EditState {
	return &s.state
}

// Commit validates and encodes the edit state, then appends the stage or
// replaces the one under edit (id preserved). The session closes on
// success and stays open on failure.
func (s *Session) Commit() (Stage, error) {
	if !s.active {
		return Stage{}, fmt.Errorf("no editing session active")
	}
	if err := Validate(s.stageType, s.state); err != nil {
		return Stage{}, err
	}
	payload, err := Encode(s.stageType, s.state, s.now())
	if err != nil {
		return Stage{}, err
	}

	stage := Stage{
		ID:      NewStageID(),
		Type:    s.stageType,
		Title:   fmt.Sprintf("Unit (%s)", s.stageType),
		Payload: payload,
	}
	if s.editIndex >= 0 {
		if err := s.list.ReplaceAt(s.editIndex, stage); err != nil {
			return Stage{}, err
		}
		stage, _ = s.list.At(s.editIndex)
	} else {
		if err := s.list.Append(stage); err != nil {
			return Stage{}, err
		}
	}
	s.reset()
	return stage, nil
}

// Discard abandons the active session without touching the stage list.
func (s *Session) Discard() {
	s.reset()
}

func (s *Session) reset() {
	s.active = false
	s.editIndex = -1
	s.stageType = ""
	s.state = EditState{}
}
