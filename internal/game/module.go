package game

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Module is the persisted unit: header fields plus the stage collection.
// Multi-stage authoring always persists with GameType MIXED; a non-MIXED
// GameType only occurs on legacy rows read back from the store.
type Module struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	GameType    GameType   `json:"gameType"`
	Data        ModuleData `json:"data"`
	Settings    Settings   `json:"settings"`
	AuthorID    string     `json:"author_id"`
	AuthorName  string     `json:"author"`
	IsPublic    bool       `json:"isPublic"`
	Plays       int        `json:"plays"`
	Likes       int        `json:"likes"`
	CreatedAt   time.Time  `json:"created_at,omitzero"`
}

// ModuleData is the module's data document: a stage list for MIXED
// modules, or a single raw payload for legacy single-type modules.
type ModuleData struct {
	Type   GameType
	Stages []Stage
	Legacy Payload
}

type mixedWire struct {
	Type   GameType `json:"type"`
	Stages []Stage  `json:"stages"`
}

func (d ModuleData) MarshalJSON() ([]byte, error) {
	if d.Type == TypeMixed {
		stages := d.Stages
		if stages == nil {
			stages = []Stage{}
		}
		return json.Marshal(mixedWire{Type: TypeMixed, Stages: stages})
	}
	return marshalPayload(d.Legacy)
}

// DecodeModuleData parses a stored data document given the row's game
// type. Legacy payloads are kept verbatim for migration on read.
func DecodeModuleData(t GameType, raw []byte) (ModuleData, error) {
	if t == TypeMixed {
		var w mixedWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return ModuleData{}, fmt.Errorf("decode mixed data: %w", err)
		}
		return ModuleData{Type: TypeMixed, Stages: w.Stages}, nil
	}
	p, err := UnmarshalPayload(t, raw)
	if err != nil {
		return ModuleData{}, fmt.Errorf("decode legacy data: %w", err)
	}
	return ModuleData{Type: t, Legacy: p}, nil
}

func (m *Module) UnmarshalJSON(b []byte) error {
	type alias Module
	aux := struct {
		*alias
		Data json.RawMessage `json:"data"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	data, err := DecodeModuleData(m.GameType, aux.Data)
	if err != nil {
		return fmt.Errorf("module %s: %w", m.ID, err)
	}
	m.Data = data
	return nil
}

// Header carries everything about a module except its stages.
type Header struct {
	ID          string
	Title       string
	Description string
	Settings    Settings
	AuthorID    string
	AuthorName  string
	IsPublic    bool
	Plays       int
	Likes       int
}

// Assemble wraps a header and stage list into a persistable module. The
// result is always MIXED regardless of how the module was loaded.
func Assemble(h Header, stages []Stage) (Module, error) {
	if strings.TrimSpace(h.Title) == "" {
		return Module{}, validationErr(TypeMixed, "title is required")
	}
	if len(stages) == 0 {
		return Module{}, validationErr(TypeMixed, "add at least one stage")
	}
	if len(stages) > MaxStages {
		return Module{}, validationErr(TypeMixed, "at most %d stages per module", MaxStages)
	}
	return Module{
		ID:          h.ID,
		Title:       h.Title,
		Description: h.Description,
		GameType:    TypeMixed,
		Data:        ModuleData{Type: TypeMixed, Stages: append([]Stage(nil), stages...)},
		Settings:    h.Settings,
		AuthorID:    h.AuthorID,
		AuthorName:  h.AuthorName,
		IsPublic:    h.IsPublic,
		Plays:       h.Plays,
		Likes:       h.Likes,
	}, nil
}

// LegacyStageID and LegacyStageTitle identify the synthetic stage a legacy
// single-type module migrates into.
const (
	LegacyStageID    = "legacy-1"
	LegacyStageTitle = "Section 1"
)

// Disassemble splits a module back into header and stages for editing. A
// legacy non-MIXED module becomes an implicit one-stage module; the
// migration happens on read only and every subsequent save is MIXED.
func Disassemble(m Module) (Header, []Stage, error) {
	h := Header{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Settings:    m.Settings,
		AuthorID:    m.AuthorID,
		AuthorName:  m.AuthorName,
		IsPublic:    m.IsPublic,
		Plays:       m.Plays,
		Likes:       m.Likes,
	}
	if m.GameType == TypeMixed {
		return h, append([]Stage(nil), m.Data.Stages...), nil
	}
	if !m.GameType.Valid() {
		return Header{}, nil, fmt.Errorf("module %s: unknown game type %s", m.ID, m.GameType)
	}
	if m.Data.Legacy == nil {
		return Header{}, nil, fmt.Errorf("module %s: legacy module has no data", m.ID)
	}
	stage := Stage{
		ID:      LegacyStageID,
		Type:    m.GameType,
		Title:   LegacyStageTitle,
		Payload: m.Data.Legacy,
	}
	return h, []Stage{stage}, nil
}
