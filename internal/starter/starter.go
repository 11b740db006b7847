// Package starter loads sample game modules from YAML files and seeds
// them into an empty store, so a fresh install has something to browse.
package starter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/playforge/playforge/internal/game"
	"github.com/playforge/playforge/internal/store"
)

// Pack is one starter module definition.
type Pack struct {
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	Author      string      `yaml:"author"`
	Public      bool        `yaml:"public"`
	Stages      []StageSpec `yaml:"stages"`
}

// StageSpec describes one stage; only the section matching Type is read.
type StageSpec struct {
	Type      game.GameType        `yaml:"type"`
	Quiz      *QuizSpec            `yaml:"quiz"`
	Pairs     []PairSpec           `yaml:"pairs"`
	TrueFalse []TrueFalseSpec      `yaml:"true_false"`
	Cards     []CardSpec           `yaml:"cards"`
	Scramble  []game.ScrambleItem  `yaml:"scramble"`
	Sequence  *SequenceSpec        `yaml:"sequence"`
	Cloze     string               `yaml:"cloze"`
}

type QuizSpec struct {
	Question string   `yaml:"question"`
	Options  []string `yaml:"options"`
	Correct  int      `yaml:"correct"`
}

type PairSpec struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

type TrueFalseSpec struct {
	Statement string `yaml:"statement"`
	True      bool   `yaml:"true"`
}

type CardSpec struct {
	Front string `yaml:"front"`
	Back  string `yaml:"back"`
}

type SequenceSpec struct {
	Question string   `yaml:"question"`
	Items    []string `yaml:"items"`
}

// Loader loads starter packs from a directory tree.
type Loader struct {
	packs []Pack
}

// NewLoader walks rootDir for *.yaml pack files. Invalid files are skipped
// with a warning rather than failing the whole load.
func NewLoader(rootDir string) (*Loader, error) {
	l := &Loader{}
	err := filepath.Walk(rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		var p Pack
		if err := yaml.Unmarshal(data, &p); err != nil {
			slog.Warn("skipping invalid starter pack", "path", path, "error", err)
			return nil
		}
		if p.Title == "" || len(p.Stages) == 0 {
			slog.Warn("skipping incomplete starter pack", "path", path)
			return nil
		}
		l.packs = append(l.packs, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading starter packs: %w", err)
	}

	slog.Info("starter packs loaded", "packs", len(l.packs))
	return l, nil
}

// Packs returns the loaded pack definitions.
func (l *Loader) Packs() []Pack {
	return append([]Pack(nil), l.packs...)
}

// Seed builds each pack into a module and saves it, but only when the
// store holds no public modules yet. Returns the number seeded.
func (l *Loader) Seed(ctx context.Context, st store.GameStore) (int, error) {
	existing, err := st.ListPublic(ctx)
	if err != nil {
		return 0, fmt.Errorf("checking store before seeding: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	seeded := 0
	for _, p := range l.packs {
		m, err := buildModule(p)
		if err != nil {
			slog.Warn("skipping unbuildable starter pack", "title", p.Title, "error", err)
			continue
		}
		if _, err := st.Save(ctx, m, false); err != nil {
			return seeded, fmt.Errorf("seeding %q: %w", p.Title, err)
		}
		seeded++
	}
	return seeded, nil
}

// buildModule runs each stage spec through the same validation and
// encoding path user-authored stages take.
func buildModule(p Pack) (game.Module, error) {
	list := game.NewStageList(nil)
	for i, spec := range p.Stages {
		st, err := editState(spec)
		if err != nil {
			return game.Module{}, fmt.Errorf("stage %d: %w", i+1, err)
		}
		if err := game.Validate(spec.Type, st); err != nil {
			return game.Module{}, fmt.Errorf("stage %d: %w", i+1, err)
		}
		payload, err := game.Encode(spec.Type, st, time.Now())
		if err != nil {
			return game.Module{}, fmt.Errorf("stage %d: %w", i+1, err)
		}
		stage := game.Stage{
			ID:      game.NewStageID(),
			Type:    spec.Type,
			Title:   fmt.Sprintf("Unit (%s)", spec.Type),
			Payload: payload,
		}
		if err := list.Append(stage); err != nil {
			return game.Module{}, err
		}
	}

	author := p.Author
	if author == "" {
		author = "PlayForge"
	}
	return game.Assemble(game.Header{
		Title:       p.Title,
		Description: p.Description,
		Settings:    game.DefaultSettings(),
		AuthorID:    "starter",
		AuthorName:  author,
		IsPublic:    p.Public,
	}, list.All())
}

func editState(spec StageSpec) (game.EditState, error) {
	st := game.NewEditState()
	switch spec.Type {
	case game.TypeQuiz:
		if spec.Quiz == nil {
			return st, fmt.Errorf("quiz section missing")
		}
		st.Quiz.Question = spec.Quiz.Question
		st.Quiz.Options = append([]string(nil), spec.Quiz.Options...)
		if err := st.Quiz.SetCorrect(spec.Quiz.Correct); err != nil {
			return st, err
		}
		if err := st.Quiz.Commit(); err != nil {
			return st, err
		}
	case game.TypeMatching:
		for _, p := range spec.Pairs {
			st.Pairs = append(st.Pairs, game.MatchingPair{
				ID: game.NewStageID(), ItemA: p.A, ItemB: p.B,
			})
		}
	case game.TypeTrueFalse:
		for _, t := range spec.TrueFalse {
			st.TrueFalse = append(st.TrueFalse, game.TrueFalseItem{
				Statement: t.Statement, IsTrue: t.True,
			})
		}
	case game.TypeFlashcard:
		for _, c := range spec.Cards {
			st.Cards = append(st.Cards, game.FlashcardItem{Front: c.Front, Back: c.Back})
		}
	case game.TypeScramble:
		st.Scramble = append([]game.ScrambleItem(nil), spec.Scramble...)
	case game.TypeSequence:
		if spec.Sequence == nil {
			return st, fmt.Errorf("sequence section missing")
		}
		st.SequenceTexts = append([]string(nil), spec.Sequence.Items...)
		st.SequenceQuestion = spec.Sequence.Question
	case game.TypeCloze:
		st.ClozeText = spec.Cloze
	default:
		return st, fmt.Errorf("unknown stage type %q", spec.Type)
	}
	return st, nil
}
