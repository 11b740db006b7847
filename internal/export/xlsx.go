// Package export renders a module into an Excel workbook so authors can
// keep an offline copy of their content.
package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/playforge/playforge/internal/game"
)

const (
	overviewSheet = "Overview"
	stagesSheet   = "Stages"
)

// Workbook builds an .xlsx workbook with an overview sheet and one row per
// authored item. The caller owns the returned file.
func Workbook(m game.Module) (*excelize.File, error) {
	_, stages, err := game.Disassemble(m)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", m.ID, err)
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", overviewSheet)

	overview := [][2]any{
		{"Title", m.Title},
		{"Description", m.Description},
		{"Author", m.AuthorName},
		{"Public", m.IsPublic},
		{"Stages", len(stages)},
		{"Plays", m.Plays},
		{"Likes", m.Likes},
	}
	for i, kv := range overview {
		row := strconv.Itoa(i + 1)
		f.SetCellValue(overviewSheet, "A"+row, kv[0])
		f.SetCellValue(overviewSheet, "B"+row, kv[1])
	}

	if _, err := f.NewSheet(stagesSheet); err != nil {
		return nil, fmt.Errorf("export %s: %w", m.ID, err)
	}
	header := []any{"Stage", "Type", "Prompt", "Content", "Answer"}
	for col, v := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(stagesSheet, cell, v)
	}

	row := 2
	for i, st := range stages {
		for _, r := range stageRows(st) {
			f.SetCellValue(stagesSheet, "A"+strconv.Itoa(row), i+1)
			f.SetCellValue(stagesSheet, "B"+strconv.Itoa(row), string(st.Type))
			f.SetCellValue(stagesSheet, "C"+strconv.Itoa(row), r.prompt)
			f.SetCellValue(stagesSheet, "D"+strconv.Itoa(row), r.content)
			f.SetCellValue(stagesSheet, "E"+strconv.Itoa(row), r.answer)
			row++
		}
	}
	return f, nil
}

type itemRow struct {
	prompt  string
	content string
	answer  string
}

func stageRows(st game.Stage) []itemRow {
	switch p := st.Payload.(type) {
	case *game.QuizPayload:
		rows := make([]itemRow, 0, len(p.Items))
		for _, it := range p.Items {
			rows = append(rows, itemRow{
				prompt:  it.Question,
				content: strings.Join(it.Options, " / "),
				answer:  it.CorrectAnswer,
			})
		}
		return rows
	case *game.MatchingPayload:
		rows := make([]itemRow, 0, len(p.Pairs))
		for _, pair := range p.Pairs {
			rows = append(rows, itemRow{content: pair.ItemA, answer: pair.ItemB})
		}
		return rows
	case *game.TrueFalsePayload:
		rows := make([]itemRow, 0, len(p.Items))
		for _, it := range p.Items {
			rows = append(rows, itemRow{content: it.Statement, answer: strconv.FormatBool(it.IsTrue)})
		}
		return rows
	case *game.FlashcardPayload:
		rows := make([]itemRow, 0, len(p.Items))
		for _, it := range p.Items {
			rows = append(rows, itemRow{content: it.Front, answer: it.Back})
		}
		return rows
	case *game.ScramblePayload:
		rows := make([]itemRow, 0, len(p.Items))
		for _, it := range p.Items {
			rows = append(rows, itemRow{prompt: it.Hint, answer: it.Word})
		}
		return rows
	case *game.SequencePayload:
		rows := make([]itemRow, 0, len(p.Items))
		for _, it := range p.Items {
			rows = append(rows, itemRow{
				prompt:  p.Question,
				content: it.Text,
				answer:  strconv.Itoa(it.Order + 1),
			})
		}
		return rows
	case *game.ClozePayload:
		return []itemRow{{
			content: game.JoinCloze(p.TextParts, p.Answers),
			answer:  strings.Join(p.Answers, " / "),
		}}
	}
	return nil
}
