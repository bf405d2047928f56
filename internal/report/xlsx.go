// Package report renders audit history into shareable artifacts.
package report

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/veracity-group/truthscan-cli/internal/model"
	"github.com/veracity-group/truthscan-cli/internal/store"
)

const timeLayout = time.RFC3339

// evaluationHistoryLimit bounds how many evaluation rows the workbook
// carries per entity.
const evaluationHistoryLimit = 500

// WriteWorkbook exports an entity's evaluation history and hallucination
// ledger to an xlsx file at path.
func WriteWorkbook(ctx context.Context, st store.Store, tenantID, entityID, path string) error {
	entity, err := st.GetEntity(ctx, tenantID, entityID)
	if err != nil {
		return eris.Wrapf(err, "report: loading entity %s", entityID)
	}
	evals, err := st.ListEvaluations(ctx, tenantID, entityID, evaluationHistoryLimit)
	if err != nil {
		return eris.Wrap(err, "report: loading evaluations")
	}
	hallucinations, err := st.ListHallucinations(ctx, tenantID, entityID)
	if err != nil {
		return eris.Wrap(err, "report: loading hallucinations")
	}

	f := xlsx.NewFile()
	if err := addEvaluationSheet(f, *entity, evals); err != nil {
		return err
	}
	if err := addHallucinationSheet(f, hallucinations); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: writing workbook %s", path)
	}
	return nil
}

func addEvaluationSheet(f *xlsx.File, entity model.Entity, evals []model.Evaluation) error {
	sheet, err := f.AddSheet("Evaluations")
	if err != nil {
		return eris.Wrap(err, "report: adding evaluations sheet")
	}

	addRow(sheet, "Entity", entity.Name, entity.ID)
	addRow(sheet, "Engine", "Score", "Fallback", "Inaccuracies", "Created At")
	for _, ev := range evals {
		score := ""
		if ev.AccuracyScore != nil {
			score = strconv.Itoa(*ev.AccuracyScore)
		}
		fallback := ""
		if ev.Fallback {
			fallback = "yes"
		}
		addRow(sheet,
			string(ev.Engine),
			score,
			fallback,
			strings.Join(ev.InaccuracyDescriptions(), "; "),
			ev.CreatedAt.Format(timeLayout),
		)
	}
	return nil
}

func addHallucinationSheet(f *xlsx.File, recs []model.Hallucination) error {
	sheet, err := f.AddSheet("Hallucinations")
	if err != nil {
		return eris.Wrap(err, "report: adding hallucinations sheet")
	}

	addRow(sheet, "Engine", "Claim", "Expected", "Severity", "Status", "Detected At", "Resolved At")
	for _, h := range recs {
		resolved := ""
		if h.ResolvedAt != nil {
			resolved = h.ResolvedAt.Format(timeLayout)
		}
		addRow(sheet,
			string(h.Engine),
			h.Claim,
			h.Expected,
			string(h.Severity),
			string(h.Status),
			h.DetectedAt.Format(timeLayout),
			resolved,
		)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().Value = v
	}
}
