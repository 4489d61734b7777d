// Package export renders job results as spreadsheets.
package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"talent-sourcing-service/internal/entity"
)

const (
	candidatesSheet = "Candidates"
	summarySheet    = "Summary"
)

var candidateHeaders = []string{
	"Rank",
	"Name",
	"Headline",
	"Location",
	"LinkedIn URL",
	"Score",
	"Recommendation",
	"Passed",
	"Education",
	"Career Trajectory",
	"Company Relevance",
	"Experience Match",
	"Location Match",
	"Tenure",
	"Skills",
	"Outreach Message",
	"Degraded Stages",
}

// ResultXLSX returns a workbook with one row per candidate, in result order,
// plus a summary sheet.
func ResultXLSX(res entity.JobResult) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// the default sheet becomes the candidates sheet
	if err := f.SetSheetName("Sheet1", candidatesSheet); err != nil {
		return nil, err
	}
	for i, h := range candidateHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(candidatesSheet, cell, h)
	}

	for i, c := range res.Candidates {
		row := i + 2
		b := c.ScoreBreakdown
		values := []any{
			i + 1,
			c.Name,
			c.Headline,
			c.Location,
			c.LinkedInURL,
			c.Score,
			string(c.Recommendation),
			c.Passed,
			b.Education,
			b.CareerTrajectory,
			b.CompanyRelevance,
			b.ExperienceMatch,
			b.LocationMatch,
			b.Tenure,
			strings.Join(c.Skills, ", "),
			c.OutreachMessage,
			strings.Join(c.DegradedStages, ", "),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(candidatesSheet, cell, v)
		}
	}

	_ = f.SetColWidth(candidatesSheet, "B", "C", 28)
	_ = f.SetColWidth(candidatesSheet, "D", "D", 20)
	_ = f.SetColWidth(candidatesSheet, "E", "E", 44)
	_ = f.SetColWidth(candidatesSheet, "O", "O", 40)
	_ = f.SetColWidth(candidatesSheet, "P", "P", 60)

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	summary := [][2]any{
		{"Job ID", res.JobID},
		{"Search Method", string(res.SearchMethod)},
		{"Search Query", res.SearchQuery},
		{"Total Candidates", res.TotalCandidates},
		{"Passed Candidates", res.PassedCandidates},
		{"Failed Candidates", res.FailedCandidates},
		{"Pass Rate", res.PassRate},
		{"Cached", res.Cached},
	}
	if !res.CompletedAt.IsZero() {
		summary = append(summary, [2]any{"Completed At", res.CompletedAt.UTC().Format("2006-01-02 15:04:05")})
	}
	for i, kv := range summary {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+1), kv[0])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), kv[1])
	}
	_ = f.SetColWidth(summarySheet, "A", "A", 20)
	_ = f.SetColWidth(summarySheet, "B", "B", 60)

	idx, _ := f.GetSheetIndex(candidatesSheet)
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
