// Package export renders leaderboards and attempt history as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"aptitude-service/internal/domain"
	"github.com/xuri/excelize/v2"
)

const (
	overallSheet  = "Overall"
	attemptsSheet = "Attempts"
	maxSheetName  = 31
)

// Source is the read side of the scoring service used by the exporter.
type Source interface {
	OverallLeaderboard(ctx context.Context, limit int) ([]domain.OverallLeaderboardEntry, error)
	ListTests(ctx context.Context) ([]domain.PublicTest, error)
	TestLeaderboard(ctx context.Context, testID string, limit int) (domain.TestLeaderboard, error)
	ListAttempts(ctx context.Context, filter domain.AttemptFilter) ([]domain.AttemptView, error)
}

// Write builds the workbook: the combined board, one sheet per test board,
// and every attempt newest first.
func Write(ctx context.Context, src Source, w io.Writer, limit int) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", overallSheet)

	overall, err := src.OverallLeaderboard(ctx, limit)
	if err != nil {
		return fmt.Errorf("overall leaderboard: %w", err)
	}
	rows := [][]interface{}{{"Rank", "User ID", "Name", "Email", "Total Score", "Avg Time (s)", "Tests"}}
	for _, e := range overall {
		rows = append(rows, []interface{}{e.Rank, e.UserID, e.UserName, e.UserEmail, e.TotalScore, e.AvgTimeTakenSeconds, e.TestCount})
	}
	if err := writeRows(f, overallSheet, rows); err != nil {
		return err
	}

	tests, err := src.ListTests(ctx)
	if err != nil {
		return fmt.Errorf("list tests: %w", err)
	}
	used := map[string]struct{}{strings.ToLower(overallSheet): {}, strings.ToLower(attemptsSheet): {}}
	for _, t := range tests {
		lb, err := src.TestLeaderboard(ctx, t.ID, limit)
		if err != nil {
			return fmt.Errorf("leaderboard for %s: %w", t.ID, err)
		}
		name := sheetName(t.Title, used)
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
		rows := [][]interface{}{{"Rank", "User ID", "Name", "Email", "Score", "Time (s)", "Accuracy %", "Submitted At"}}
		for _, e := range lb.Entries {
			rows = append(rows, []interface{}{e.Rank, e.UserID, e.UserName, e.UserEmail, e.Score, e.TimeTakenSeconds, e.AccuracyPercent, e.SubmittedAt.Format(time.RFC3339)})
		}
		if err := writeRows(f, name, rows); err != nil {
			return err
		}
	}

	attempts, err := src.ListAttempts(ctx, domain.AttemptFilter{})
	if err != nil {
		return fmt.Errorf("list attempts: %w", err)
	}
	if _, err := f.NewSheet(attemptsSheet); err != nil {
		return err
	}
	rows = [][]interface{}{{"Attempt ID", "User ID", "Name", "Test ID", "Test", "Score", "Total Marks", "Time (s)", "Accuracy %", "Submitted At"}}
	for _, a := range attempts {
		rows = append(rows, []interface{}{a.ID, a.UserID, a.UserName, a.TestID, a.TestTitle, a.Score, a.TotalMarks, a.TimeTakenSeconds, a.AccuracyPercent, a.SubmittedAt.Format(time.RFC3339)})
	}
	if err := writeRows(f, attemptsSheet, rows); err != nil {
		return err
	}

	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// sheetName makes title a legal, unique worksheet name. Excel forbids a few
// characters anywhere and an apostrophe at either end.
func sheetName(title string, used map[string]struct{}) string {
	base := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, title)
	base = trimEdges(truncate(trimEdges(base), maxSheetName))
	if base == "" {
		base = "Test"
	}

	name := base
	for n := 2; ; n++ {
		if _, taken := used[strings.ToLower(name)]; !taken {
			break
		}
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncate(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = struct{}{}
	return name
}

func trimEdges(s string) string {
	return strings.TrimFunc(s, func(r rune) bool { return r == '\'' || unicode.IsSpace(r) })
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
