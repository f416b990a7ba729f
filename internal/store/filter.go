package store

import (
	"strings"
	"time"
)

// ActivityFilter selects activities by start time and type.
// Zero times leave that side of the range open. From and To are both
// inclusive.
type ActivityFilter struct {
	From time.Time
	To   time.Time
	Type string
}

// buildWhere returns a WHERE clause and args for the filter.
// Column names are fixed; only values travel as args.
func (f ActivityFilter) buildWhere(prefix string) (string, []any) {
	preds := []string{"1 = 1"}
	var args []any

	if !f.From.IsZero() {
		preds = append(preds, prefix+"start_date >= ?")
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		preds = append(preds, prefix+"start_date <= ?")
		args = append(args, formatTime(f.To))
	}
	if f.Type != "" {
		preds = append(preds, prefix+"type = ?")
		args = append(args, f.Type)
	}

	return strings.Join(preds, " AND "), args
}

// PeriodRange selects precomputed rows whose period starts in [From, To).
// Zero times leave that side open.
type PeriodRange struct {
	From time.Time
	To   time.Time
}

func (r PeriodRange) buildWhere(granularity string) (string, []any) {
	preds := []string{"granularity = ?"}
	args := []any{granularity}

	if !r.From.IsZero() {
		preds = append(preds, "period_start >= ?")
		args = append(args, formatTime(r.From))
	}
	if !r.To.IsZero() {
		preds = append(preds, "period_start < ?")
		args = append(args, formatTime(r.To))
	}

	return strings.Join(preds, " AND "), args
}

// formatTime renders t the way every timestamp column stores it, so string
// comparison in SQL matches chronological order.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
