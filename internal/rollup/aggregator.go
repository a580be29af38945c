package rollup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"absensi/internal/attendance"
	"absensi/internal/metrics"
	"absensi/internal/sheets"
)

// ErrAggregation is matched by every AggregationError.
var ErrAggregation = errors.New("aggregation failed")

// AggregationError reports a rollup that aborted part way. Rows written
// before the failure stay written.
type AggregationError struct {
	Tier string
	Err  error
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("%s rollup: %v", e.Tier, e.Err)
}

func (e *AggregationError) Unwrap() []error { return []error{ErrAggregation, e.Err} }

const (
	TierWeekly  = "weekly"
	TierMonthly = "monthly"
)

// Config names the sheets and working-day targets.
type Config struct {
	DailySheet   string
	WeeklySheet  string
	MonthlySheet string
	WeeklyDays   int
	MonthlyDays  int
}

// Specs returns the sheets the aggregator reads and writes.
func (c Config) Specs() []sheets.Spec {
	return []sheets.Spec{
		{Title: c.DailySheet, Header: DailyHeader},
		{Title: c.WeeklySheet, Header: SummaryHeader},
		{Title: c.MonthlySheet, Header: SummaryHeader},
	}
}

// Aggregator writes the daily log and maintains the summary sheets.
type Aggregator struct {
	store sheets.Store
	cfg   Config
}

// NewAggregator builds an aggregator over a sheet store.
func NewAggregator(store sheets.Store, cfg Config) *Aggregator {
	return &Aggregator{store: store, cfg: cfg}
}

// Append adds a clock-in to the daily sheet.
func (a *Aggregator) Append(ctx context.Context, rec attendance.Record) error {
	sh, err := a.store.Sheet(ctx, a.cfg.DailySheet)
	if err != nil {
		return err
	}
	return sh.Append(ctx, DailyValues(rec))
}

// Refresh recomputes the weekly summary for the ISO week of day and the
// monthly summary for its month. Both tiers run even if the first fails.
func (a *Aggregator) Refresh(ctx context.Context, day time.Time) error {
	var errs []error
	if _, err := a.RollupWeekly(ctx, day); err != nil {
		errs = append(errs, err)
	}
	if _, err := a.RollupMonthly(ctx, day.Format("2006-01")); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RollupWeekly summarizes the daily rows of day's ISO week under the period
// label YYYY-MM-DD of day, and upserts the result.
func (a *Aggregator) RollupWeekly(ctx context.Context, day time.Time) ([]Summary, error) {
	out, err := a.rollupWeekly(ctx, day)
	if err != nil {
		metrics.RollupFailures.WithLabelValues(TierWeekly).Inc()
		return nil, &AggregationError{Tier: TierWeekly, Err: err}
	}
	return out, nil
}

func (a *Aggregator) rollupWeekly(ctx context.Context, day time.Time) ([]Summary, error) {
	daily, err := a.store.Sheet(ctx, a.cfg.DailySheet)
	if err != nil {
		return nil, err
	}
	rows, err := daily.Rows(ctx)
	if err != nil {
		return nil, err
	}
	summaries := SummarizeWeekly(inWeekOf(rows, day), day.Format("2006-01-02"), a.cfg.WeeklyDays)
	if err := a.upsert(ctx, a.cfg.WeeklySheet, TierWeekly, summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// RollupMonthly summarizes weekly rows whose period starts with month
// (YYYY-MM) and upserts the result.
func (a *Aggregator) RollupMonthly(ctx context.Context, month string) ([]Summary, error) {
	out, err := a.rollupMonthly(ctx, month)
	if err != nil {
		metrics.RollupFailures.WithLabelValues(TierMonthly).Inc()
		return nil, &AggregationError{Tier: TierMonthly, Err: err}
	}
	return out, nil
}

func (a *Aggregator) rollupMonthly(ctx context.Context, month string) ([]Summary, error) {
	weekly, err := a.store.Sheet(ctx, a.cfg.WeeklySheet)
	if err != nil {
		return nil, err
	}
	rows, err := weekly.Rows(ctx)
	if err != nil {
		return nil, err
	}
	summaries := SummarizeMonthly(rows, month, a.cfg.MonthlyDays)
	if err := a.upsert(ctx, a.cfg.MonthlySheet, TierMonthly, summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// upsert overwrites the first row whose id matches each summary, or appends
// a new row. It stops at the first failed write. The target sheet must exist
// even when there is nothing to write.
func (a *Aggregator) upsert(ctx context.Context, title, tier string, summaries []Summary) error {
	sh, err := a.store.Sheet(ctx, title)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		return nil
	}
	rows, err := sh.Rows(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]sheets.Row, len(rows))
	for _, r := range rows {
		id := r.Get(colID)
		if _, seen := byID[id]; !seen {
			byID[id] = r
		}
	}

	for _, s := range summaries {
		if existing, ok := byID[s.SubjectID]; ok {
			existing.Values = s.Values()
			if err := sh.Update(ctx, existing); err != nil {
				return err
			}
			metrics.RollupRows.WithLabelValues(tier, "update").Inc()
			continue
		}
		if err := sh.Append(ctx, s.Values()); err != nil {
			return err
		}
		metrics.RollupRows.WithLabelValues(tier, "append").Inc()
	}
	return nil
}

// inWeekOf keeps rows whose timestamp date falls in the ISO week of day.
func inWeekOf(rows []sheets.Row, day time.Time) []sheets.Row {
	year, week := day.ISOWeek()
	out := rows[:0:0]
	for _, r := range rows {
		d, err := time.Parse("2006-01-02", dateOf(r.Get(dailyTimestamp)))
		if err != nil {
			continue
		}
		if y, w := d.ISOWeek(); y == year && w == week {
			out = append(out, r)
		}
	}
	return out
}

// Sheet returns the summary sheet for a tier, for export.
func (a *Aggregator) Sheet(ctx context.Context, tier string) (sheets.Sheet, error) {
	switch tier {
	case TierWeekly:
		return a.store.Sheet(ctx, a.cfg.WeeklySheet)
	case TierMonthly:
		return a.store.Sheet(ctx, a.cfg.MonthlySheet)
	}
	return nil, fmt.Errorf("%w: tier %q", sheets.ErrSheetNotFound, tier)
}
