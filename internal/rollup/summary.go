// Package rollup turns daily clock-in rows into weekly summaries and weekly
// summaries into monthly ones.
package rollup

import (
	"strconv"
	"strings"

	"absensi/internal/attendance"
	"absensi/internal/sheets"
)

const (
	// MinDailyRows is the number of daily rows a subject needs in a week to
	// get a weekly summary.
	MinDailyRows = 5

	// MinWeeklyRows is the number of weekly rows a subject needs in a month to
	// get a monthly summary.
	MinWeeklyRows = 22
)

// Daily sheet columns.
const (
	dailyID = iota
	dailyName
	dailyRole
	dailyTimestamp
	dailyStatus
)

// Summary sheet columns, shared by the weekly and monthly sheets.
const (
	colID = iota
	colName
	colRole
	colPeriod
	colOnTime
	colLate
	colOvertime
	colAbsent
	colPercentage
)

var (
	DailyHeader   = []string{"id", "nama", "jabatan", "waktu", "status"}
	SummaryHeader = []string{"id", "nama", "jabatan", "periode", "masuk", "terlambat", "lembur", "tidak_masuk", "persentase"}
)

// Summary is one weekly or monthly row.
type Summary struct {
	SubjectID   string
	SubjectName string
	SubjectRole string
	Period      string
	OnTime      int
	Late        int
	Overtime    int
	Absent      int
	Percentage  string
}

// Values renders the summary in sheet column order.
func (s Summary) Values() []string {
	return []string{
		s.SubjectID,
		s.SubjectName,
		s.SubjectRole,
		s.Period,
		strconv.Itoa(s.OnTime),
		strconv.Itoa(s.Late),
		strconv.Itoa(s.Overtime),
		strconv.Itoa(s.Absent),
		s.Percentage,
	}
}

// DailyValues renders a clock-in record as a daily sheet row.
func DailyValues(rec attendance.Record) []string {
	return []string{rec.SubjectID, rec.SubjectName, string(rec.SubjectRole), rec.Timestamp, string(rec.Status)}
}

// Percentage formats part/whole*100 with two decimals and a percent sign.
func Percentage(part, whole int) string {
	if whole <= 0 {
		return "0.00%"
	}
	return strconv.FormatFloat(float64(part)/float64(whole)*100, 'f', 2, 64) + "%"
}

// dateOf returns the date part of a "YYYY-MM-DD HH:MM GMT+7" timestamp.
func dateOf(ts string) string {
	date, _, _ := strings.Cut(strings.TrimSpace(ts), " ")
	return date
}

type weekly struct {
	Summary
	rows    int
	present map[string]struct{}
}

// SummarizeWeekly groups daily rows by subject. Subjects with fewer than
// MinDailyRows rows are dropped. Absence and percentage are computed from the
// number of distinct dates with an on-time or late clock-in; overtime alone
// does not mark a date present. Output keeps first-appearance order.
func SummarizeWeekly(rows []sheets.Row, period string, requiredDays int) []Summary {
	var order []string
	groups := make(map[string]*weekly)

	for _, r := range rows {
		id := r.Get(dailyID)
		g, ok := groups[id]
		if !ok {
			g = &weekly{
				Summary: Summary{
					SubjectID:   id,
					SubjectName: r.Get(dailyName),
					SubjectRole: r.Get(dailyRole),
					Period:      period,
				},
				present: make(map[string]struct{}),
			}
			groups[id] = g
			order = append(order, id)
		}
		g.rows++

		status, _ := attendance.ParseStatus(r.Get(dailyStatus))
		switch status {
		case attendance.StatusOnTime:
			g.OnTime++
		case attendance.StatusLate:
			g.Late++
		case attendance.StatusOvertime:
			g.Overtime++
		}
		if status.Present() {
			g.present[dateOf(r.Get(dailyTimestamp))] = struct{}{}
		}
	}

	out := make([]Summary, 0, len(order))
	for _, id := range order {
		g := groups[id]
		if g.rows < MinDailyRows {
			continue
		}
		days := len(g.present)
		g.Absent = requiredDays - days
		g.Percentage = Percentage(days, requiredDays)
		out = append(out, g.Summary)
	}
	return out
}

// SummarizeMonthly sums the weekly rows whose period starts with monthPrefix.
// Subjects with fewer than MinWeeklyRows matching rows are dropped. The
// percentage counts on-time plus late clock-ins against requiredDays.
// Counter cells that do not parse as integers count as zero.
func SummarizeMonthly(rows []sheets.Row, monthPrefix string, requiredDays int) []Summary {
	var order []string
	groups := make(map[string]*Summary)
	counts := make(map[string]int)

	for _, r := range rows {
		if !strings.HasPrefix(r.Get(colPeriod), monthPrefix) {
			continue
		}
		id := r.Get(colID)
		g, ok := groups[id]
		if !ok {
			g = &Summary{
				SubjectID:   id,
				SubjectName: r.Get(colName),
				SubjectRole: r.Get(colRole),
				Period:      monthPrefix,
			}
			groups[id] = g
			order = append(order, id)
		}
		counts[id]++
		g.OnTime += atoi(r.Get(colOnTime))
		g.Late += atoi(r.Get(colLate))
		g.Overtime += atoi(r.Get(colOvertime))
		g.Absent += atoi(r.Get(colAbsent))
	}

	out := make([]Summary, 0, len(order))
	for _, id := range order {
		if counts[id] < MinWeeklyRows {
			continue
		}
		g := groups[id]
		g.Percentage = Percentage(g.OnTime+g.Late, requiredDays)
		out = append(out, *g)
	}
	return out
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
