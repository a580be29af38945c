package attendance

import (
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	w := Window{Start: 9 * 60, End: 17 * 60}
	cases := []struct {
		name string
		now  int
		want Status
	}{
		{"before start", 8*60 + 59, StatusOnTime},
		{"at start", 9 * 60, StatusLate},
		{"inside grace", 9*60 + 59, StatusLate},
		{"grace edge", 10 * 60, StatusLate},
		{"after grace", 10*60 + 1, StatusOutsideWindow},
		{"mid day", 13 * 60, StatusOutsideWindow},
		{"at end", 17 * 60, StatusOvertime},
		{"late evening", 23*60 + 59, StatusOvertime},
		// Minutes are same-day only, so the small hours land before the window.
		{"early morning has no day wrap", 2 * 60, StatusOnTime},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.now, w); got != tc.want {
				t.Fatalf("Classify(%d) = %q, want %q", tc.now, got, tc.want)
			}
		})
	}
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("07:00|15:30")
	if err != nil {
		t.Fatalf("ParseWindow: %v", err)
	}
	if w.Start != 420 || w.End != 930 {
		t.Fatalf("unexpected window %+v", w)
	}
	if w.String() != "07:00|15:30" {
		t.Fatalf("String() = %q", w.String())
	}
	if _, err := ParseWindow("07:00"); err == nil {
		t.Fatal("expected error without separator")
	}
}

func TestTimestamp(t *testing.T) {
	jkt := time.FixedZone("WIB", 7*3600)
	got := Timestamp(time.Date(2024, 3, 4, 8, 5, 0, 0, jkt))
	if got != "2024-03-04 08:05 GMT+7" {
		t.Fatalf("Timestamp = %q", got)
	}
	ist := time.FixedZone("IST", 5*3600+1800)
	if got := Timestamp(time.Date(2024, 3, 4, 8, 5, 0, 0, ist)); got != "2024-03-04 08:05 GMT+5:30" {
		t.Fatalf("Timestamp = %q", got)
	}
}
