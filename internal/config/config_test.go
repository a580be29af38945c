package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WORK_START", "")
	t.Setenv("SESSION_TTL", "")
	cfg := Load()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.WeeklyWorkingDays != 5 || cfg.MonthlyWorkingDays != 22 {
		t.Fatalf("unexpected working days %d/%d", cfg.WeeklyWorkingDays, cfg.MonthlyWorkingDays)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("session ttl should default to set, got %s", cfg.SessionTTL)
	}
}

func TestSessionTTLZeroSelectsNoExpiry(t *testing.T) {
	t.Setenv("SESSION_TTL", "0")
	cfg := Load()
	if cfg.SessionTTL != 0 {
		t.Fatalf("want 0, got %s", cfg.SessionTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero session ttl should validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*App){
		"bad start":        func(a *App) { a.WorkStart = "nine" },
		"end out of range": func(a *App) { a.WorkEnd = "24:10" },
		"trailing text":    func(a *App) { a.WorkStart = "07:00junk" },
		"weekly days":      func(a *App) { a.WeeklyWorkingDays = 0 },
		"monthly days":     func(a *App) { a.MonthlyWorkingDays = -1 },
		"auth ttl":         func(a *App) { a.AuthTokenTTL = 0 },
		"samesite":         func(a *App) { a.CookieSameSite = "sometimes" },
		"sheet backend":    func(a *App) { a.SheetBackend = "gsheets" },
		"timezone":         func(a *App) { a.Timezone = "Mars/Olympus" },
		"queue on xlsx":    func(a *App) { a.SheetBackend, a.QueueBackend = "xlsx", "redis" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Load()
			mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("want ErrInvalid, got %v", err)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	got, err := ParseClock("09:30")
	if err != nil || got != 570 {
		t.Fatalf("ParseClock(09:30) = %d, %v", got, err)
	}
	if got, err := ParseClock(" 7:05 "); err != nil || got != 425 {
		t.Fatalf("ParseClock(7:05) = %d, %v", got, err)
	}
	for _, in := range []string{"x", "07:00junk", "-0:30", "07:00 | 15:00", "24:10", "12:60", "07:"} {
		if _, err := ParseClock(in); err == nil {
			t.Fatalf("ParseClock(%q) accepted a malformed clock", in)
		}
	}
}

func TestFrontendURLList(t *testing.T) {
	t.Setenv("FRONTEND_URL", "https://absen.example.sch.id, http://localhost:5173 ,")
	got := Load().FrontendURL
	if len(got) != 2 || got[0] != "https://absen.example.sch.id" || got[1] != "http://localhost:5173" {
		t.Fatalf("unexpected origins %q", got)
	}
}
