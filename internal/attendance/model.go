package attendance

import (
	"errors"
	"strings"
)

var (
	// ErrAccountNotFound is returned when no account-<id> key exists.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidInput is returned for missing or out-of-range parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBadCredentials is returned when a password does not verify.
	ErrBadCredentials = errors.New("bad credentials")
)

// Role is the account's position in the institution.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
)

// ParseRole accepts the English names and the guru/siswa labels used by the
// front end.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, true
	case "teacher", "guru":
		return RoleTeacher, true
	case "student", "siswa":
		return RoleStudent, true
	case "staff":
		return RoleStaff, true
	}
	return "", false
}

// Status classifies a single clock-in. The values are the labels written to
// the daily sheet.
type Status string

const (
	StatusOnTime        Status = "masuk"
	StatusLate          Status = "terlambat"
	StatusOvertime      Status = "lembur"
	StatusOutsideWindow Status = "di luar jam kerja"
)

// ParseStatus maps a sheet label back to a Status, ignoring case.
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusOnTime:
		return StatusOnTime, true
	case StatusLate:
		return StatusLate, true
	case StatusOvertime:
		return StatusOvertime, true
	case StatusOutsideWindow:
		return StatusOutsideWindow, true
	}
	return "", false
}

// Present reports whether the status counts the day as attended.
func (s Status) Present() bool {
	return s == StatusOnTime || s == StatusLate
}

// Record is one clock-in. Records are append-only.
type Record struct {
	SubjectID   string `json:"id"`
	SubjectName string `json:"nama"`
	SubjectRole Role   `json:"jabatan"`
	Timestamp   string `json:"waktu"`
	Status      Status `json:"status"`
}

// Account is stored as JSON under account-<id>.
type Account struct {
	ID       string   `json:"user_id"`
	Name     string   `json:"nama"`
	Role     Role     `json:"jabatan"`
	Password string   `json:"password,omitempty"`
	History  []Record `json:"absent"`
}
