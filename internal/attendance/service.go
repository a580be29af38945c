package attendance

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"absensi/internal/metrics"
	"absensi/internal/password"
)

const (
	generatedIDDigits = 9
	reservedAdminID   = "admin"
)

// PasswordHasher is the opaque derive/verify capability used at sign-in.
type PasswordHasher interface {
	Derive(plain string) (salt, hash string, err error)
	Verify(plain, salt, hash string) bool
}

// DailyLog appends one row per clock-in to the daily sheet.
type DailyLog interface {
	Append(ctx context.Context, rec Record) error
}

// Refresher recomputes the summaries that cover day.
type Refresher interface {
	Refresh(ctx context.Context, day time.Time) error
}

// Options tunes a Service. Zero values fall back to UTC, the wall clock and
// a 07:00-15:00 window.
type Options struct {
	Location      *time.Location
	DefaultWindow Window
	Now           func() time.Time
}

// Service coordinates accounts, clock-ins and the summary refresh.
type Service struct {
	repo      *Repository
	hasher    PasswordHasher
	daily     DailyLog
	refresher Refresher
	loc       *time.Location
	window    Window
	now       func() time.Time
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository, hasher PasswordHasher, daily DailyLog, refresher Refresher, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultWindow == (Window{}) {
		opts.DefaultWindow = Window{Start: 7 * 60, End: 15 * 60}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:      repo,
		hasher:    hasher,
		daily:     daily,
		refresher: refresher,
		loc:       opts.Location,
		window:    opts.DefaultWindow,
		now:       opts.Now,
	}
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	ID       string
	Name     string
	Role     string
	Password string
}

// Register stores a new account. An explicit id overwrites any existing
// account under that id; without one a random numeric id is generated.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Role == "" {
		return Account{}, fmt.Errorf("%w: name and role required", ErrInvalidInput)
	}
	role, ok := ParseRole(in.Role)
	if !ok {
		return Account{}, fmt.Errorf("%w: role must be one of admin, teacher, student, staff", ErrInvalidInput)
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		var err error
		if id, err = s.freeID(ctx); err != nil {
			return Account{}, err
		}
	}

	acc := Account{ID: id, Name: name, Role: role, History: []Record{}}
	if in.Password != "" {
		salt, hash, err := s.hasher.Derive(in.Password)
		if err != nil {
			return Account{}, fmt.Errorf("derive password: %w", err)
		}
		acc.Password = password.Join(salt, hash)
	}
	if err := s.repo.Put(ctx, acc); err != nil {
		return Account{}, err
	}
	return acc, nil
}

func (s *Service) freeID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		id, err := numericID(generatedIDDigits)
		if err != nil {
			return "", err
		}
		if _, err := s.repo.Get(ctx, id); errors.Is(err, ErrAccountNotFound) {
			return id, nil
		} else if err != nil {
			return "", err
		}
	}
	return "", errors.New("could not allocate account id")
}

func numericID(n int) (string, error) {
	var b strings.Builder
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.repo.Get(ctx, id)
}

// Remove deletes an account, failing with ErrAccountNotFound if it is absent.
func (s *Service) Remove(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id required", ErrInvalidInput)
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// List returns all accounts except the reserved admin account.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Account, 0, len(all))
	for _, acc := range all {
		if acc.ID == reservedAdminID {
			continue
		}
		out = append(out, acc)
	}
	return out, nil
}

// Authenticate checks id and password against the stored credential.
// Accounts without a password cannot sign in and report ErrAccountNotFound.
func (s *Service) Authenticate(ctx context.Context, id, plain string) (Account, error) {
	if id == "" || plain == "" {
		return Account{}, fmt.Errorf("%w: id and password required", ErrInvalidInput)
	}
	acc, err := s.repo.Get(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if acc.Password == "" {
		return Account{}, ErrAccountNotFound
	}
	salt, hash, err := password.Split(acc.Password)
	if err != nil {
		return Account{}, ErrBadCredentials
	}
	if !s.hasher.Verify(plain, salt, hash) {
		return Account{}, ErrBadCredentials
	}
	return acc, nil
}

// Window returns the stored working window, or the configured default.
func (s *Service) Window(ctx context.Context) (Window, error) {
	w, ok, err := s.repo.Window(ctx)
	if err != nil {
		return Window{}, err
	}
	if !ok {
		return s.window, nil
	}
	return w, nil
}

// SetWindow replaces the stored working window.
func (s *Service) SetWindow(ctx context.Context, start, end string) (Window, error) {
	w, err := NewWindow(start, end)
	if err != nil {
		return Window{}, err
	}
	if w.End <= w.Start {
		return Window{}, fmt.Errorf("%w: window end must be after start", ErrInvalidInput)
	}
	return w, s.repo.SetWindow(ctx, w)
}

// ClockIn classifies the current local time, appends the record to the
// account and the daily log, then refreshes the summaries. Only the account
// write can fail the call; daily log and summary failures are logged.
func (s *Service) ClockIn(ctx context.Context, id string) (Record, error) {
	if id == "" {
		return Record{}, fmt.Errorf("%w: id required", ErrInvalidInput)
	}
	acc, err := s.repo.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	w, err := s.Window(ctx)
	if err != nil {
		return Record{}, err
	}

	now := s.now().In(s.loc)
	rec := Record{
		SubjectID:   acc.ID,
		SubjectName: acc.Name,
		SubjectRole: acc.Role,
		Timestamp:   Timestamp(now),
		Status:      Classify(MinuteOfDay(now), w),
	}
	acc.History = append(acc.History, rec)
	if err := s.repo.Put(ctx, acc); err != nil {
		return Record{}, err
	}
	metrics.ClockIns.WithLabelValues(string(rec.Status)).Inc()

	if s.daily != nil {
		if err := s.daily.Append(ctx, rec); err != nil {
			log.Printf("clock-in %s: daily log append failed: %v", acc.ID, err)
		}
	}
	if s.refresher != nil {
		if err := s.refresher.Refresh(ctx, now); err != nil {
			log.Printf("clock-in %s: summary refresh failed: %v", acc.ID, err)
		}
	}
	return rec, nil
}
