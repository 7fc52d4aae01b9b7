package register

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/caixa/internal/ledger"
)

var (
	// ErrRecordsBlocked is returned when access control forbids creating records
	ErrRecordsBlocked = errors.New("record creation is not available for this account")

	// ErrNotReconciled is matched by every ReconciliationError
	ErrNotReconciled = errors.New("session does not reconcile")
)

// ReconciliationError lists the rules that blocked a save
type ReconciliationError struct {
	Failing []ledger.RuleResult
}

func (e *ReconciliationError) Error() string {
	rules := make([]string, 0, len(e.Failing))
	for _, r := range e.Failing {
		rules = append(rules, fmt.Sprintf("%s (expected %s, got %s)", r.Rule, r.Expected.StringFixed(2), r.Actual.StringFixed(2)))
	}
	return fmt.Sprintf("%s: %s", ErrNotReconciled, strings.Join(rules, ", "))
}

func (e *ReconciliationError) Unwrap() error {
	return ErrNotReconciled
}

// IDGenerator generates unique IDs for cancellations and close-outs
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// sessionComparer treats amounts as equal by value and nil lists as empty
var sessionComparer = cmp.Options{
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
	cmpopts.EquateEmpty(),
}

// Store holds the live cash session. Every mutation builds a new session value
// and swaps it in, so readers never observe a partial update.
type Store struct {
	mu          sync.Mutex
	db          DB
	access      AccessControl
	cashFund    decimal.Decimal
	idGenerator IDGenerator
	timeSource  TimeSource

	session  ledger.Session
	baseline ledger.Session
}

// NewStore creates a Store and loads the last persisted session
func NewStore(db DB, access AccessControl, cashFund decimal.Decimal) *Store {
	return NewStoreWithDeps(db, access, cashFund, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewStoreWithDeps creates a Store with custom dependencies for testing
func NewStoreWithDeps(db DB, access AccessControl, cashFund decimal.Decimal, idGen IDGenerator, timeSrc TimeSource) *Store {
	s := &Store{
		db:          db,
		access:      access,
		cashFund:    cashFund,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
	s.session = s.load()
	s.baseline = s.session.Clone()
	return s
}

// load falls back to a fresh session when nothing usable is stored
func (s *Store) load() ledger.Session {
	stored, err := s.db.LoadSession()
	if err != nil {
		slog.Warn("Discarding unreadable session snapshot", "error", err)
		return ledger.NewSession(s.cashFund, s.timeSource.Now())
	}
	if stored == nil {
		return ledger.NewSession(s.cashFund, s.timeSource.Now())
	}

	session := stored.Clone()
	session.Entries.CashFund = s.cashFund
	slog.Info("Session restored", "opened_at", session.OpenedAt, "checks", len(session.Entries.Checks))
	return session
}

// SessionView is a consistent read of the live session and everything derived from it
type SessionView struct {
	Session        ledger.Session        `json:"session"`
	Totals         ledger.Totals         `json:"totals"`
	Reconciliation ledger.Reconciliation `json:"reconciliation"`
	CanSave        bool                  `json:"can_save"`
	HasChanges     bool                  `json:"has_changes"`
}

// View reads the session, its totals and its reconciliation under one lock
func (s *Store) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := ledger.Reconcile(s.session)
	return SessionView{
		Session:        s.session.Clone(),
		Totals:         ledger.Compute(s.session),
		Reconciliation: rec,
		CanSave:        s.access.CanCreateRecords() && rec.Valid(),
		HasChanges:     !cmp.Equal(s.session, s.baseline, sessionComparer),
	}
}

// Snapshot returns a private copy of the live session
func (s *Store) Snapshot() ledger.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Clone()
}

// Totals derives the totals of the live session
func (s *Store) Totals() ledger.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledger.Compute(s.session)
}

// Reconciliation evaluates the reconciliation rules on the live session
func (s *Store) Reconciliation() ledger.Reconciliation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledger.Reconcile(s.session)
}

// CanSave reports whether Save would currently succeed
func (s *Store) CanSave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access.CanCreateRecords() && ledger.Reconcile(s.session).Valid()
}

// HasChanges reports whether the live session differs from the last loaded or
// persisted snapshot
func (s *Store) HasChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !cmp.Equal(s.session, s.baseline, sessionComparer)
}

// UpdateEntryField replaces one entry field
func (s *Store) UpdateEntryField(field string, value any) error {
	return s.apply(func(cur ledger.Session) (ledger.Session, error) {
		return cur.WithEntryField(field, value)
	})
}

// UpdateExitField replaces one exit field
func (s *Store) UpdateExitField(field string, value any) error {
	return s.apply(func(cur ledger.Session) (ledger.Session, error) {
		return cur.WithExitField(field, value)
	})
}

// AddListItem appends an item to a named sub-ledger
func (s *Store) AddListItem(list string, item any) error {
	return s.apply(func(cur ledger.Session) (ledger.Session, error) {
		return cur.WithListItem(list, item)
	})
}

// RemoveListItem drops the item at index from a named sub-ledger
func (s *Store) RemoveListItem(list string, index int) error {
	return s.apply(func(cur ledger.Session) (ledger.Session, error) {
		return cur.WithoutListItem(list, index)
	})
}

// AddCheckInstallmentSeries expands a check series and appends the resulting checks
func (s *Store) AddCheckInstallmentSeries(series ledger.CheckSeries) ([]ledger.Check, error) {
	var added []ledger.Check
	err := s.apply(func(cur ledger.Session) (ledger.Session, error) {
		next, checks, err := cur.WithCheckSeries(series)
		added = checks
		return next, err
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (s *Store) apply(mutate func(ledger.Session) (ledger.Session, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := mutate(s.session)
	if err != nil {
		return err
	}
	s.session = next
	return nil
}

// Save persists the live session. It is refused when access control blocks
// record creation or when any active reconciliation rule does not match.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.access.CanCreateRecords() {
		return ErrRecordsBlocked
	}
	if rec := ledger.Reconcile(s.session); !rec.Valid() {
		return &ReconciliationError{Failing: rec.Failing()}
	}

	snapshot := s.session.Clone()
	if err := s.db.SaveSession(&snapshot); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	s.baseline = snapshot
	slog.Info("Session saved", "balance", ledger.Compute(snapshot).Balance.StringFixed(2))
	return nil
}

// AddCancellation appends an entry to the cancellation log and persists it
// right away on top of the last saved snapshot. Unsaved edits of the session
// stay unsaved.
func (s *Store) AddCancellation(c ledger.Cancellation) (ledger.Cancellation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.access.CanCreateRecords() {
		return ledger.Cancellation{}, ErrRecordsBlocked
	}

	c.ID = s.idGenerator.Generate()
	if c.CancelTime.IsZero() {
		c.CancelTime = s.timeSource.Now()
	}

	baseline := s.baseline.Clone()
	baseline.Cancellations = append(baseline.Cancellations, c)
	if err := s.db.SaveSession(&baseline); err != nil {
		return ledger.Cancellation{}, fmt.Errorf("saving cancellation: %w", err)
	}

	s.baseline = baseline
	s.session.Cancellations = append(append([]ledger.Cancellation(nil), s.session.Cancellations...), c)
	slog.Info("Cancellation recorded", "id", c.ID, "order", c.OrderNumber)
	return c, nil
}

// Cancellations returns the cancellation log
func (s *Store) Cancellations() []ledger.Cancellation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Clone().Cancellations
}

// Clear resets every monetary field and list to its default and persists the
// fresh session. The cancellation log is kept. Nothing changes when the
// fresh session cannot be persisted.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := s.session.Reset(s.timeSource.Now())
	fresh.Entries.CashFund = s.cashFund
	if err := s.db.SaveSession(&fresh); err != nil {
		return fmt.Errorf("saving cleared session: %w", err)
	}

	s.session = fresh
	s.baseline = fresh.Clone()
	slog.Info("Session cleared", "opened_at", fresh.OpenedAt)
	return nil
}
