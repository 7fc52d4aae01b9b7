package register

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
)

// State is a step of the close-out workflow
type State string

const (
	StateOpen                 State = "open"
	StateReportGenerated      State = "report_generated"
	StateAwaitingConfirmation State = "awaiting_confirmation"
)

var (
	// ErrInvalidTransition is returned when an action is not allowed from the current state
	ErrInvalidTransition = errors.New("invalid close-out transition")

	// ErrNoReport is returned when the requested close-out report does not exist
	ErrNoReport = errors.New("close-out report not found")

	// ErrNoDocument is returned when a report file was never written or is gone
	ErrNoDocument = errors.New("close-out document not found")
)

// CloseOut drives the end-of-day workflow: generate a report, print it, then
// wait for the operator to confirm before the session is reset. The session
// is only destroyed on confirmation, so a failed or skipped print loses nothing.
type CloseOut struct {
	mu          sync.Mutex
	store       *Store
	db          DB
	storage     Storage
	printer     Printer
	operator    string
	idGenerator IDGenerator
	timeSource  TimeSource

	state  State
	report *Report
}

// NewCloseOut creates a close-out workflow over store
func NewCloseOut(store *Store, db DB, storage Storage, printer Printer, operator string) *CloseOut {
	return NewCloseOutWithDeps(store, db, storage, printer, operator, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewCloseOutWithDeps creates a close-out workflow with custom dependencies for testing
func NewCloseOutWithDeps(store *Store, db DB, storage Storage, printer Printer, operator string, idGen IDGenerator, timeSrc TimeSource) *CloseOut {
	if printer == nil {
		printer = NopPrinter{}
	}
	return &CloseOut{
		store:       store,
		db:          db,
		storage:     storage,
		printer:     printer,
		operator:    operator,
		idGenerator: idGen,
		timeSource:  timeSrc,
		state:       StateOpen,
	}
}

// State returns the current workflow state
func (c *CloseOut) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Report returns the pending report
func (c *CloseOut) Report() (*Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.report == nil {
		return nil, ErrNoReport
	}
	return c.report, nil
}

// Generate snapshots the live session into a report. Later edits of the
// session do not change it.
func (c *CloseOut) Generate() (*Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateOpen {
		return nil, fmt.Errorf("%w: generate from %s", ErrInvalidTransition, c.state)
	}

	report, err := NewReport(c.idGenerator.Generate(), c.operator, c.store.Snapshot(), c.timeSource.Now())
	if err != nil {
		return nil, fmt.Errorf("generating report: %w", err)
	}

	if c.storage != nil {
		if _, err := c.storage.Save(report.Filename, []byte(report.Markdown)); err != nil {
			slog.Warn("Failed to write report file", "file", report.Filename, "error", err)
		}
	}

	c.report = report
	c.state = StateReportGenerated
	slog.Info("Close-out report generated", "report_id", report.ID, "balance", report.Totals.Balance.StringFixed(2))
	return report, nil
}

// Print asks the printer for a copy and moves on to confirmation whatever the
// printer answers
func (c *CloseOut) Print(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReportGenerated {
		return fmt.Errorf("%w: print from %s", ErrInvalidTransition, c.state)
	}

	if err := c.printer.Print(ctx, c.report); err != nil {
		slog.Warn("Print failed", "report_id", c.report.ID, "error", err)
	}

	c.state = StateAwaitingConfirmation
	return nil
}

// Confirm archives the report and clears the session. The cancellation log
// survives. On failure the workflow stays in AwaitingConfirmation and can be
// confirmed again.
func (c *CloseOut) Confirm() (*Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAwaitingConfirmation {
		return nil, fmt.Errorf("%w: confirm from %s", ErrInvalidTransition, c.state)
	}

	report := *c.report
	confirmedAt := c.timeSource.Now()
	report.ConfirmedAt = &confirmedAt
	if err := c.db.SaveCloseOut(&report); err != nil {
		return nil, fmt.Errorf("archiving close-out: %w", err)
	}

	if err := c.store.Clear(); err != nil {
		return nil, fmt.Errorf("clearing session: %w", err)
	}

	c.report = nil
	c.state = StateOpen
	slog.Info("Close-out confirmed", "report_id", report.ID)
	return &report, nil
}

// Decline drops the pending report and its files and returns to Open with the
// session untouched
func (c *CloseOut) Decline() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReportGenerated && c.state != StateAwaitingConfirmation {
		return fmt.Errorf("%w: decline from %s", ErrInvalidTransition, c.state)
	}

	slog.Info("Close-out declined", "report_id", c.report.ID)
	c.discardFiles(c.report)
	c.report = nil
	c.state = StateOpen
	return nil
}

// History lists archived close-outs, oldest first
func (c *CloseOut) History() ([]*Report, error) {
	reports, err := c.db.ListCloseOuts()
	if err != nil {
		return nil, fmt.Errorf("listing close-outs: %w", err)
	}
	return reports, nil
}

// Archived retrieves a confirmed close-out by ID
func (c *CloseOut) Archived(id string) (*Report, error) {
	report, err := c.db.GetCloseOut(id)
	if err != nil {
		return nil, fmt.Errorf("getting close-out %s: %w", id, err)
	}
	return report, nil
}

// ArchivedPDF returns the printed PDF of a confirmed close-out and its file name
func (c *CloseOut) ArchivedPDF(id string) ([]byte, string, error) {
	report, err := c.Archived(id)
	if err != nil {
		return nil, "", err
	}

	name := ReportFilename(report.GeneratedAt, "pdf")
	if c.storage == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrNoDocument, name)
	}
	data, err := c.storage.Get(name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", fmt.Errorf("%w: %s", ErrNoDocument, name)
	}
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", name, err)
	}
	return data, name, nil
}

// discardFiles removes the documents written for a declined report
func (c *CloseOut) discardFiles(report *Report) {
	if c.storage == nil {
		return
	}
	for _, name := range []string{report.Filename, ReportFilename(report.GeneratedAt, "pdf")} {
		if err := c.storage.Delete(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to remove declined report file", "file", name, "error", err)
		}
	}
}
