package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CheckKind tells whether a check series is paid on sight or predated
type CheckKind string

const (
	CheckSight    CheckKind = "sight"
	CheckPredated CheckKind = "predated"
)

// CheckSeries describes one or more checks handed over together by a client
type CheckSeries struct {
	Kind             CheckKind       `json:"kind"`
	Bank             string          `json:"bank"`
	Branch           string          `json:"branch"`
	Number           string          `json:"number"`
	ClientName       string          `json:"client_name"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	InstallmentCount int             `json:"installment_count"`
	FirstDueDate     *time.Time      `json:"first_due_date,omitempty"`
}

// kind resolves an empty Kind: a series without installments is a sight
// check, whatever due date it carries.
func (cs CheckSeries) kind() CheckKind {
	if cs.Kind != "" {
		return cs.Kind
	}
	if cs.InstallmentCount <= 0 {
		return CheckSight
	}
	return CheckPredated
}

// Checks expands the series into individual checks.
//
// A sight series yields exactly one check without due date. A predated series
// yields one check per installment, due one calendar month apart starting at
// FirstDueDate, numbered "<number>-<i+1>". Installment values are rounded to
// cents and the last one absorbs the remainder, so the series always adds up
// to TotalAmount. A non-positive installment count is treated as 1.
func (cs CheckSeries) Checks() ([]Check, error) {
	base := Check{
		Bank:       cs.Bank,
		Branch:     cs.Branch,
		Number:     cs.Number,
		ClientName: cs.ClientName,
		Amount:     cs.TotalAmount,
	}

	switch cs.kind() {
	case CheckSight:
		return []Check{base}, nil
	case CheckPredated:
	default:
		return nil, fmt.Errorf("%w: check kind %q", ErrInvalidValue, cs.Kind)
	}

	if cs.FirstDueDate == nil {
		return nil, fmt.Errorf("%w: predated checks need a first due date", ErrInvalidValue)
	}

	count := cs.InstallmentCount
	if count <= 0 {
		count = 1
	}

	n := decimal.NewFromInt(int64(count))
	installment := cs.TotalAmount.DivRound(n, 2)
	last := cs.TotalAmount.Sub(installment.Mul(decimal.NewFromInt(int64(count - 1))))

	checks := make([]Check, count)
	for i := range checks {
		due := cs.FirstDueDate.AddDate(0, i, 0)
		c := base
		c.Number = fmt.Sprintf("%s-%d", cs.Number, i+1)
		c.Amount = installment
		if i == count-1 {
			c.Amount = last
		}
		c.DueDate = &due
		checks[i] = c
	}
	return checks, nil
}

// WithCheckSeries returns a copy of s with the checks of series appended
func (s Session) WithCheckSeries(series CheckSeries) (Session, []Check, error) {
	checks, err := series.Checks()
	if err != nil {
		return s, nil, fmt.Errorf("expanding check series: %w", err)
	}

	n := s.Clone()
	n.Entries.Checks = append(n.Entries.Checks, checks...)
	return n, checks, nil
}
