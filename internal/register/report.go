package register

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/caixa/internal/ledger"
)

//go:embed templates/report.md.tmpl
var reportTemplateText string

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"brl":     ledger.FormatBRL,
	"status":  ruleStatus,
	"dueDate": dueDate,
	"yesNo":   yesNo,
	"kg":      func(d decimal.Decimal) string { return strings.Replace(d.StringFixed(2), ".", ",", 1) + " kg" },
}).Parse(reportTemplateText))

// Report is a point-in-time close-out snapshot. It does not change when the
// session is edited after it was generated.
type Report struct {
	ID             string                `json:"id"`
	Operator       string                `json:"operator"`
	GeneratedAt    time.Time             `json:"generated_at"`
	ConfirmedAt    *time.Time            `json:"confirmed_at,omitempty"`
	Session        ledger.Session        `json:"session"`
	Totals         ledger.Totals         `json:"totals"`
	Reconciliation ledger.Reconciliation `json:"reconciliation"`
	Filename       string                `json:"filename"`
	Markdown       string                `json:"markdown"`
}

// NewReport snapshots session into a rendered report
func NewReport(id, operator string, session ledger.Session, generatedAt time.Time) (*Report, error) {
	r := &Report{
		ID:             id,
		Operator:       operator,
		GeneratedAt:    generatedAt,
		Session:        session.Clone(),
		Totals:         ledger.Compute(session),
		Reconciliation: ledger.Reconcile(session),
		Filename:       ReportFilename(generatedAt, "md"),
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, r); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}
	r.Markdown = buf.String()
	return r, nil
}

// ReportFilename names a close-out document, e.g. fechamento_caixa_2024-03-01_18-30-00.md
func ReportFilename(at time.Time, ext string) string {
	return fmt.Sprintf("fechamento_caixa_%s_%s.%s", at.Format("2006-01-02"), at.Format("15-04-05"), ext)
}

func ruleStatus(r ledger.RuleResult) string {
	switch {
	case !r.Active:
		return "não conferido"
	case r.Matches:
		return "OK, conferido"
	default:
		return fmt.Sprintf("DIVERGENTE: declarado %s, itens somam %s (diferença %s)",
			ledger.FormatBRL(r.Expected), ledger.FormatBRL(r.Actual), ledger.FormatBRL(r.Diff))
	}
}

func dueDate(c ledger.Check) string {
	if c.IsSight() {
		return "à vista"
	}
	return c.DueDate.Format("02/01/2006")
}

func yesNo(b bool) string {
	if b {
		return "sim"
	}
	return "não"
}

func sortReports(reports []*Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].GeneratedAt.Before(reports[j].GeneratedAt)
	})
}
