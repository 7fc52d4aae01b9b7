package ledger

import "github.com/shopspring/decimal"

// Rule names one reconciliation invariant
type Rule string

const (
	RuleCardLink   Rule = "card_link"
	RuleInvoices   Rule = "invoices"
	RulePixAccount Rule = "pix_account"
	RuleWithdrawal Rule = "withdrawal"
)

// RuleResult is the outcome of one rule. Expected is the declared parent
// amount, Actual the itemized sum and Diff is Expected minus Actual.
type RuleResult struct {
	Rule     Rule            `json:"rule"`
	Active   bool            `json:"active"`
	Matches  bool            `json:"matches"`
	Expected decimal.Decimal `json:"expected"`
	Actual   decimal.Decimal `json:"actual"`
	Diff     decimal.Decimal `json:"diff"`
}

// Blocking reports whether the result prevents the session from being saved
func (r RuleResult) Blocking() bool {
	return r.Active && !r.Matches
}

// Reconciliation holds one result per rule, in rule order
type Reconciliation struct {
	CardLink   RuleResult `json:"card_link"`
	Invoices   RuleResult `json:"invoices"`
	PixAccount RuleResult `json:"pix_account"`
	Withdrawal RuleResult `json:"withdrawal"`
}

// Results returns the rule results in a fixed order
func (r Reconciliation) Results() []RuleResult {
	return []RuleResult{r.CardLink, r.Invoices, r.PixAccount, r.Withdrawal}
}

// Valid is the AND of every active rule. Inactive rules never block.
func (r Reconciliation) Valid() bool {
	for _, res := range r.Results() {
		if res.Blocking() {
			return false
		}
	}
	return true
}

// Failing returns the active rules that do not match
func (r Reconciliation) Failing() []RuleResult {
	var failing []RuleResult
	for _, res := range r.Results() {
		if res.Blocking() {
			failing = append(failing, res)
		}
	}
	return failing
}

// Reconcile evaluates every reconciliation rule against s
func Reconcile(s Session) Reconciliation {
	e, x := s.Entries, s.Exits

	justified := Sum(x.PurchaseJustificationAmount, x.CashOutJustificationAmount)
	hasJustification := !x.PurchaseJustificationAmount.IsZero() || !x.CashOutJustificationAmount.IsZero()

	return Reconciliation{
		CardLink:   compare(RuleCardLink, len(e.CardLinkClients) > 0, e.CardLink, SumClients(e.CardLinkClients)),
		Invoices:   compare(RuleInvoices, len(e.InvoiceClients) > 0, e.Invoices, SumClients(e.InvoiceClients)),
		PixAccount: compare(RulePixAccount, e.PixAccount.IsPositive(), e.PixAccount, SumClients(e.PixAccountClients)),
		Withdrawal: compare(RuleWithdrawal, x.Withdrawal.IsPositive() && hasJustification, x.Withdrawal, justified),
	}
}

func compare(rule Rule, active bool, expected, actual decimal.Decimal) RuleResult {
	return RuleResult{
		Rule:     rule,
		Active:   active,
		Matches:  expected.Equal(actual),
		Expected: expected,
		Actual:   actual,
		Diff:     expected.Sub(actual),
	}
}
