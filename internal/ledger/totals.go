package ledger

import "github.com/shopspring/decimal"

// Totals are the figures derived from a session. Nothing here is stored.
type Totals struct {
	TotalEntriesBase        decimal.Decimal `json:"total_entries_base"`
	TotalChecks             decimal.Decimal `json:"total_checks"`
	TotalMailAmount         decimal.Decimal `json:"total_mail_amount"`
	TotalIncludedMailAmount decimal.Decimal `json:"total_included_mail_amount"`
	TotalRefunds            decimal.Decimal `json:"total_refunds"`
	TotalRefundsIncluded    decimal.Decimal `json:"total_refunds_included"`
	TotalEmployeeAdvances   decimal.Decimal `json:"total_employee_advances"`
	AdvancesImpact          decimal.Decimal `json:"advances_impact"`
	TotalWithdrawalEntries  decimal.Decimal `json:"total_withdrawal_entries"`
	TotalWithdrawalIncluded decimal.Decimal `json:"total_withdrawal_entries_included"`
	TotalPullerClients      decimal.Decimal `json:"total_puller_clients"`
	CarrierShipmentCount    int             `json:"carrier_shipment_count"`
	CarrierShipmentWeightKg decimal.Decimal `json:"carrier_shipment_weight_kg"`
	TotalCancellations      decimal.Decimal `json:"total_cancellations"`
	GrandTotalEntries       decimal.Decimal `json:"grand_total_entries"`
	TotalRecordedExits      decimal.Decimal `json:"total_recorded_exits"`
	Balance                 decimal.Decimal `json:"balance"`
}

// Compute derives every total of s. It is pure and deterministic.
//
// Exits are record-only: they are summed into TotalRecordedExits for the
// report but never subtracted from the balance. Only the items explicitly
// flagged as included in the movement reach GrandTotalEntries.
func Compute(s Session) Totals {
	e, x := s.Entries, s.Exits
	var t Totals

	for _, m := range x.MailShipments {
		t.TotalMailAmount = t.TotalMailAmount.Add(m.Amount)
		if m.IncludedInMovement {
			t.TotalIncludedMailAmount = t.TotalIncludedMailAmount.Add(m.Amount)
		}
	}

	t.TotalEntriesBase = Sum(
		e.Cash, e.CashFund, e.Card, e.CardLink, e.Invoices,
		e.PixTerminal, e.PixAccount, e.Other, t.TotalIncludedMailAmount,
	)
	t.TotalChecks = SumChecks(e.Checks)

	for _, r := range x.Refunds {
		t.TotalRefunds = t.TotalRefunds.Add(r.Amount)
		if r.IncludedInMovement {
			t.TotalRefundsIncluded = t.TotalRefundsIncluded.Add(r.Amount)
		}
	}

	for _, a := range x.EmployeeAdvances {
		t.TotalEmployeeAdvances = t.TotalEmployeeAdvances.Add(a.Amount)
	}
	if x.AdvancesIncludedInMovement {
		t.AdvancesImpact = t.TotalEmployeeAdvances
	}

	for _, w := range x.WithdrawalEntries {
		t.TotalWithdrawalEntries = t.TotalWithdrawalEntries.Add(w.Amount)
		if w.IncludedInMovement {
			t.TotalWithdrawalIncluded = t.TotalWithdrawalIncluded.Add(w.Amount)
		}
	}

	for _, c := range x.PullerCommission.Clients {
		t.TotalPullerClients = t.TotalPullerClients.Add(c.Amount)
	}

	for _, c := range x.CarrierShipments {
		t.CarrierShipmentCount += c.Quantity
		t.CarrierShipmentWeightKg = t.CarrierShipmentWeightKg.Add(c.WeightKg)
	}

	for _, c := range s.Cancellations {
		t.TotalCancellations = t.TotalCancellations.Add(c.Amount)
	}

	t.GrandTotalEntries = Sum(t.TotalEntriesBase, t.TotalChecks, t.TotalRefundsIncluded, t.AdvancesImpact)
	t.TotalRecordedExits = Sum(
		x.Discounts, x.Withdrawal, t.TotalRefunds,
		t.TotalEmployeeAdvances, x.PullerCommission.Amount,
	)
	t.Balance = t.GrandTotalEntries

	return t
}

// SumChecks returns the total value of checks
func SumChecks(checks []Check) decimal.Decimal {
	total := decimal.Zero
	for _, c := range checks {
		total = total.Add(c.Amount)
	}
	return total
}

// SumClients returns the total of an itemized client sub-ledger
func SumClients(clients []ClientAmount) decimal.Decimal {
	total := decimal.Zero
	for _, c := range clients {
		total = total.Add(c.Amount)
	}
	return total
}
