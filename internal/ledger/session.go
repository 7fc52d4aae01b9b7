package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShipmentType identifies the postal service used for a mail shipment
type ShipmentType string

const (
	ShipmentPAC   ShipmentType = "PAC"
	ShipmentSEDEX ShipmentType = "SEDEX"
)

// sedexState is the only origin state accepted for SEDEX shipments
const sedexState = "SP"

// PullerCommissionRate is the fixed commission paid to a puller, in percent
var PullerCommissionRate = decimal.NewFromInt(4)

// Session is one open cash drawer period
type Session struct {
	Entries       Entries        `json:"entries"`
	Exits         Exits          `json:"exits"`
	Cancellations []Cancellation `json:"cancellations"`
	OpenedAt      time.Time      `json:"opened_at"`
}

// ClientAmount is an itemized line of a sub-ledger
type ClientAmount struct {
	Name         string          `json:"name"`
	Amount       decimal.Decimal `json:"amount"`
	Installments int             `json:"installments,omitempty"`
}

// Check is a paper check received at the register. A nil DueDate marks a sight check.
type Check struct {
	Bank       string          `json:"bank"`
	Branch     string          `json:"branch"`
	Number     string          `json:"number"`
	ClientName string          `json:"client_name"`
	Amount     decimal.Decimal `json:"amount"`
	DueDate    *time.Time      `json:"due_date,omitempty"`
}

// IsSight reports whether the check is payable immediately
func (c Check) IsSight() bool {
	return c.DueDate == nil
}

// Entries holds the inbound money of a session
type Entries struct {
	Cash             decimal.Decimal `json:"cash"`
	CashFund         decimal.Decimal `json:"cash_fund"`
	Card             decimal.Decimal `json:"card"`
	CardLink         decimal.Decimal `json:"card_link"`
	Invoices         decimal.Decimal `json:"invoices"`
	PixTerminal      decimal.Decimal `json:"pix_terminal"`
	PixAccount       decimal.Decimal `json:"pix_account"`
	Other            decimal.Decimal `json:"other"`
	OtherDescription string          `json:"other_description"`

	CardLinkClients   []ClientAmount `json:"card_link_clients"`
	InvoiceClients    []ClientAmount `json:"invoice_clients"`
	PixAccountClients []ClientAmount `json:"pix_account_clients"`
	Checks            []Check        `json:"checks"`
}

// Refund is money returned to a customer
type Refund struct {
	TaxID              string          `json:"tax_id"`
	Amount             decimal.Decimal `json:"amount"`
	IncludedInMovement bool            `json:"included_in_movement"`
}

// MailShipment is a package posted through the mail on behalf of a customer
type MailShipment struct {
	Type               ShipmentType    `json:"type"`
	State              string          `json:"state"`
	Client             string          `json:"client"`
	Amount             decimal.Decimal `json:"amount"`
	IncludedInMovement bool            `json:"included_in_movement"`
}

// CarrierShipment is a package handed to a carrier. The recipient pays, so it
// never carries an amount.
type CarrierShipment struct {
	ClientName string          `json:"client_name"`
	State      string          `json:"state"`
	WeightKg   decimal.Decimal `json:"weight_kg"`
	Quantity   int             `json:"quantity"`
}

// EmployeeAdvance is cash handed to an employee against their salary
type EmployeeAdvance struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// PullerClient is a sale brought in by a puller
type PullerClient struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// PullerCommission records the commission owed to a puller. Record-only.
type PullerCommission struct {
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage decimal.Decimal `json:"percentage"`
	Clients    []PullerClient  `json:"clients"`
}

// WithdrawalEntry is an ad hoc named cash-out record
type WithdrawalEntry struct {
	Name               string          `json:"name"`
	Amount             decimal.Decimal `json:"amount"`
	IncludedInMovement bool            `json:"included_in_movement"`
}

// Exits holds the outbound and record-only money of a session
type Exits struct {
	Discounts                   decimal.Decimal `json:"discounts"`
	Withdrawal                  decimal.Decimal `json:"withdrawal"`
	PurchaseJustification       string          `json:"purchase_justification"`
	PurchaseJustificationAmount decimal.Decimal `json:"purchase_justification_amount"`
	CashOutJustification        string          `json:"cash_out_justification"`
	CashOutJustificationAmount  decimal.Decimal `json:"cash_out_justification_amount"`

	Refunds                    []Refund          `json:"refunds"`
	MailShipments              []MailShipment    `json:"mail_shipments"`
	CarrierShipments           []CarrierShipment `json:"carrier_shipments"`
	EmployeeAdvances           []EmployeeAdvance `json:"employee_advances"`
	AdvancesIncludedInMovement bool              `json:"advances_included_in_movement"`
	PullerCommission           PullerCommission  `json:"puller_commission"`
	WithdrawalEntries          []WithdrawalEntry `json:"withdrawal_entries"`
}

// Cancellation is an entry of the append-only order cancellation log. It is
// audited separately and never affects the balance.
type Cancellation struct {
	ID               string          `json:"id"`
	OrderNumber      string          `json:"order_number"`
	NewOrderNumber   string          `json:"new_order_number"`
	CancelTime       time.Time       `json:"cancel_time"`
	Seller           string          `json:"seller"`
	Reason           string          `json:"reason"`
	ManagerSignature string          `json:"manager_signature"`
	Amount           decimal.Decimal `json:"amount"`
}

// NewSession returns an empty session opened at openedAt with the given fixed cash fund
func NewSession(cashFund decimal.Decimal, openedAt time.Time) Session {
	return Session{
		Entries: Entries{CashFund: cashFund},
		Exits: Exits{
			PullerCommission: PullerCommission{Percentage: PullerCommissionRate},
		},
		OpenedAt: openedAt,
	}
}

// Reset returns a fresh session that keeps the cash fund and the cancellation
// log of s. Every other monetary field and list goes back to its default.
func (s Session) Reset(openedAt time.Time) Session {
	fresh := NewSession(s.Entries.CashFund, openedAt)
	fresh.Cancellations = append([]Cancellation(nil), s.Cancellations...)
	return fresh
}

// Clone returns a deep copy of s. No list of the copy aliases s.
func (s Session) Clone() Session {
	c := s
	c.Entries.CardLinkClients = cloneSlice(s.Entries.CardLinkClients)
	c.Entries.InvoiceClients = cloneSlice(s.Entries.InvoiceClients)
	c.Entries.PixAccountClients = cloneSlice(s.Entries.PixAccountClients)
	c.Entries.Checks = cloneChecks(s.Entries.Checks)
	c.Exits.Refunds = cloneSlice(s.Exits.Refunds)
	c.Exits.MailShipments = cloneSlice(s.Exits.MailShipments)
	c.Exits.CarrierShipments = cloneSlice(s.Exits.CarrierShipments)
	c.Exits.EmployeeAdvances = cloneSlice(s.Exits.EmployeeAdvances)
	c.Exits.PullerCommission.Clients = cloneSlice(s.Exits.PullerCommission.Clients)
	c.Exits.WithdrawalEntries = cloneSlice(s.Exits.WithdrawalEntries)
	c.Cancellations = cloneSlice(s.Cancellations)
	return c
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneChecks(in []Check) []Check {
	out := cloneSlice(in)
	for i := range out {
		if out[i].DueDate != nil {
			d := *out[i].DueDate
			out[i].DueDate = &d
		}
	}
	return out
}
