package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidField = errors.New("invalid field")
	ErrReadOnly     = errors.New("field is read-only")
	ErrInvalidValue = errors.New("invalid value")
	ErrInvalidIndex = errors.New("invalid list index")
)

// Entry field names accepted by WithEntryField
const (
	FieldCash              = "cash"
	FieldCashFund          = "cash_fund"
	FieldCard              = "card"
	FieldCardLink          = "card_link"
	FieldInvoices          = "invoices"
	FieldPixTerminal       = "pix_terminal"
	FieldPixAccount        = "pix_account"
	FieldOther             = "other"
	FieldOtherDescription  = "other_description"
	FieldCardLinkClients   = "card_link_clients"
	FieldInvoiceClients    = "invoice_clients"
	FieldPixAccountClients = "pix_account_clients"
	FieldChecks            = "checks"
)

// Exit field names accepted by WithExitField
const (
	FieldDiscounts                   = "discounts"
	FieldWithdrawal                  = "withdrawal"
	FieldPurchaseJustification       = "purchase_justification"
	FieldPurchaseJustificationAmount = "purchase_justification_amount"
	FieldCashOutJustification        = "cash_out_justification"
	FieldCashOutJustificationAmount  = "cash_out_justification_amount"
	FieldRefunds                     = "refunds"
	FieldMailShipments               = "mail_shipments"
	FieldCarrierShipments            = "carrier_shipments"
	FieldEmployeeAdvances            = "employee_advances"
	FieldAdvancesIncludedInMovement  = "advances_included_in_movement"
	FieldPullerCommission            = "puller_commission"
	FieldPullerName                  = "puller_name"
	FieldWithdrawalEntries           = "withdrawal_entries"
)

// List names accepted by WithListItem and WithoutListItem
const (
	ListCardLinkClients   = FieldCardLinkClients
	ListInvoiceClients    = FieldInvoiceClients
	ListPixAccountClients = FieldPixAccountClients
	ListChecks            = FieldChecks
	ListRefunds           = FieldRefunds
	ListMailShipments     = FieldMailShipments
	ListCarrierShipments  = FieldCarrierShipments
	ListEmployeeAdvances  = FieldEmployeeAdvances
	ListWithdrawalEntries = FieldWithdrawalEntries
	ListPullerClients     = "puller_clients"
)

// WithEntryField returns a copy of s with one entry field replaced. Monetary
// fields accept a decimal.Decimal, a number, or raw keystrokes as a string.
func (s Session) WithEntryField(field string, value any) (Session, error) {
	n := s.Clone()
	e := &n.Entries
	var err error

	switch field {
	case FieldCashFund:
		return s, fmt.Errorf("%w: %s", ErrReadOnly, field)
	case FieldCash:
		e.Cash, err = toMoney(value)
	case FieldCard:
		e.Card, err = toMoney(value)
	case FieldCardLink:
		e.CardLink, err = toMoney(value)
	case FieldInvoices:
		e.Invoices, err = toMoney(value)
	case FieldPixTerminal:
		e.PixTerminal, err = toMoney(value)
	case FieldPixAccount:
		e.PixAccount, err = toMoney(value)
	case FieldOther:
		e.Other, err = toMoney(value)
	case FieldOtherDescription:
		e.OtherDescription, err = toText(value)
	case FieldCardLinkClients:
		e.CardLinkClients, err = toList[ClientAmount](value)
	case FieldInvoiceClients:
		e.InvoiceClients, err = toList[ClientAmount](value)
	case FieldPixAccountClients:
		e.PixAccountClients, err = toList[ClientAmount](value)
	case FieldChecks:
		e.Checks, err = toList[Check](value)
		e.Checks = cloneChecks(e.Checks)
	default:
		return s, fmt.Errorf("%w: entries.%s", ErrInvalidField, field)
	}
	if err != nil {
		return s, fmt.Errorf("setting entries.%s: %w", field, err)
	}
	return n, nil
}

// WithExitField returns a copy of s with one exit field replaced
func (s Session) WithExitField(field string, value any) (Session, error) {
	n := s.Clone()
	x := &n.Exits
	var err error

	switch field {
	case FieldDiscounts:
		x.Discounts, err = toMoney(value)
	case FieldWithdrawal:
		x.Withdrawal, err = toMoney(value)
	case FieldPurchaseJustification:
		x.PurchaseJustification, err = toText(value)
	case FieldPurchaseJustificationAmount:
		x.PurchaseJustificationAmount, err = toMoney(value)
	case FieldCashOutJustification:
		x.CashOutJustification, err = toText(value)
	case FieldCashOutJustificationAmount:
		x.CashOutJustificationAmount, err = toMoney(value)
	case FieldRefunds:
		x.Refunds, err = toList[Refund](value)
	case FieldMailShipments:
		x.MailShipments, err = toList[MailShipment](value)
	case FieldCarrierShipments:
		x.CarrierShipments, err = toList[CarrierShipment](value)
	case FieldEmployeeAdvances:
		x.EmployeeAdvances, err = toList[EmployeeAdvance](value)
	case FieldAdvancesIncludedInMovement:
		x.AdvancesIncludedInMovement, err = toBool(value)
	case FieldPullerCommission:
		var pc PullerCommission
		pc, err = toValue[PullerCommission](value)
		pc.Clients = cloneSlice(pc.Clients)
		x.PullerCommission = pc
	case FieldPullerName:
		x.PullerCommission.Name, err = toText(value)
	case FieldWithdrawalEntries:
		x.WithdrawalEntries, err = toList[WithdrawalEntry](value)
	default:
		return s, fmt.Errorf("%w: exits.%s", ErrInvalidField, field)
	}
	if err != nil {
		return s, fmt.Errorf("setting exits.%s: %w", field, err)
	}
	if err := normalizeExits(x); err != nil {
		return s, fmt.Errorf("setting exits.%s: %w", field, err)
	}
	return n, nil
}

// WithListItem returns a copy of s with item appended to the named list
func (s Session) WithListItem(list string, item any) (Session, error) {
	n := s.Clone()
	e, x := &n.Entries, &n.Exits
	var err error

	switch list {
	case ListCardLinkClients:
		e.CardLinkClients, err = appendItem(e.CardLinkClients, item)
	case ListInvoiceClients:
		e.InvoiceClients, err = appendItem(e.InvoiceClients, item)
	case ListPixAccountClients:
		e.PixAccountClients, err = appendItem(e.PixAccountClients, item)
	case ListChecks:
		e.Checks, err = appendItem(e.Checks, item)
		e.Checks = cloneChecks(e.Checks)
	case ListRefunds:
		x.Refunds, err = appendItem(x.Refunds, item)
	case ListMailShipments:
		x.MailShipments, err = appendItem(x.MailShipments, item)
	case ListCarrierShipments:
		x.CarrierShipments, err = appendItem(x.CarrierShipments, item)
	case ListEmployeeAdvances:
		x.EmployeeAdvances, err = appendItem(x.EmployeeAdvances, item)
	case ListWithdrawalEntries:
		x.WithdrawalEntries, err = appendItem(x.WithdrawalEntries, item)
	case ListPullerClients:
		x.PullerCommission.Clients, err = appendItem(x.PullerCommission.Clients, item)
	default:
		return s, fmt.Errorf("%w: list %s", ErrInvalidField, list)
	}
	if err != nil {
		return s, fmt.Errorf("adding to %s: %w", list, err)
	}
	if err := normalizeExits(x); err != nil {
		return s, fmt.Errorf("adding to %s: %w", list, err)
	}
	return n, nil
}

// WithoutListItem returns a copy of s with the item at index removed from the named list
func (s Session) WithoutListItem(list string, index int) (Session, error) {
	n := s.Clone()
	e, x := &n.Entries, &n.Exits
	var err error

	switch list {
	case ListCardLinkClients:
		e.CardLinkClients, err = removeAt(e.CardLinkClients, index)
	case ListInvoiceClients:
		e.InvoiceClients, err = removeAt(e.InvoiceClients, index)
	case ListPixAccountClients:
		e.PixAccountClients, err = removeAt(e.PixAccountClients, index)
	case ListChecks:
		e.Checks, err = removeAt(e.Checks, index)
	case ListRefunds:
		x.Refunds, err = removeAt(x.Refunds, index)
	case ListMailShipments:
		x.MailShipments, err = removeAt(x.MailShipments, index)
	case ListCarrierShipments:
		x.CarrierShipments, err = removeAt(x.CarrierShipments, index)
	case ListEmployeeAdvances:
		x.EmployeeAdvances, err = removeAt(x.EmployeeAdvances, index)
	case ListWithdrawalEntries:
		x.WithdrawalEntries, err = removeAt(x.WithdrawalEntries, index)
	case ListPullerClients:
		x.PullerCommission.Clients, err = removeAt(x.PullerCommission.Clients, index)
		if err == nil && len(x.PullerCommission.Clients) == 0 {
			x.PullerCommission.Amount = decimal.Zero
		}
	default:
		return s, fmt.Errorf("%w: list %s", ErrInvalidField, list)
	}
	if err != nil {
		return s, fmt.Errorf("removing from %s: %w", list, err)
	}
	if err := normalizeExits(x); err != nil {
		return s, fmt.Errorf("removing from %s: %w", list, err)
	}
	return n, nil
}

// normalizeExits applies the fixed business rules of the exit records: SEDEX
// always ships from SP and the puller commission is always 4% of its clients.
func normalizeExits(x *Exits) error {
	for i := range x.MailShipments {
		m := &x.MailShipments[i]
		m.Type = ShipmentType(strings.ToUpper(strings.TrimSpace(string(m.Type))))
		switch m.Type {
		case ShipmentSEDEX:
			m.State = sedexState
		case ShipmentPAC:
			m.State = strings.ToUpper(strings.TrimSpace(m.State))
		default:
			return fmt.Errorf("%w: mail shipment type %q", ErrInvalidValue, m.Type)
		}
	}

	pc := &x.PullerCommission
	pc.Percentage = PullerCommissionRate
	if len(pc.Clients) > 0 {
		total := decimal.Zero
		for _, c := range pc.Clients {
			total = total.Add(c.Amount)
		}
		pc.Amount = total.Mul(PullerCommissionRate).Div(decimal.NewFromInt(100))
	}
	return nil
}

func appendItem[T any](list []T, item any) ([]T, error) {
	v, err := toValue[T](item)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(list)+1)
	out = append(out, list...)
	return append(out, v), nil
}

func removeAt[T any](list []T, index int) ([]T, error) {
	if index < 0 || index >= len(list) {
		return nil, fmt.Errorf("%w: %d (length %d)", ErrInvalidIndex, index, len(list))
	}
	out := make([]T, 0, len(list)-1)
	out = append(out, list[:index]...)
	return append(out, list[index+1:]...), nil
}

func toMoney(value any) (decimal.Decimal, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case string:
		return ParseCurrencyInput(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidValue, v)
		}
		return d, nil
	case nil:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %T is not an amount", ErrInvalidValue, value)
	}
}

func toText(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("%w: %T is not text", ErrInvalidValue, value)
	}
}

func toBool(value any) (bool, error) {
	v, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %T is not a boolean", ErrInvalidValue, value)
	}
	return v, nil
}

func toValue[T any](value any) (T, error) {
	var zero T
	switch v := value.(type) {
	case T:
		return v, nil
	case *T:
		if v == nil {
			return zero, fmt.Errorf("%w: nil %T", ErrInvalidValue, value)
		}
		return *v, nil
	case json.RawMessage:
		var out T
		if err := json.Unmarshal(v, &out); err != nil {
			return zero, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return out, nil
	default:
		return zero, fmt.Errorf("%w: %T is not a %T", ErrInvalidValue, value, zero)
	}
}

func toList[T any](value any) ([]T, error) {
	switch v := value.(type) {
	case []T:
		return cloneSlice(v), nil
	case json.RawMessage:
		var out []T
		if err := json.Unmarshal(v, &out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		var zero []T
		return nil, fmt.Errorf("%w: %T is not a %T", ErrInvalidValue, value, zero)
	}
}

// DecodeValue turns a JSON value into the loosely typed form accepted by the
// field setters. Strings stay strings (currency keystrokes or text), numbers
// become json.Number, and objects and arrays are passed on undecoded so the
// setter can unmarshal them into the field's own type.
func DecodeValue(raw json.RawMessage) (any, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty value", ErrInvalidValue)
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return s, nil
	case '{', '[':
		return json.RawMessage(trimmed), nil
	}

	switch trimmed {
	case "null":
		return nil, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	}

	if _, err := decimal.NewFromString(trimmed); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidValue, trimmed)
	}
	return json.Number(trimmed), nil
}
