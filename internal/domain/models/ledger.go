package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/cycleshop/internal/domain/apperrors"
	"github.com/mamadbah2/cycleshop/pkg/money"
)

// TransactionType is the side of the books a ledger entry sits on.
type TransactionType string

const (
	Receivable TransactionType = "receivable"
	Payable    TransactionType = "payable"
)

// LedgerStatus is derived from settled and outstanding amounts, never set directly.
type LedgerStatus string

const (
	LedgerPending LedgerStatus = "pending"
	LedgerPartial LedgerStatus = "partial"
	LedgerSettled LedgerStatus = "settled"
)

// DeriveLedgerStatus is settled iff nothing is outstanding, pending iff nothing is
// settled, partial otherwise.
func DeriveLedgerStatus(settled, balance float64) LedgerStatus {
	switch {
	case money.IsZero(balance):
		return LedgerSettled
	case money.IsZero(settled):
		return LedgerPending
	default:
		return LedgerPartial
	}
}

// PaymentStatus maps a ledger status onto the invoice payment status it implies.
// Pending has no mapping: the invoice keeps its current status.
func (s LedgerStatus) PaymentStatus() (PaymentStatus, bool) {
	switch s {
	case LedgerSettled:
		return PaymentPaid, true
	case LedgerPartial:
		return PaymentPartial, true
	default:
		return "", false
	}
}

// Settlement is one payment recorded against a ledger entry. Immutable once appended.
type Settlement struct {
	Date   time.Time   `bson:"date" json:"date"`
	Amount float64     `bson:"amount" json:"amount"`
	Mode   PaymentMode `bson:"mode" json:"mode"`
	Notes  string      `bson:"notes,omitempty" json:"notes,omitempty"`
}

// LedgerEntry tracks money owed on one invoice (or a manual receivable/payable).
type LedgerEntry struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	PartyID         primitive.ObjectID  `bson:"partyId" json:"partyId"`
	CustomerID      *primitive.ObjectID `bson:"customerId,omitempty" json:"customerId,omitempty"`
	InvoiceID       *primitive.ObjectID `bson:"invoiceId,omitempty" json:"invoiceId,omitempty"`
	TransactionType TransactionType     `bson:"transactionType" json:"transactionType"`
	OriginalAmount  float64             `bson:"originalAmount" json:"originalAmount"`
	SettledAmount   float64             `bson:"settledAmount" json:"settledAmount"`
	BalanceAmount   float64             `bson:"balanceAmount" json:"balanceAmount"`
	Description     string              `bson:"description" json:"description"`
	Settlements     []Settlement        `bson:"settlements" json:"settlements"`
	Status          LedgerStatus        `bson:"status" json:"status"`
	CreatedAt       time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Clone returns a deep copy.
func (e LedgerEntry) Clone() LedgerEntry {
	out := e
	out.Settlements = append([]Settlement(nil), e.Settlements...)
	if e.CustomerID != nil {
		id := *e.CustomerID
		out.CustomerID = &id
	}
	if e.InvoiceID != nil {
		id := *e.InvoiceID
		out.InvoiceID = &id
	}
	return out
}

// SetAmounts sets original and settled amounts and recomputes balance and status.
func (e *LedgerEntry) SetAmounts(original, settled float64) {
	e.OriginalAmount = money.Round(original)
	e.SettledAmount = money.Round(settled)
	e.BalanceAmount = money.Sub(e.OriginalAmount, e.SettledAmount)
	e.Status = DeriveLedgerStatus(e.SettledAmount, e.BalanceAmount)
}

// NewLedgerEntryForInvoice opens the receivable (sale) or payable (purchase) for an
// invoice. Whatever the invoice already records as paid is seeded as settled.
func NewLedgerEntryForInvoice(inv *Invoice, partyName string, now time.Time) *LedgerEntry {
	invoiceID := inv.ID
	entry := &LedgerEntry{
		ID:          primitive.NewObjectID(),
		PartyID:     inv.PartyID,
		CustomerID:  inv.CustomerID,
		InvoiceID:   &invoiceID,
		Settlements: []Settlement{},
		CreatedAt:   now,
	}
	entry.SyncWithInvoice(inv, partyName, now)
	return entry
}

// SyncWithInvoice makes the entry mirror the invoice's type, amount and payment state.
func (e *LedgerEntry) SyncWithInvoice(inv *Invoice, partyName string, now time.Time) {
	e.PartyID = inv.PartyID
	e.CustomerID = inv.CustomerID
	e.TransactionType = inv.InvoiceType.TransactionType()
	e.Description = inv.LedgerDescription(partyName)
	e.SetAmounts(inv.TotalAmount, money.Sub(inv.TotalAmount, inv.BalanceAmount))
	e.UpdatedAt = now
}

// RecordedSettlements sums the settlement records. SettledAmount may be larger
// when part of the amount was paid on the invoice itself.
func (e LedgerEntry) RecordedSettlements() float64 {
	amounts := make([]float64, 0, len(e.Settlements))
	for _, s := range e.Settlements {
		amounts = append(amounts, s.Amount)
	}
	return money.Sum(amounts...)
}

// CheckInvoiceSync rejects an invoice state whose paid amount is below what has
// been recorded through settlements.
func (e LedgerEntry) CheckInvoiceSync(inv *Invoice) error {
	recorded := e.RecordedSettlements()
	paid := money.Sub(inv.TotalAmount, inv.BalanceAmount)
	if money.Cmp(paid, recorded) < 0 {
		return apperrors.Validation("Settlements of %.2f are recorded for this invoice, balanceAmount cannot exceed %.2f",
			recorded, money.Sub(inv.TotalAmount, recorded))
	}
	return nil
}

// ApplySettlement validates and records a payment against the entry.
func (e *LedgerEntry) ApplySettlement(s Settlement) error {
	if !money.Positive(s.Amount) {
		return apperrors.InvalidSettlement("Invalid settlement amount")
	}
	if e.Status == LedgerSettled {
		return apperrors.InvalidSettlement("This entry is already fully settled")
	}
	amount := money.Round(s.Amount)
	if money.Cmp(amount, e.BalanceAmount) > 0 {
		return apperrors.InvalidSettlement("Settlement amount (%.2f) exceeds balance (%.2f)", amount, e.BalanceAmount)
	}
	if s.Mode == "" {
		s.Mode = PaymentCash
	}
	s.Amount = amount

	e.Settlements = append(e.Settlements, s)
	e.SetAmounts(e.OriginalAmount, money.Add(e.SettledAmount, amount))
	e.UpdatedAt = s.Date
	return nil
}

// SettlementInput is the body of POST /ledger/:id/settlement.
type SettlementInput struct {
	Amount float64     `json:"amount"`
	Mode   PaymentMode `json:"mode" validate:"omitempty,oneof=cash online both"`
	Notes  string      `json:"notes"`
}

// LedgerFilter narrows ledger listings.
type LedgerFilter struct {
	TransactionType TransactionType
	Statuses        []LedgerStatus
	PartyID         *primitive.ObjectID
	CustomerID      *primitive.ObjectID
}

// LedgerEntryDetail is a ledger entry with its party and invoice resolved.
type LedgerEntryDetail struct {
	LedgerEntry
	Party   *Party   `json:"party,omitempty"`
	Invoice *Invoice `json:"invoice,omitempty"`
}

// LedgerTotals aggregates open receivables and payables.
type LedgerTotals struct {
	TotalReceivable      float64 `json:"totalReceivable"`
	TotalPayable         float64 `json:"totalPayable"`
	NetPosition          float64 `json:"netPosition"`
	TotalReceivableCount int     `json:"totalReceivableCount"`
	TotalPayableCount    int     `json:"totalPayableCount"`
}

// LedgerSummary is the response of GET /ledger/summary.
type LedgerSummary struct {
	Receivables []LedgerEntryDetail `json:"receivables"`
	Payables    []LedgerEntryDetail `json:"payables"`
	Summary     LedgerTotals        `json:"summary"`
}

// CreateLedgerEntryInput is the body of POST /ledger, a receivable or payable not
// backed by an invoice.
type CreateLedgerEntryInput struct {
	PartyID         string          `json:"partyId" validate:"required,mongodb"`
	CustomerID      string          `json:"customerId" validate:"omitempty,mongodb"`
	TransactionType TransactionType `json:"transactionType" validate:"required,oneof=receivable payable"`
	OriginalAmount  float64         `json:"originalAmount" validate:"gt=0"`
	Description     string          `json:"description" validate:"required"`
}

// Build validates the input and produces a pending entry.
func (in CreateLedgerEntryInput) Build(now time.Time) (*LedgerEntry, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	partyID, err := ParseID("partyId", in.PartyID)
	if err != nil {
		return nil, err
	}
	customerID, err := parseOptionalID("customerId", in.CustomerID)
	if err != nil {
		return nil, err
	}
	entry := &LedgerEntry{
		ID:              primitive.NewObjectID(),
		PartyID:         partyID,
		CustomerID:      customerID,
		TransactionType: in.TransactionType,
		Description:     in.Description,
		Settlements:     []Settlement{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	entry.SetAmounts(in.OriginalAmount, 0)
	return entry, nil
}
