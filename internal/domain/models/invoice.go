package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/cycleshop/internal/domain/apperrors"
	"github.com/mamadbah2/cycleshop/pkg/money"
)

// InvoiceType is the direction of an invoice.
type InvoiceType string

const (
	InvoicePurchase InvoiceType = "purchase"
	InvoiceSale     InvoiceType = "sale"
)

// StockDelta is the signed quantity change an invoice line of this type applies.
func (t InvoiceType) StockDelta(quantity int) int {
	if t == InvoicePurchase {
		return quantity
	}
	return -quantity
}

// TransactionType is the ledger side an invoice of this type opens.
func (t InvoiceType) TransactionType() TransactionType {
	if t == InvoiceSale {
		return Receivable
	}
	return Payable
}

// PaymentStatus is the invoice-side mirror of the ledger entry status.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// PaymentMode is how money changed hands.
type PaymentMode string

const (
	PaymentCash   PaymentMode = "cash"
	PaymentOnline PaymentMode = "online"
	PaymentBoth   PaymentMode = "both"
)

// InvoiceItem is one invoice line.
type InvoiceItem struct {
	ItemID       primitive.ObjectID `bson:"itemId" json:"itemId"`
	Quantity     int                `bson:"quantity" json:"quantity"`
	PricePerUnit float64            `bson:"pricePerUnit" json:"pricePerUnit"`
	TotalAmount  float64            `bson:"totalAmount" json:"totalAmount"`
}

// Invoice is a purchase or sale document. TotalAmount is always the sum of line
// totals; BalanceAmount follows ledger settlement.
type Invoice struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	InvoiceNumber string              `bson:"invoiceNumber" json:"invoiceNumber"`
	Date          time.Time           `bson:"date" json:"date"`
	PartyID       primitive.ObjectID  `bson:"partyId" json:"partyId"`
	CustomerID    *primitive.ObjectID `bson:"customerId,omitempty" json:"customerId,omitempty"`
	Items         []InvoiceItem       `bson:"items" json:"items"`
	InvoiceType   InvoiceType         `bson:"invoiceType" json:"invoiceType"`
	PaymentStatus PaymentStatus       `bson:"paymentStatus" json:"paymentStatus"`
	PaymentMode   PaymentMode         `bson:"paymentMode,omitempty" json:"paymentMode,omitempty"`
	TotalAmount   float64             `bson:"totalAmount" json:"totalAmount"`
	BalanceAmount float64             `bson:"balanceAmount" json:"balanceAmount"`
	Notes         string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Clone returns a deep copy.
func (inv Invoice) Clone() Invoice {
	out := inv
	out.Items = append([]InvoiceItem(nil), inv.Items...)
	if inv.CustomerID != nil {
		id := *inv.CustomerID
		out.CustomerID = &id
	}
	return out
}

// LedgerDescription is the description written on the invoice's ledger entry.
func (inv *Invoice) LedgerDescription(partyName string) string {
	direction := "Purchase from"
	if inv.InvoiceType == InvoiceSale {
		direction = "Sale to"
	}
	if partyName == "" {
		partyName = "Unknown"
	}
	return fmt.Sprintf("Invoice #%s - %s %s", inv.InvoiceNumber, direction, partyName)
}

// InvoiceItemInput is one requested invoice line.
type InvoiceItemInput struct {
	ItemID       string  `json:"itemId" validate:"required,mongodb"`
	Quantity     int     `json:"quantity" validate:"gt=0"`
	PricePerUnit float64 `json:"pricePerUnit" validate:"gt=0"`
}

// CreateInvoiceInput is the body of POST /invoices.
type CreateInvoiceInput struct {
	InvoiceNumber string             `json:"invoiceNumber" validate:"required"`
	Date          *time.Time         `json:"date"`
	PartyID       string             `json:"partyId" validate:"required,mongodb"`
	CustomerID    string             `json:"customerId" validate:"omitempty,mongodb"`
	Items         []InvoiceItemInput `json:"items" validate:"required,min=1,dive"`
	InvoiceType   InvoiceType        `json:"invoiceType" validate:"required,oneof=purchase sale"`
	PaymentStatus PaymentStatus      `json:"paymentStatus" validate:"omitempty,oneof=pending partial paid"`
	PaymentMode   PaymentMode        `json:"paymentMode" validate:"omitempty,oneof=cash online both"`
	BalanceAmount *float64           `json:"balanceAmount" validate:"omitempty,gte=0"`
	Notes         string             `json:"notes"`
}

// Build validates the input and produces the invoice document to persist.
func (in CreateInvoiceInput) Build(now time.Time) (*Invoice, error) {
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
	items, total, err := buildLines(in.Items)
	if err != nil {
		return nil, err
	}

	status := in.PaymentStatus
	if status == "" {
		status = PaymentPending
	}
	balance, err := balanceFor(status, total, in.BalanceAmount)
	if err != nil {
		return nil, err
	}

	date := now
	if in.Date != nil && !in.Date.IsZero() {
		date = *in.Date
	}

	return &Invoice{
		ID:            primitive.NewObjectID(),
		InvoiceNumber: strings.TrimSpace(in.InvoiceNumber),
		Date:          date,
		PartyID:       partyID,
		CustomerID:    customerID,
		Items:         items,
		InvoiceType:   in.InvoiceType,
		PaymentStatus: status,
		PaymentMode:   in.PaymentMode,
		TotalAmount:   total,
		BalanceAmount: balance,
		Notes:         in.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// UpdateInvoiceInput is the body of PUT /invoices/:id. Nil fields are left unchanged;
// Items, when present, replaces every line.
type UpdateInvoiceInput struct {
	InvoiceNumber *string            `json:"invoiceNumber" validate:"omitempty,min=1"`
	Date          *time.Time         `json:"date"`
	PartyID       *string            `json:"partyId" validate:"omitempty,mongodb"`
	CustomerID    *string            `json:"customerId" validate:"omitempty"`
	Items         []InvoiceItemInput `json:"items" validate:"omitempty,dive"`
	InvoiceType   *InvoiceType       `json:"invoiceType" validate:"omitempty,oneof=purchase sale"`
	PaymentStatus *PaymentStatus     `json:"paymentStatus" validate:"omitempty,oneof=pending partial paid"`
	PaymentMode   *PaymentMode       `json:"paymentMode" validate:"omitempty,oneof=cash online both"`
	BalanceAmount *float64           `json:"balanceAmount" validate:"omitempty,gte=0"`
	Notes         *string            `json:"notes"`
}

// Apply validates the patch and returns the updated copy of existing.
//
// When the patch sets neither paymentStatus nor balanceAmount, the amount already
// paid on the invoice is carried over to the new total.
func (in UpdateInvoiceInput) Apply(existing Invoice, now time.Time) (*Invoice, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	updated := existing.Clone()

	if in.InvoiceNumber != nil {
		number := strings.TrimSpace(*in.InvoiceNumber)
		if number == "" {
			return nil, apperrors.Validation("invoiceNumber is required")
		}
		updated.InvoiceNumber = number
	}
	if in.Date != nil && !in.Date.IsZero() {
		updated.Date = *in.Date
	}
	if in.PartyID != nil {
		id, err := ParseID("partyId", *in.PartyID)
		if err != nil {
			return nil, err
		}
		updated.PartyID = id
	}
	if in.CustomerID != nil {
		id, err := parseOptionalID("customerId", *in.CustomerID)
		if err != nil {
			return nil, err
		}
		updated.CustomerID = id
	}
	if in.Items != nil {
		if len(in.Items) == 0 {
			return nil, apperrors.Validation("items must contain at least 1 entries")
		}
		items, total, err := buildLines(in.Items)
		if err != nil {
			return nil, err
		}
		updated.Items = items
		updated.TotalAmount = total
	}
	if in.InvoiceType != nil {
		updated.InvoiceType = *in.InvoiceType
	}
	if in.PaymentMode != nil {
		updated.PaymentMode = *in.PaymentMode
	}
	if in.Notes != nil {
		updated.Notes = *in.Notes
	}

	paid := money.Sub(existing.TotalAmount, existing.BalanceAmount)
	carried := money.Sub(updated.TotalAmount, paid)

	switch {
	case in.PaymentStatus != nil || in.BalanceAmount != nil:
		status := existing.PaymentStatus
		if in.PaymentStatus != nil {
			status = *in.PaymentStatus
		}
		supplied := in.BalanceAmount
		if supplied == nil && status == PaymentPartial {
			supplied = &carried
		}
		balance, err := balanceFor(status, updated.TotalAmount, supplied)
		if err != nil {
			return nil, err
		}
		updated.PaymentStatus = status
		updated.BalanceAmount = balance
	case money.Cmp(updated.TotalAmount, existing.TotalAmount) != 0:
		if carried < 0 {
			return nil, apperrors.Validation("totalAmount %.2f is below the %.2f already paid on this invoice", updated.TotalAmount, paid)
		}
		updated.BalanceAmount = carried
		updated.PaymentStatus = paymentStatusFor(paid, carried)
	}

	updated.UpdatedAt = now
	return &updated, nil
}

func buildLines(inputs []InvoiceItemInput) ([]InvoiceItem, float64, error) {
	items := make([]InvoiceItem, 0, len(inputs))
	totals := make([]float64, 0, len(inputs))
	for i, line := range inputs {
		itemID, err := ParseID(fmt.Sprintf("items[%d].itemId", i), line.ItemID)
		if err != nil {
			return nil, 0, err
		}
		lineTotal := money.Line(line.Quantity, line.PricePerUnit)
		items = append(items, InvoiceItem{
			ItemID:       itemID,
			Quantity:     line.Quantity,
			PricePerUnit: money.Round(line.PricePerUnit),
			TotalAmount:  lineTotal,
		})
		totals = append(totals, lineTotal)
	}
	return items, money.Sum(totals...), nil
}

// balanceFor derives the outstanding amount from the payment status; a partial
// status needs an explicit balance strictly between zero and the total.
func balanceFor(status PaymentStatus, total float64, supplied *float64) (float64, error) {
	switch status {
	case PaymentPaid:
		return 0, nil
	case PaymentPending:
		return total, nil
	case PaymentPartial:
		if supplied == nil {
			return 0, apperrors.Validation("balanceAmount is required for partial payments")
		}
		balance := money.Round(*supplied)
		if !money.Positive(balance) || money.Cmp(balance, total) >= 0 {
			return 0, apperrors.Validation("balanceAmount must be between 0 and totalAmount for partial payments")
		}
		return balance, nil
	default:
		return 0, apperrors.Validation("paymentStatus must be one of [pending partial paid]")
	}
}

func paymentStatusFor(paid, balance float64) PaymentStatus {
	switch {
	case money.IsZero(balance):
		return PaymentPaid
	case money.IsZero(paid):
		return PaymentPending
	default:
		return PaymentPartial
	}
}

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	InvoiceType InvoiceType
	PartyID     *primitive.ObjectID
	CustomerID  *primitive.ObjectID
	From        *time.Time
	To          *time.Time
}

// InvoiceLineDetail is an invoice line with its inventory item resolved.
type InvoiceLineDetail struct {
	InvoiceItem
	Item *InventoryItem `json:"item,omitempty"`
}

// InvoiceDetail is an invoice with its party and items resolved for display.
type InvoiceDetail struct {
	Invoice
	Items []InvoiceLineDetail `json:"items"`
	Party *Party              `json:"party,omitempty"`
}
