package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PartyType tells whether the shop buys from (creditor) or sells to (debtor) a party.
type PartyType string

const (
	PartyCreditor PartyType = "creditor"
	PartyDebtor   PartyType = "debtor"
)

// Party is an invoice counterparty with a signed running balance.
type Party struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	PartyName     string               `bson:"partyName" json:"partyName"`
	PartyType     PartyType            `bson:"partyType" json:"partyType"`
	PhoneNumber   string               `bson:"phoneNumber" json:"phoneNumber"`
	State         string               `bson:"state" json:"state"`
	City          string               `bson:"city" json:"city"`
	GSTNumber     string               `bson:"gstNumber,omitempty" json:"gstNumber,omitempty"`
	Address       string               `bson:"address" json:"address"`
	BalanceAmount float64              `bson:"balanceAmount" json:"balanceAmount"`
	Transactions  []primitive.ObjectID `bson:"transactions" json:"transactions"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// HasTransaction reports whether the invoice is referenced by the party.
func (p *Party) HasTransaction(invoiceID primitive.ObjectID) bool {
	for _, id := range p.Transactions {
		if id == invoiceID {
			return true
		}
	}
	return false
}

// AddTransaction appends the invoice reference unless already present.
func (p *Party) AddTransaction(invoiceID primitive.ObjectID) bool {
	if p.HasTransaction(invoiceID) {
		return false
	}
	p.Transactions = append(p.Transactions, invoiceID)
	return true
}

// RemoveTransaction drops every reference to the invoice.
func (p *Party) RemoveTransaction(invoiceID primitive.ObjectID) bool {
	kept := make([]primitive.ObjectID, 0, len(p.Transactions))
	removed := false
	for _, id := range p.Transactions {
		if id == invoiceID {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	p.Transactions = kept
	return removed
}

// CreatePartyInput is the body of POST /parties.
type CreatePartyInput struct {
	PartyName   string    `json:"partyName" validate:"required"`
	PartyType   PartyType `json:"partyType" validate:"required,oneof=creditor debtor"`
	PhoneNumber string    `json:"phoneNumber" validate:"required"`
	State       string    `json:"state" validate:"required"`
	City        string    `json:"city" validate:"required"`
	GSTNumber   string    `json:"gstNumber"`
	Address     string    `json:"address" validate:"required"`
}

// Build validates the input and produces a party with a zero balance.
func (in CreatePartyInput) Build(now time.Time) (*Party, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	return &Party{
		ID:           primitive.NewObjectID(),
		PartyName:    strings.TrimSpace(in.PartyName),
		PartyType:    in.PartyType,
		PhoneNumber:  in.PhoneNumber,
		State:        in.State,
		City:         in.City,
		GSTNumber:    in.GSTNumber,
		Address:      in.Address,
		Transactions: []primitive.ObjectID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// PartyDetail is a party with its invoices resolved.
type PartyDetail struct {
	Party
	Invoices []Invoice `json:"invoices"`
}
