// Package repository declares the persistence ports used by the services. Every
// method takes the context handed out by Transactor.WithinTransaction so that the
// same calls participate in a transaction when one is open.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/cycleshop/internal/domain/models"
)

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate key")
	// ErrConflict is returned when the store aborted a transaction because of a
	// concurrent write.
	ErrConflict = errors.New("write conflict")
)

// Transactor runs fn inside one all-or-nothing unit of work. Writes made through
// ctx passed to fn are visible to other callers only if fn returns nil and the
// commit succeeds. No retry is attempted.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// InventoryRepository stores inventory items.
type InventoryRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.InventoryItem, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.InventoryItem, error)
	List(ctx context.Context) ([]models.InventoryItem, error)
	Insert(ctx context.Context, item *models.InventoryItem) error
	// SetQuantity overwrites the available quantity; callers pair it with a history entry.
	SetQuantity(ctx context.Context, id primitive.ObjectID, quantity int, updatedAt time.Time) error
}

// StockHistoryRepository is the append-only stock audit trail.
type StockHistoryRepository interface {
	Append(ctx context.Context, entry *models.StockHistoryEntry) error
	ListByItem(ctx context.Context, itemID primitive.ObjectID) ([]models.StockHistoryEntry, error)
	// Latest returns the most recent entry per item.
	Latest(ctx context.Context) (map[primitive.ObjectID]models.StockHistoryEntry, error)
}

// PartyRepository stores parties.
type PartyRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Party, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Party, error)
	List(ctx context.Context) ([]models.Party, error)
	Insert(ctx context.Context, party *models.Party) error
	// SaveAccount persists balanceAmount and transactions.
	SaveAccount(ctx context.Context, party *models.Party) error
}

// InvoiceRepository stores invoices. Invoice numbers are unique.
type InvoiceRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Invoice, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Invoice, error)
	List(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, error)
	Insert(ctx context.Context, invoice *models.Invoice) error
	Replace(ctx context.Context, invoice *models.Invoice) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// LedgerRepository stores receivable/payable entries.
type LedgerRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.LedgerEntry, error)
	FindByInvoice(ctx context.Context, invoiceID primitive.ObjectID) (*models.LedgerEntry, error)
	List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, error)
	Insert(ctx context.Context, entry *models.LedgerEntry) error
	Replace(ctx context.Context, entry *models.LedgerEntry) error
	// DeleteByInvoice removes the entry linked to the invoice; a missing entry is not an error.
	DeleteByInvoice(ctx context.Context, invoiceID primitive.ObjectID) error
}

// ReportRepository stores daily snapshots.
type ReportRepository interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
}

// Store bundles every repository with the transactor that scopes them.
type Store interface {
	Transactor
	Inventory() InventoryRepository
	StockHistory() StockHistoryRepository
	Parties() PartyRepository
	Invoices() InvoiceRepository
	Ledger() LedgerRepository
	Reports() ReportRepository
	Close(ctx context.Context) error
}
