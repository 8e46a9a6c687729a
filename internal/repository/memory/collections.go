package memory

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/cycleshop/internal/domain/models"
	"github.com/mamadbah2/cycleshop/internal/repository"
)

type inventoryRepo struct{ s *Store }

func (r inventoryRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.InventoryItem, error) {
	defer r.s.read(ctx)()
	item, ok := r.s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &item, nil
}

func (r inventoryRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.InventoryItem, error) {
	defer r.s.read(ctx)()
	out := make(map[primitive.ObjectID]models.InventoryItem, len(ids))
	for _, id := range ids {
		if item, ok := r.s.items[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

func (r inventoryRepo) List(ctx context.Context) ([]models.InventoryItem, error) {
	unlock := r.s.read(ctx)
	out := make([]models.InventoryItem, 0, len(r.s.items))
	for _, item := range r.s.items {
		out = append(out, item)
	}
	unlock()
	newestFirst(out, func(i models.InventoryItem) (int64, primitive.ObjectID) { return i.CreatedAt.UnixNano(), i.ID })
	return out, nil
}

func (r inventoryRepo) Insert(ctx context.Context, item *models.InventoryItem) error {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	return r.s.write(ctx, "inventory.insert", func() (func(), error) {
		if _, exists := r.s.items[item.ID]; exists {
			return nil, repository.ErrDuplicate
		}
		r.s.items[item.ID] = *item
		id := item.ID
		return func() { delete(r.s.items, id) }, nil
	})
}

func (r inventoryRepo) SetQuantity(ctx context.Context, id primitive.ObjectID, quantity int, updatedAt time.Time) error {
	return r.s.write(ctx, "inventory.setQuantity", func() (func(), error) {
		prev, ok := r.s.items[id]
		if !ok {
			return nil, repository.ErrNotFound
		}
		next := prev
		next.QuantityAvailable = quantity
		next.UpdatedAt = updatedAt
		r.s.items[id] = next
		return func() { r.s.items[id] = prev }, nil
	})
}

type historyRepo struct{ s *Store }

func (r historyRepo) Append(ctx context.Context, entry *models.StockHistoryEntry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	return r.s.write(ctx, "history.append", func() (func(), error) {
		r.s.history = append(r.s.history, *entry)
		n := len(r.s.history) - 1
		return func() { r.s.history = r.s.history[:n] }, nil
	})
}

func (r historyRepo) ListByItem(ctx context.Context, itemID primitive.ObjectID) ([]models.StockHistoryEntry, error) {
	defer r.s.read(ctx)()
	out := []models.StockHistoryEntry{}
	for _, e := range r.s.history {
		if e.ItemID == itemID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r historyRepo) Latest(ctx context.Context) (map[primitive.ObjectID]models.StockHistoryEntry, error) {
	defer r.s.read(ctx)()
	out := make(map[primitive.ObjectID]models.StockHistoryEntry)
	for _, e := range r.s.history {
		out[e.ItemID] = e
	}
	return out, nil
}

type partyRepo struct{ s *Store }

func (r partyRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Party, error) {
	defer r.s.read(ctx)()
	p, ok := r.s.parties[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p = copyParty(p)
	return &p, nil
}

func (r partyRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Party, error) {
	defer r.s.read(ctx)()
	out := make(map[primitive.ObjectID]models.Party, len(ids))
	for _, id := range ids {
		if p, ok := r.s.parties[id]; ok {
			out[id] = copyParty(p)
		}
	}
	return out, nil
}

func (r partyRepo) List(ctx context.Context) ([]models.Party, error) {
	unlock := r.s.read(ctx)
	out := make([]models.Party, 0, len(r.s.parties))
	for _, p := range r.s.parties {
		out = append(out, copyParty(p))
	}
	unlock()
	newestFirst(out, func(p models.Party) (int64, primitive.ObjectID) { return p.CreatedAt.UnixNano(), p.ID })
	return out, nil
}

func (r partyRepo) Insert(ctx context.Context, party *models.Party) error {
	if party.ID.IsZero() {
		party.ID = primitive.NewObjectID()
	}
	return r.s.write(ctx, "party.insert", func() (func(), error) {
		if _, exists := r.s.parties[party.ID]; exists {
			return nil, repository.ErrDuplicate
		}
		r.s.parties[party.ID] = copyParty(*party)
		id := party.ID
		return func() { delete(r.s.parties, id) }, nil
	})
}

func (r partyRepo) SaveAccount(ctx context.Context, party *models.Party) error {
	return r.s.write(ctx, "party.save", func() (func(), error) {
		prev, ok := r.s.parties[party.ID]
		if !ok {
			return nil, repository.ErrNotFound
		}
		next := copyParty(prev)
		next.BalanceAmount = party.BalanceAmount
		next.Transactions = append([]primitive.ObjectID{}, party.Transactions...)
		next.UpdatedAt = party.UpdatedAt
		r.s.parties[party.ID] = next
		return func() { r.s.parties[prev.ID] = prev }, nil
	})
}

type invoiceRepo struct{ s *Store }

func (r invoiceRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Invoice, error) {
	defer r.s.read(ctx)()
	inv, ok := r.s.invoices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	inv = inv.Clone()
	return &inv, nil
}

func (r invoiceRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Invoice, error) {
	defer r.s.read(ctx)()
	out := make(map[primitive.ObjectID]models.Invoice, len(ids))
	for _, id := range ids {
		if inv, ok := r.s.invoices[id]; ok {
			out[id] = inv.Clone()
		}
	}
	return out, nil
}

func (r invoiceRepo) List(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, error) {
	unlock := r.s.read(ctx)
	out := []models.Invoice{}
	for _, inv := range r.s.invoices {
		if matchInvoice(inv, filter) {
			out = append(out, inv.Clone())
		}
	}
	unlock()
	newestFirst(out, func(i models.Invoice) (int64, primitive.ObjectID) { return i.CreatedAt.UnixNano(), i.ID })
	return out, nil
}

func matchInvoice(inv models.Invoice, f models.InvoiceFilter) bool {
	if f.InvoiceType != "" && inv.InvoiceType != f.InvoiceType {
		return false
	}
	if f.PartyID != nil && inv.PartyID != *f.PartyID {
		return false
	}
	if f.CustomerID != nil && (inv.CustomerID == nil || *inv.CustomerID != *f.CustomerID) {
		return false
	}
	if f.From != nil && inv.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && !inv.Date.Before(*f.To) {
		return false
	}
	return true
}

// numberTaken must be called with mu held.
func (r invoiceRepo) numberTaken(number string, except primitive.ObjectID) bool {
	for id, inv := range r.s.invoices {
		if id != except && inv.InvoiceNumber == number {
			return true
		}
	}
	return false
}

func (r invoiceRepo) Insert(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID.IsZero() {
		invoice.ID = primitive.NewObjectID()
	}
	return r.s.write(ctx, "invoice.insert", func() (func(), error) {
		if _, exists := r.s.invoices[invoice.ID]; exists || r.numberTaken(invoice.InvoiceNumber, invoice.ID) {
			return nil, repository.ErrDuplicate
		}
		r.s.invoices[invoice.ID] = invoice.Clone()
		id := invoice.ID
		return func() { delete(r.s.invoices, id) }, nil
	})
}

func (r invoiceRepo) Replace(ctx context.Context, invoice *models.Invoice) error {
	return r.s.write(ctx, "invoice.replace", func() (func(), error) {
		prev, ok := r.s.invoices[invoice.ID]
		if !ok {
			return nil, repository.ErrNotFound
		}
		if r.numberTaken(invoice.InvoiceNumber, invoice.ID) {
			return nil, repository.ErrDuplicate
		}
		r.s.invoices[invoice.ID] = invoice.Clone()
		return func() { r.s.invoices[prev.ID] = prev }, nil
	})
}

func (r invoiceRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.s.write(ctx, "invoice.delete", func() (func(), error) {
		prev, ok := r.s.invoices[id]
		if !ok {
			return nil, repository.ErrNotFound
		}
		delete(r.s.invoices, id)
		return func() { r.s.invoices[id] = prev }, nil
	})
}

type ledgerRepo struct{ s *Store }

func (r ledgerRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.LedgerEntry, error) {
	defer r.s.read(ctx)()
	e, ok := r.s.ledger[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	e = e.Clone()
	return &e, nil
}

func (r ledgerRepo) FindByInvoice(ctx context.Context, invoiceID primitive.ObjectID) (*models.LedgerEntry, error) {
	defer r.s.read(ctx)()
	if id, ok := r.byInvoice(invoiceID); ok {
		e := r.s.ledger[id].Clone()
		return &e, nil
	}
	return nil, repository.ErrNotFound
}

// byInvoice must be called with mu held.
func (r ledgerRepo) byInvoice(invoiceID primitive.ObjectID) (primitive.ObjectID, bool) {
	for id, e := range r.s.ledger {
		if e.InvoiceID != nil && *e.InvoiceID == invoiceID {
			return id, true
		}
	}
	return primitive.NilObjectID, false
}

func (r ledgerRepo) List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, error) {
	unlock := r.s.read(ctx)
	out := []models.LedgerEntry{}
	for _, e := range r.s.ledger {
		if matchLedger(e, filter) {
			out = append(out, e.Clone())
		}
	}
	unlock()
	newestFirst(out, func(e models.LedgerEntry) (int64, primitive.ObjectID) { return e.CreatedAt.UnixNano(), e.ID })
	return out, nil
}

func matchLedger(e models.LedgerEntry, f models.LedgerFilter) bool {
	if f.TransactionType != "" && e.TransactionType != f.TransactionType {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if e.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.PartyID != nil && e.PartyID != *f.PartyID {
		return false
	}
	if f.CustomerID != nil && (e.CustomerID == nil || *e.CustomerID != *f.CustomerID) {
		return false
	}
	return true
}

func (r ledgerRepo) Insert(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	return r.s.write(ctx, "ledger.insert", func() (func(), error) {
		if _, exists := r.s.ledger[entry.ID]; exists {
			return nil, repository.ErrDuplicate
		}
		if entry.InvoiceID != nil {
			if _, taken := r.byInvoice(*entry.InvoiceID); taken {
				return nil, repository.ErrDuplicate
			}
		}
		r.s.ledger[entry.ID] = entry.Clone()
		id := entry.ID
		return func() { delete(r.s.ledger, id) }, nil
	})
}

func (r ledgerRepo) Replace(ctx context.Context, entry *models.LedgerEntry) error {
	return r.s.write(ctx, "ledger.replace", func() (func(), error) {
		prev, ok := r.s.ledger[entry.ID]
		if !ok {
			return nil, repository.ErrNotFound
		}
		r.s.ledger[entry.ID] = entry.Clone()
		return func() { r.s.ledger[prev.ID] = prev }, nil
	})
}

func (r ledgerRepo) DeleteByInvoice(ctx context.Context, invoiceID primitive.ObjectID) error {
	return r.s.write(ctx, "ledger.delete", func() (func(), error) {
		id, ok := r.byInvoice(invoiceID)
		if !ok {
			return nil, nil
		}
		prev := r.s.ledger[id]
		delete(r.s.ledger, id)
		return func() { r.s.ledger[id] = prev }, nil
	})
}

type reportRepo struct{ s *Store }

func (r reportRepo) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	return r.s.write(ctx, "report.save", func() (func(), error) {
		r.s.reports = append(r.s.reports, report)
		n := len(r.s.reports) - 1
		return func() { r.s.reports = r.s.reports[:n] }, nil
	})
}
