// Package memory is an in-process Store. It has no native transactions: every
// write made inside WithinTransaction records its inverse in a journal, and the
// journal is replayed backwards when the unit of work fails. Transactions are
// serialized by a store-wide mutex, and reads outside a transaction wait for the
// running one to finish.
package memory

import (
	"context"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/cycleshop/internal/domain/models"
	"github.com/mamadbah2/cycleshop/internal/repository"
)

type txKey struct{}

type journal struct {
	undo []func()
}

// Store keeps every collection in maps guarded by mu.
type Store struct {
	txMu sync.RWMutex
	mu   sync.RWMutex

	items    map[primitive.ObjectID]models.InventoryItem
	history  []models.StockHistoryEntry
	parties  map[primitive.ObjectID]models.Party
	invoices map[primitive.ObjectID]models.Invoice
	ledger   map[primitive.ObjectID]models.LedgerEntry
	reports  []models.DailyReport

	faults map[string]error
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		items:    make(map[primitive.ObjectID]models.InventoryItem),
		parties:  make(map[primitive.ObjectID]models.Party),
		invoices: make(map[primitive.ObjectID]models.Invoice),
		ledger:   make(map[primitive.ObjectID]models.LedgerEntry),
		faults:   make(map[string]error),
	}
}

// InjectFault makes the next write named op ("ledger.insert", "party.save", ...)
// fail with err. Used to exercise rollback paths.
func (s *Store) InjectFault(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// WithinTransaction runs fn; nested calls join the outer unit of work.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*journal); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	j := &journal{}
	if err := fn(context.WithValue(ctx, txKey{}, j)); err != nil {
		s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// write applies op under the data lock and journals its inverse when a
// transaction is open. Writes outside a transaction still wait for running ones.
func (s *Store) write(ctx context.Context, name string, op func() (undo func(), err error)) error {
	j, inTx := ctx.Value(txKey{}).(*journal)
	if !inTx {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.faults[name]; ok {
		delete(s.faults, name)
		return err
	}

	undo, err := op()
	if err != nil {
		return err
	}
	if inTx && undo != nil {
		j.undo = append(j.undo, undo)
	}
	return nil
}

// read takes the data lock for reading. Outside a transaction it also holds txMu
// shared, so journaled writes are never visible before they commit.
func (s *Store) read(ctx context.Context) (unlock func()) {
	if _, inTx := ctx.Value(txKey{}).(*journal); inTx {
		s.mu.RLock()
		return s.mu.RUnlock
	}
	s.txMu.RLock()
	s.mu.RLock()
	return func() {
		s.mu.RUnlock()
		s.txMu.RUnlock()
	}
}

func (s *Store) Inventory() repository.InventoryRepository       { return inventoryRepo{s} }
func (s *Store) StockHistory() repository.StockHistoryRepository { return historyRepo{s} }
func (s *Store) Parties() repository.PartyRepository             { return partyRepo{s} }
func (s *Store) Invoices() repository.InvoiceRepository          { return invoiceRepo{s} }
func (s *Store) Ledger() repository.LedgerRepository             { return ledgerRepo{s} }
func (s *Store) Reports() repository.ReportRepository            { return reportRepo{s} }

// Close is a no-op.
func (s *Store) Close(context.Context) error { return nil }

// SavedReports returns the saved daily reports.
func (s *Store) SavedReports() []models.DailyReport {
	defer s.read(context.Background())()
	return append([]models.DailyReport(nil), s.reports...)
}

// newestFirst orders by creation time, then id, descending.
func newestFirst[T any](docs []T, key func(T) (int64, primitive.ObjectID)) {
	sort.SliceStable(docs, func(i, j int) bool {
		ti, idi := key(docs[i])
		tj, idj := key(docs[j])
		if ti != tj {
			return ti > tj
		}
		return idi.Hex() > idj.Hex()
	})
}

func copyParty(p models.Party) models.Party {
	p.Transactions = append([]primitive.ObjectID{}, p.Transactions...)
	return p
}
