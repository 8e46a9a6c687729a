// Package invoice is the transaction engine behind invoice create, update and
// delete. Each operation moves stock, party balances and the ledger entry
// together inside one store transaction; an update or delete first reverses what
// the stored invoice applied.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/domain/apperrors"
	"github.com/mamadbah2/cycleshop/internal/domain/models"
	"github.com/mamadbah2/cycleshop/internal/lock"
	"github.com/mamadbah2/cycleshop/internal/repository"
	"github.com/mamadbah2/cycleshop/internal/service/stock"
	"github.com/mamadbah2/cycleshop/pkg/money"
)

var tracer = otel.Tracer("github.com/mamadbah2/cycleshop/internal/service/invoice")

var errStale = errors.New("invoice changed while waiting for locks")

// Service runs invoice operations.
type Service struct {
	store  repository.Store
	locker lock.Locker
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates the engine. A nil locker leaves serialization to the store.
func NewService(store repository.Store, locker lock.Locker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = lock.Noop{}
	}
	return &Service{
		store:  store,
		locker: locker,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create records a new invoice and applies its stock, party and ledger effects.
func (s *Service) Create(ctx context.Context, in models.CreateInvoiceInput) (_ *models.InvoiceDetail, err error) {
	ctx, span := tracer.Start(ctx, "invoice.Create")
	defer func() { endSpan(span, err) }()

	now := s.now()
	inv, err := in.Build(now)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(invoiceAttributes(inv)...)

	release, err := s.acquire(ctx, lockKeys(inv)...)
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		batch := stock.NewBatch(s.store, now)
		if err := applyLines(ctx, batch, inv, movementReason("", inv)); err != nil {
			return err
		}

		party, err := s.party(ctx, inv.PartyID)
		if err != nil {
			return err
		}
		party.BalanceAmount = money.Add(party.BalanceAmount, inv.TotalAmount)
		party.AddTransaction(inv.ID)
		party.UpdatedAt = now
		if err := s.store.Parties().SaveAccount(ctx, party); err != nil {
			return err
		}

		if err := s.store.Invoices().Insert(ctx, inv); err != nil {
			return duplicateNumber(err, inv.InvoiceNumber)
		}

		entry := models.NewLedgerEntryForInvoice(inv, party.PartyName, now)
		return s.store.Ledger().Insert(ctx, entry)
	})
	if err != nil {
		s.logger.Warn("invoice create aborted", zap.String("invoice_number", inv.InvoiceNumber), zap.Error(err))
		return nil, apperrors.Aborted(repository.AsAppError(err))
	}

	s.logger.Info("invoice created",
		zap.String("invoice_id", inv.ID.Hex()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("type", string(inv.InvoiceType)),
		zap.Float64("total", inv.TotalAmount),
	)
	return s.committed(ctx, inv), nil
}

// Update reverses the stored invoice's effects, applies the patch and re-applies
// the effects of the result.
func (s *Service) Update(ctx context.Context, id primitive.ObjectID, in models.UpdateInvoiceInput) (_ *models.InvoiceDetail, err error) {
	ctx, span := tracer.Start(ctx, "invoice.Update", trace.WithAttributes(attribute.String("invoice.id", id.Hex())))
	defer func() { endSpan(span, err) }()

	existing, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	// Validate against the current state before locking; the patch is applied
	// again to the state read inside the transaction.
	preview, err := in.Apply(*existing, s.now())
	if err != nil {
		return nil, err
	}

	keys := append(lockKeys(existing), lockKeys(preview)...)
	release, err := s.acquire(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	var updated *models.Invoice
	err = s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.find(ctx, id)
		if err != nil {
			return err
		}
		if !covers(keys, current) {
			return staleInvoice()
		}

		batch := stock.NewBatch(s.store, now)
		if err := reverseLines(ctx, batch, current, movementReason("Reversed", current)); err != nil {
			return err
		}

		updated, err = in.Apply(*current, now)
		if err != nil {
			return err
		}
		if !covers(keys, updated) {
			return staleInvoice()
		}

		if err := s.releaseParty(ctx, current, updated.PartyID != current.PartyID, now); err != nil {
			return err
		}

		if err := applyLines(ctx, batch, updated, movementReason("Updated", updated)); err != nil {
			return err
		}

		party, err := s.party(ctx, updated.PartyID)
		if err != nil {
			return err
		}
		party.BalanceAmount = money.Add(party.BalanceAmount, updated.TotalAmount)
		party.AddTransaction(updated.ID)
		party.UpdatedAt = now
		if err := s.store.Parties().SaveAccount(ctx, party); err != nil {
			return err
		}

		if err := s.store.Invoices().Replace(ctx, updated); err != nil {
			return duplicateNumber(err, updated.InvoiceNumber)
		}

		entry, err := s.store.Ledger().FindByInvoice(ctx, updated.ID)
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("invoice has no ledger entry, leaving ledger untouched", zap.String("invoice_id", id.Hex()))
			return nil
		}
		if err != nil {
			return err
		}
		if err := entry.CheckInvoiceSync(updated); err != nil {
			return err
		}
		entry.SyncWithInvoice(updated, party.PartyName, now)
		return s.store.Ledger().Replace(ctx, entry)
	})
	if err != nil {
		s.logger.Warn("invoice update aborted", zap.String("invoice_id", id.Hex()), zap.Error(err))
		return nil, apperrors.Aborted(repository.AsAppError(err))
	}

	s.logger.Info("invoice updated",
		zap.String("invoice_id", id.Hex()),
		zap.Float64("total", updated.TotalAmount),
		zap.String("payment_status", string(updated.PaymentStatus)),
	)
	return s.committed(ctx, updated), nil
}

// Delete reverses the invoice's effects and removes it with its ledger entry.
func (s *Service) Delete(ctx context.Context, id primitive.ObjectID) (err error) {
	ctx, span := tracer.Start(ctx, "invoice.Delete", trace.WithAttributes(attribute.String("invoice.id", id.Hex())))
	defer func() { endSpan(span, err) }()

	existing, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	keys := lockKeys(existing)
	release, err := s.acquire(ctx, keys...)
	if err != nil {
		return err
	}
	defer release()

	now := s.now()
	err = s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.find(ctx, id)
		if err != nil {
			return err
		}
		if !covers(keys, current) {
			return staleInvoice()
		}

		batch := stock.NewBatch(s.store, now)
		if err := reverseLines(ctx, batch, current, movementReason("Deleted", current)); err != nil {
			return err
		}
		if err := s.releaseParty(ctx, current, true, now); err != nil {
			return err
		}
		if err := s.store.Ledger().DeleteByInvoice(ctx, id); err != nil {
			return err
		}
		return s.store.Invoices().Delete(ctx, id)
	})
	if err != nil {
		s.logger.Warn("invoice delete aborted", zap.String("invoice_id", id.Hex()), zap.Error(err))
		return apperrors.Aborted(repository.AsAppError(err))
	}

	s.logger.Info("invoice deleted", zap.String("invoice_id", id.Hex()), zap.String("invoice_number", existing.InvoiceNumber))
	return nil
}

// applyLines moves stock forward for every line of inv.
func applyLines(ctx context.Context, batch *stock.Batch, inv *models.Invoice, reason string) error {
	for _, line := range inv.Items {
		if _, err := batch.Move(ctx, line.ItemID, inv.InvoiceType.StockDelta(line.Quantity), reason); err != nil {
			return err
		}
	}
	return nil
}

// reverseLines undoes the stock movement of every line of inv. Items that no
// longer exist are skipped.
func reverseLines(ctx context.Context, batch *stock.Batch, inv *models.Invoice, reason string) error {
	for _, line := range inv.Items {
		if _, err := batch.Item(ctx, line.ItemID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return err
		}
		if _, err := batch.Move(ctx, line.ItemID, -inv.InvoiceType.StockDelta(line.Quantity), reason); err != nil {
			return err
		}
	}
	return nil
}

// releaseParty takes the invoice total back off its party. A party that no
// longer exists is skipped.
func (s *Service) releaseParty(ctx context.Context, inv *models.Invoice, detach bool, now time.Time) error {
	party, err := s.store.Parties().FindByID(ctx, inv.PartyID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	party.BalanceAmount = money.Sub(party.BalanceAmount, inv.TotalAmount)
	if detach {
		party.RemoveTransaction(inv.ID)
	}
	party.UpdatedAt = now
	return s.store.Parties().SaveAccount(ctx, party)
}

func (s *Service) party(ctx context.Context, id primitive.ObjectID) (*models.Party, error) {
	party, err := s.store.Parties().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Party not found")
	}
	return party, err
}

func (s *Service) find(ctx context.Context, id primitive.ObjectID) (*models.Invoice, error) {
	inv, err := s.store.Invoices().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Invoice not found")
	}
	if err != nil {
		return nil, repository.AsAppError(err)
	}
	return inv, nil
}

func (s *Service) acquire(ctx context.Context, keys ...string) (lock.Release, error) {
	release, err := s.locker.Acquire(ctx, keys...)
	if err != nil {
		if errors.Is(err, lock.ErrNotObtained) {
			return nil, apperrors.Conflict(err, "Another request is updating the same records, please try again")
		}
		return nil, apperrors.Internal(err, "Internal server error")
	}
	return release, nil
}

// lockKeys names the invoice, its party and its items.
func lockKeys(inv *models.Invoice) []string {
	keys := []string{
		lock.Key("invoice", inv.ID.Hex()),
		lock.Key("party", inv.PartyID.Hex()),
	}
	for _, line := range inv.Items {
		keys = append(keys, lock.Key("item", line.ItemID.Hex()))
	}
	return keys
}

// covers reports whether every key inv needs is among the held keys.
func covers(held []string, inv *models.Invoice) bool {
	set := make(map[string]struct{}, len(held))
	for _, k := range held {
		set[k] = struct{}{}
	}
	for _, k := range lockKeys(inv) {
		if _, ok := set[k]; !ok {
			return false
		}
	}
	return true
}

// staleInvoice is returned when the invoice moved to another party or other
// items between the first read and taking the locks.
func staleInvoice() error {
	return apperrors.Conflict(errStale, "Invoice was modified by another request, please try again")
}

// movementReason builds the stock history reason, e.g. "Reversed sale Invoice #12".
func movementReason(prefix string, inv *models.Invoice) string {
	reason := fmt.Sprintf("%s Invoice #%s", inv.InvoiceType, inv.InvoiceNumber)
	if prefix == "" {
		return reason
	}
	return prefix + " " + reason
}

func duplicateNumber(err error, number string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.Conflict(err, "Invoice number %s already exists", number)
	}
	return err
}

func invoiceAttributes(inv *models.Invoice) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("invoice.id", inv.ID.Hex()),
		attribute.String("invoice.number", inv.InvoiceNumber),
		attribute.String("invoice.type", string(inv.InvoiceType)),
		attribute.Int("invoice.lines", len(inv.Items)),
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
