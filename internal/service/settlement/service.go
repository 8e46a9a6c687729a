// Package settlement records payments against ledger entries and mirrors the
// resulting balance onto the originating invoice.
package settlement

import (
	"context"
	"errors"
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
)

var tracer = otel.Tracer("github.com/mamadbah2/cycleshop/internal/service/settlement")

// Service is the settlement processor.
type Service struct {
	store  repository.Store
	locker lock.Locker
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new settlement service.
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

// AddSettlement appends a payment to the entry and, when the entry belongs to an
// invoice, copies the new balance and status onto it. Both writes share one
// transaction; the ledger entry is written first.
func (s *Service) AddSettlement(ctx context.Context, entryID primitive.ObjectID, in models.SettlementInput) (_ *models.LedgerEntry, err error) {
	ctx, span := tracer.Start(ctx, "settlement.Add", trace.WithAttributes(
		attribute.String("ledger.id", entryID.Hex()),
		attribute.Float64("settlement.amount", in.Amount),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := models.Validate(in); err != nil {
		return nil, err
	}

	existing, err := s.entry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	keys := []string{lock.Key("ledger", entryID.Hex())}
	if existing.InvoiceID != nil {
		keys = append(keys, lock.Key("invoice", existing.InvoiceID.Hex()))
	}
	release, err := s.locker.Acquire(ctx, keys...)
	if err != nil {
		if errors.Is(err, lock.ErrNotObtained) {
			return nil, apperrors.Conflict(err, "Another request is updating the same records, please try again")
		}
		return nil, apperrors.Internal(err, "Internal server error")
	}
	defer release()

	now := s.now()
	var entry *models.LedgerEntry
	err = s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := s.entry(ctx, entryID)
		if err != nil {
			return err
		}
		entry = current

		if err := entry.ApplySettlement(models.Settlement{
			Date:   now,
			Amount: in.Amount,
			Mode:   in.Mode,
			Notes:  in.Notes,
		}); err != nil {
			return err
		}
		if err := s.store.Ledger().Replace(ctx, entry); err != nil {
			return err
		}

		if entry.InvoiceID == nil {
			return nil
		}
		return s.mirror(ctx, entry, now)
	})
	if err != nil {
		s.logger.Warn("settlement rejected", zap.String("ledger_id", entryID.Hex()), zap.Float64("amount", in.Amount), zap.Error(err))
		return nil, apperrors.Aborted(repository.AsAppError(err))
	}

	s.logger.Info("settlement recorded",
		zap.String("ledger_id", entryID.Hex()),
		zap.Float64("amount", in.Amount),
		zap.Float64("balance", entry.BalanceAmount),
		zap.String("status", string(entry.Status)),
	)
	return entry, nil
}

// mirror copies the entry's balance onto its invoice. A pending entry leaves the
// invoice's payment status as it is.
func (s *Service) mirror(ctx context.Context, entry *models.LedgerEntry, now time.Time) error {
	inv, err := s.store.Invoices().FindByID(ctx, *entry.InvoiceID)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("ledger entry references a missing invoice",
			zap.String("ledger_id", entry.ID.Hex()),
			zap.String("invoice_id", entry.InvoiceID.Hex()),
		)
		return nil
	}
	if err != nil {
		return err
	}

	inv.BalanceAmount = entry.BalanceAmount
	if status, ok := entry.Status.PaymentStatus(); ok {
		inv.PaymentStatus = status
	}
	inv.UpdatedAt = now
	return s.store.Invoices().Replace(ctx, inv)
}

func (s *Service) entry(ctx context.Context, id primitive.ObjectID) (*models.LedgerEntry, error) {
	entry, err := s.store.Ledger().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Ledger entry not found")
	}
	if err != nil {
		return nil, repository.AsAppError(err)
	}
	return entry, nil
}
