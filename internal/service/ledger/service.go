// Package ledger serves receivable and payable reads and the open-balance summary.
package ledger

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/domain/apperrors"
	"github.com/mamadbah2/cycleshop/internal/domain/models"
	"github.com/mamadbah2/cycleshop/internal/repository"
	"github.com/mamadbah2/cycleshop/pkg/money"
)

// OpenStatuses are the statuses that still carry a balance.
var OpenStatuses = []models.LedgerStatus{models.LedgerPending, models.LedgerPartial}

type Service struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store repository.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create opens a manual entry against an existing party.
func (s *Service) Create(ctx context.Context, in models.CreateLedgerEntryInput) (*models.LedgerEntry, error) {
	entry, err := in.Build(s.now())
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Parties().FindByID(ctx, entry.PartyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Validation("Party not found")
		}
		return nil, repository.AsAppError(err)
	}
	if err := s.store.Ledger().Insert(ctx, entry); err != nil {
		return nil, repository.AsAppError(err)
	}
	s.logger.Info("ledger entry created", zap.String("ledger_id", entry.ID.Hex()), zap.Float64("amount", entry.OriginalAmount))
	return entry, nil
}

func (s *Service) List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntryDetail, error) {
	entries, err := s.store.Ledger().List(ctx, filter)
	if err != nil {
		return nil, repository.AsAppError(err)
	}
	return s.resolve(ctx, entries)
}

func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*models.LedgerEntryDetail, error) {
	entry, err := s.store.Ledger().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Ledger entry not found")
	}
	if err != nil {
		return nil, repository.AsAppError(err)
	}
	details, err := s.resolve(ctx, []models.LedgerEntry{*entry})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// Summary lists open receivables and payables with their totals.
func (s *Service) Summary(ctx context.Context) (*models.LedgerSummary, error) {
	receivables, err := s.List(ctx, models.LedgerFilter{TransactionType: models.Receivable, Statuses: OpenStatuses})
	if err != nil {
		return nil, err
	}
	payables, err := s.List(ctx, models.LedgerFilter{TransactionType: models.Payable, Statuses: OpenStatuses})
	if err != nil {
		return nil, err
	}

	totals := models.LedgerTotals{
		TotalReceivable:      sumBalances(receivables),
		TotalPayable:         sumBalances(payables),
		TotalReceivableCount: len(receivables),
		TotalPayableCount:    len(payables),
	}
	totals.NetPosition = money.Sub(totals.TotalReceivable, totals.TotalPayable)

	return &models.LedgerSummary{Receivables: receivables, Payables: payables, Summary: totals}, nil
}

func sumBalances(entries []models.LedgerEntryDetail) float64 {
	balances := make([]float64, 0, len(entries))
	for _, e := range entries {
		balances = append(balances, e.BalanceAmount)
	}
	return money.Sum(balances...)
}

func (s *Service) resolve(ctx context.Context, entries []models.LedgerEntry) ([]models.LedgerEntryDetail, error) {
	var partyIDs, invoiceIDs []primitive.ObjectID
	for _, e := range entries {
		partyIDs = append(partyIDs, e.PartyID)
		if e.InvoiceID != nil {
			invoiceIDs = append(invoiceIDs, *e.InvoiceID)
		}
	}
	parties, err := s.store.Parties().FindByIDs(ctx, partyIDs)
	if err != nil {
		return nil, repository.AsAppError(err)
	}
	invoices, err := s.store.Invoices().FindByIDs(ctx, invoiceIDs)
	if err != nil {
		return nil, repository.AsAppError(err)
	}

	out := make([]models.LedgerEntryDetail, 0, len(entries))
	for _, e := range entries {
		detail := models.LedgerEntryDetail{LedgerEntry: e}
		if party, ok := parties[e.PartyID]; ok {
			detail.Party = &party
		}
		if e.InvoiceID != nil {
			if inv, ok := invoices[*e.InvoiceID]; ok {
				detail.Invoice = &inv
			}
		}
		out = append(out, detail)
	}
	return out, nil
}
