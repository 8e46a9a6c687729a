// Package party manages invoice counterparties.
package party

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/domain/apperrors"
	"github.com/mamadbah2/cycleshop/internal/domain/models"
	"github.com/mamadbah2/cycleshop/internal/repository"
)

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

// Create registers a party with a zero balance.
func (s *Service) Create(ctx context.Context, in models.CreatePartyInput) (*models.Party, error) {
	party, err := in.Build(s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Parties().Insert(ctx, party); err != nil {
		return nil, repository.AsAppError(err)
	}
	s.logger.Info("party created", zap.String("party_id", party.ID.Hex()), zap.String("name", party.PartyName))
	return party, nil
}

func (s *Service) List(ctx context.Context) ([]models.Party, error) {
	parties, err := s.store.Parties().List(ctx)
	if err != nil {
		return nil, repository.AsAppError(err)
	}
	return parties, nil
}

// Get returns the party with the invoices it references.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*models.PartyDetail, error) {
	party, err := s.store.Parties().FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Party not found")
	}
	if err != nil {
		return nil, repository.AsAppError(err)
	}

	byID, err := s.store.Invoices().FindByIDs(ctx, party.Transactions)
	if err != nil {
		return nil, repository.AsAppError(err)
	}
	invoices := make([]models.Invoice, 0, len(party.Transactions))
	for _, invoiceID := range party.Transactions {
		if inv, ok := byID[invoiceID]; ok {
			invoices = append(invoices, inv)
		}
	}
	return &models.PartyDetail{Party: *party, Invoices: invoices}, nil
}
