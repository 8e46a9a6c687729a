package invoice

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/domain/models"
	"github.com/mamadbah2/cycleshop/internal/repository"
)

// Get returns the invoice with its party and items resolved.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID) (*models.InvoiceDetail, error) {
	inv, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := s.resolve(ctx, []models.Invoice{*inv})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// committed resolves an invoice that is already stored. A failed lookup is only
// logged: the write went through, so the caller gets the bare document.
func (s *Service) committed(ctx context.Context, inv *models.Invoice) *models.InvoiceDetail {
	details, err := s.resolve(ctx, []models.Invoice{*inv})
	if err != nil {
		s.logger.Warn("failed to resolve invoice references after commit",
			zap.String("invoice_id", inv.ID.Hex()), zap.Error(err))
		detail := models.InvoiceDetail{Invoice: *inv, Items: make([]models.InvoiceLineDetail, 0, len(inv.Items))}
		for _, line := range inv.Items {
			detail.Items = append(detail.Items, models.InvoiceLineDetail{InvoiceItem: line})
		}
		return &detail
	}
	return &details[0]
}

// List returns matching invoices, newest first, with references resolved.
func (s *Service) List(ctx context.Context, filter models.InvoiceFilter) ([]models.InvoiceDetail, error) {
	invoices, err := s.store.Invoices().List(ctx, filter)
	if err != nil {
		return nil, repository.AsAppError(err)
	}
	return s.resolve(ctx, invoices)
}

func (s *Service) resolve(ctx context.Context, invoices []models.Invoice) ([]models.InvoiceDetail, error) {
	var partyIDs, itemIDs []primitive.ObjectID
	for _, inv := range invoices {
		partyIDs = append(partyIDs, inv.PartyID)
		for _, line := range inv.Items {
			itemIDs = append(itemIDs, line.ItemID)
		}
	}

	parties, err := s.store.Parties().FindByIDs(ctx, partyIDs)
	if err != nil {
		return nil, repository.AsAppError(err)
	}
	items, err := s.store.Inventory().FindByIDs(ctx, itemIDs)
	if err != nil {
		return nil, repository.AsAppError(err)
	}

	out := make([]models.InvoiceDetail, 0, len(invoices))
	for _, inv := range invoices {
		detail := models.InvoiceDetail{Invoice: inv, Items: make([]models.InvoiceLineDetail, 0, len(inv.Items))}
		if party, ok := parties[inv.PartyID]; ok {
			detail.Party = &party
		}
		for _, line := range inv.Items {
			lineDetail := models.InvoiceLineDetail{InvoiceItem: line}
			if item, ok := items[line.ItemID]; ok {
				lineDetail.Item = &item
			}
			detail.Items = append(detail.Items, lineDetail)
		}
		out = append(out, detail)
	}
	return out, nil
}
