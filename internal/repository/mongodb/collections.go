package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/cycleshop/internal/domain/models"
	"github.com/mamadbah2/cycleshop/internal/repository"
)

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter any, what string) (*T, error) {
	var doc T
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to find %s: %w", what, translate(err))
	}
	return &doc, nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts *options.FindOptions, what string) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", what, translate(err))
	}
	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", what, translate(err))
	}
	return docs, nil
}

func byIDs[T any](ctx context.Context, coll *mongo.Collection, ids []primitive.ObjectID, id func(T) primitive.ObjectID, what string) (map[primitive.ObjectID]T, error) {
	out := make(map[primitive.ObjectID]T, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	docs, err := findAll[T](ctx, coll, bson.M{"_id": bson.M{"$in": ids}}, nil, what)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		out[id(doc)] = doc
	}
	return out, nil
}

func insert(ctx context.Context, coll *mongo.Collection, doc any, what string) error {
	if _, err := coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert %s: %w", what, translate(err))
	}
	return nil
}

func update(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID, change bson.M, what string) error {
	res, err := coll.UpdateByID(ctx, id, change)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", what, translate(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("failed to update %s %s: %w", what, id.Hex(), repository.ErrNotFound)
	}
	return nil
}

type inventoryRepo struct{ coll *mongo.Collection }

func (r *inventoryRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.InventoryItem, error) {
	return findOne[models.InventoryItem](ctx, r.coll, bson.M{"_id": id}, "inventory item")
}

func (r *inventoryRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.InventoryItem, error) {
	return byIDs(ctx, r.coll, ids, func(i models.InventoryItem) primitive.ObjectID { return i.ID }, "inventory items")
}

func (r *inventoryRepo) List(ctx context.Context) ([]models.InventoryItem, error) {
	return findAll[models.InventoryItem](ctx, r.coll, bson.M{}, options.Find().SetSort(newestFirst), "inventory items")
}

func (r *inventoryRepo) Insert(ctx context.Context, item *models.InventoryItem) error {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	return insert(ctx, r.coll, item, "inventory item")
}

func (r *inventoryRepo) SetQuantity(ctx context.Context, id primitive.ObjectID, quantity int, updatedAt time.Time) error {
	return update(ctx, r.coll, id, bson.M{"$set": bson.M{
		"quantityAvailable": quantity,
		"updatedAt":         updatedAt,
	}}, "inventory item")
}

type historyRepo struct{ coll *mongo.Collection }

func (r *historyRepo) Append(ctx context.Context, entry *models.StockHistoryEntry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	return insert(ctx, r.coll, entry, "stock history entry")
}

func (r *historyRepo) ListByItem(ctx context.Context, itemID primitive.ObjectID) ([]models.StockHistoryEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[models.StockHistoryEntry](ctx, r.coll, bson.M{"itemId": itemID}, opts, "stock history")
}

func (r *historyRepo) Latest(ctx context.Context) (map[primitive.ObjectID]models.StockHistoryEntry, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$itemId"},
			{Key: "latest", Value: bson.D{{Key: "$last", Value: "$$ROOT"}}},
		}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stock history: %w", translate(err))
	}
	var rows []struct {
		Latest models.StockHistoryEntry `bson:"latest"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode stock history: %w", err)
	}
	out := make(map[primitive.ObjectID]models.StockHistoryEntry, len(rows))
	for _, row := range rows {
		out[row.Latest.ItemID] = row.Latest
	}
	return out, nil
}

type partyRepo struct{ coll *mongo.Collection }

func (r *partyRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Party, error) {
	return findOne[models.Party](ctx, r.coll, bson.M{"_id": id}, "party")
}

func (r *partyRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Party, error) {
	return byIDs(ctx, r.coll, ids, func(p models.Party) primitive.ObjectID { return p.ID }, "parties")
}

func (r *partyRepo) List(ctx context.Context) ([]models.Party, error) {
	return findAll[models.Party](ctx, r.coll, bson.M{}, options.Find().SetSort(newestFirst), "parties")
}

func (r *partyRepo) Insert(ctx context.Context, party *models.Party) error {
	if party.ID.IsZero() {
		party.ID = primitive.NewObjectID()
	}
	if party.Transactions == nil {
		party.Transactions = []primitive.ObjectID{}
	}
	return insert(ctx, r.coll, party, "party")
}

func (r *partyRepo) SaveAccount(ctx context.Context, party *models.Party) error {
	transactions := party.Transactions
	if transactions == nil {
		transactions = []primitive.ObjectID{}
	}
	return update(ctx, r.coll, party.ID, bson.M{"$set": bson.M{
		"balanceAmount": party.BalanceAmount,
		"transactions":  transactions,
		"updatedAt":     party.UpdatedAt,
	}}, "party")
}

type invoiceRepo struct{ coll *mongo.Collection }

func (r *invoiceRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Invoice, error) {
	return findOne[models.Invoice](ctx, r.coll, bson.M{"_id": id}, "invoice")
}

func (r *invoiceRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Invoice, error) {
	return byIDs(ctx, r.coll, ids, func(i models.Invoice) primitive.ObjectID { return i.ID }, "invoices")
}

func (r *invoiceRepo) List(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, error) {
	query := bson.M{}
	if filter.InvoiceType != "" {
		query["invoiceType"] = filter.InvoiceType
	}
	if filter.PartyID != nil {
		query["partyId"] = *filter.PartyID
	}
	if filter.CustomerID != nil {
		query["customerId"] = *filter.CustomerID
	}
	if filter.From != nil || filter.To != nil {
		window := bson.M{}
		if filter.From != nil {
			window["$gte"] = *filter.From
		}
		if filter.To != nil {
			window["$lt"] = *filter.To
		}
		query["date"] = window
	}
	return findAll[models.Invoice](ctx, r.coll, query, options.Find().SetSort(newestFirst), "invoices")
}

func (r *invoiceRepo) Insert(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID.IsZero() {
		invoice.ID = primitive.NewObjectID()
	}
	return insert(ctx, r.coll, invoice, "invoice")
}

func (r *invoiceRepo) Replace(ctx context.Context, invoice *models.Invoice) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": invoice.ID}, invoice)
	if err != nil {
		return fmt.Errorf("failed to replace invoice: %w", translate(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("failed to replace invoice %s: %w", invoice.ID.Hex(), repository.ErrNotFound)
	}
	return nil
}

func (r *invoiceRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", translate(err))
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("failed to delete invoice %s: %w", id.Hex(), repository.ErrNotFound)
	}
	return nil
}

type ledgerRepo struct{ coll *mongo.Collection }

func (r *ledgerRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.LedgerEntry, error) {
	return findOne[models.LedgerEntry](ctx, r.coll, bson.M{"_id": id}, "ledger entry")
}

func (r *ledgerRepo) FindByInvoice(ctx context.Context, invoiceID primitive.ObjectID) (*models.LedgerEntry, error) {
	return findOne[models.LedgerEntry](ctx, r.coll, bson.M{"invoiceId": invoiceID}, "ledger entry")
}

func (r *ledgerRepo) List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, error) {
	query := bson.M{}
	if filter.TransactionType != "" {
		query["transactionType"] = filter.TransactionType
	}
	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": filter.Statuses}
	}
	if filter.PartyID != nil {
		query["partyId"] = *filter.PartyID
	}
	if filter.CustomerID != nil {
		query["customerId"] = *filter.CustomerID
	}
	return findAll[models.LedgerEntry](ctx, r.coll, query, options.Find().SetSort(newestFirst), "ledger entries")
}

func (r *ledgerRepo) Insert(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.Settlements == nil {
		entry.Settlements = []models.Settlement{}
	}
	return insert(ctx, r.coll, entry, "ledger entry")
}

func (r *ledgerRepo) Replace(ctx context.Context, entry *models.LedgerEntry) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": entry.ID}, entry)
	if err != nil {
		return fmt.Errorf("failed to replace ledger entry: %w", translate(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("failed to replace ledger entry %s: %w", entry.ID.Hex(), repository.ErrNotFound)
	}
	return nil
}

func (r *ledgerRepo) DeleteByInvoice(ctx context.Context, invoiceID primitive.ObjectID) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"invoiceId": invoiceID}); err != nil {
		return fmt.Errorf("failed to delete ledger entry: %w", translate(err))
	}
	return nil
}

type reportRepo struct{ coll *mongo.Collection }

// SaveDailyReport saves a daily report to the database.
func (r *reportRepo) SaveDailyReport(ctx context.Context, report models.DailyReport) error {
	return insert(ctx, r.coll, report, "daily report")
}
