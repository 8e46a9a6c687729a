package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/repository"
)

const (
	collInventory    = "inventory"
	collStockHistory = "stock_history"
	collParties      = "parties"
	collInvoices     = "invoices"
	collLedger       = "ledger"
	collReports      = "daily_reports"

	transientTxnLabel = "TransientTransactionError"
	writeConflictCode = 112
)

// Store implements repository.Store on MongoDB. Multi-document transactions need a
// replica set or sharded cluster.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	txnOpts *options.TransactionOptions
	logger  *zap.Logger
}

var _ repository.Store = (*Store)(nil)

// NewStore connects, verifies the connection and makes sure the indexes exist.
func NewStore(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &Store{
		client: client,
		db:     client.Database(dbName),
		txnOpts: options.Transaction().
			SetReadConcern(readconcern.Snapshot()).
			SetWriteConcern(writeconcern.Majority()),
		logger: logger,
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.Info("connected to mongodb", zap.String("database", dbName))
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collInvoices: {
			{Keys: bson.D{{Key: "invoiceNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "partyId", Value: 1}, {Key: "date", Value: -1}}},
		},
		collLedger: {
			// One entry per invoice; manual entries carry no invoiceId.
			{Keys: bson.D{{Key: "invoiceId", Value: 1}}, Options: options.Index().
				SetName("invoiceId_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"invoiceId": bson.M{"$exists": true}})},
			{Keys: bson.D{{Key: "partyId", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "transactionType", Value: 1}, {Key: "status", Value: 1}}},
		},
		collStockHistory: {
			{Keys: bson.D{{Key: "itemId", Value: 1}, {Key: "date", Value: 1}}},
		},
		collReports: {
			{Keys: bson.D{{Key: "date", Value: -1}}},
		},
	}

	for coll, specs := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", coll, err)
		}
	}
	return nil
}

// WithinTransaction runs fn in a snapshot transaction and commits it once. A
// transient abort is reported as repository.ErrConflict and is not retried.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.Background())

	if err := session.StartTransaction(s.txnOpts); err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	sc := mongo.NewSessionContext(ctx, session)
	if err := fn(sc); err != nil {
		if abortErr := session.AbortTransaction(context.Background()); abortErr != nil {
			s.logger.Warn("failed to abort transaction", zap.Error(abortErr))
		}
		return translate(err)
	}

	if err := session.CommitTransaction(sc); err != nil {
		return translate(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func (s *Store) Inventory() repository.InventoryRepository {
	return &inventoryRepo{coll: s.db.Collection(collInventory)}
}

func (s *Store) StockHistory() repository.StockHistoryRepository {
	return &historyRepo{coll: s.db.Collection(collStockHistory)}
}

func (s *Store) Parties() repository.PartyRepository {
	return &partyRepo{coll: s.db.Collection(collParties)}
}

func (s *Store) Invoices() repository.InvoiceRepository {
	return &invoiceRepo{coll: s.db.Collection(collInvoices)}
}

func (s *Store) Ledger() repository.LedgerRepository {
	return &ledgerRepo{coll: s.db.Collection(collLedger)}
}

func (s *Store) Reports() repository.ReportRepository {
	return &reportRepo{coll: s.db.Collection(collReports)}
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// translate maps driver errors onto the repository sentinels. Errors that are
// already classified pass through untouched.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrDuplicate), errors.Is(err, repository.ErrConflict):
		return err
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%w: %w", repository.ErrNotFound, err)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %w", repository.ErrDuplicate, err)
	case isTransient(err):
		return fmt.Errorf("%w: %w", repository.ErrConflict, err)
	default:
		return err
	}
}

func isTransient(err error) bool {
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) && labeled.HasErrorLabel(transientTxnLabel) {
		return true
	}
	var serverErr mongo.ServerError
	return errors.As(err, &serverErr) && serverErr.HasErrorCode(writeConflictCode)
}
