// Package app builds the store, locks and services from configuration. Both
// binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/auth"
	"github.com/mamadbah2/cycleshop/internal/config"
	"github.com/mamadbah2/cycleshop/internal/lock"
	"github.com/mamadbah2/cycleshop/internal/repository"
	"github.com/mamadbah2/cycleshop/internal/repository/memory"
	"github.com/mamadbah2/cycleshop/internal/repository/mongodb"
	"github.com/mamadbah2/cycleshop/internal/repository/sheets"
	"github.com/mamadbah2/cycleshop/internal/server/handlers"
	"github.com/mamadbah2/cycleshop/internal/server/router"
	"github.com/mamadbah2/cycleshop/internal/service/audit"
	"github.com/mamadbah2/cycleshop/internal/service/commands"
	"github.com/mamadbah2/cycleshop/internal/service/inventory"
	"github.com/mamadbah2/cycleshop/internal/service/invoice"
	"github.com/mamadbah2/cycleshop/internal/service/ledger"
	"github.com/mamadbah2/cycleshop/internal/service/party"
	"github.com/mamadbah2/cycleshop/internal/service/reporting"
	"github.com/mamadbah2/cycleshop/internal/service/settlement"
	"github.com/mamadbah2/cycleshop/internal/service/whatsapp"
	whatsappclient "github.com/mamadbah2/cycleshop/pkg/clients/whatsapp"
	"github.com/mamadbah2/cycleshop/pkg/logger"
)

// App holds every long-lived dependency.
type App struct {
	Config *config.Config
	Store  repository.Store
	Locker lock.Locker
	JWT    *auth.JWTService

	Invoices    *invoice.Service
	Settlements *settlement.Service
	Inventory   *inventory.Service
	Parties     *party.Service
	Ledger      *ledger.Service
	Reports     *reporting.Service
	Audit       *audit.Service
	// Messaging is nil when WhatsApp is not configured.
	Messaging *whatsapp.Service

	closers []func(context.Context) error
	logger  *zap.Logger
}

// New connects the configured backends and wires the services.
func New(ctx context.Context, cfg *config.Config, base *zap.Logger) (_ *App, err error) {
	if base == nil {
		base = zap.NewNop()
	}
	a := &App{Config: cfg, logger: base}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if err := a.openStore(ctx); err != nil {
		return nil, err
	}
	if err := a.openLocker(ctx); err != nil {
		return nil, err
	}

	loc, err := cfg.Reporting.Location()
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	a.JWT = auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	a.Invoices = invoice.NewService(a.Store, a.Locker, logger.Named(base, "svc.invoice"))
	a.Settlements = settlement.NewService(a.Store, a.Locker, logger.Named(base, "svc.settlement"))
	a.Inventory = inventory.NewService(a.Store, a.Locker, logger.Named(base, "svc.inventory"))
	a.Parties = party.NewService(a.Store, logger.Named(base, "svc.party"))
	a.Ledger = ledger.NewService(a.Store, logger.Named(base, "svc.ledger"))
	a.Audit = audit.NewService(a.Store, logger.Named(base, "svc.audit"))

	opts := reporting.Options{Location: loc, OwnerID: cfg.WhatsApp.OwnerID}
	if cfg.Sheets.Enabled() {
		sheet, err := sheets.NewReportSheet(ctx, cfg.Sheets, logger.Named(base, "repo.sheets"))
		if err != nil {
			return nil, err
		}
		opts.Sheet = sheet
	}
	var sender *whatsappclient.Client
	if cfg.WhatsApp.Enabled() {
		sender = whatsappclient.NewClient(cfg.WhatsApp)
		opts.Sender = sender
	}
	a.Reports = reporting.NewService(a.Store, a.Ledger, a.Inventory, opts, logger.Named(base, "svc.reporting"))

	if sender != nil {
		dispatcher := commands.NewService(a.Ledger, a.Inventory, a.Reports, logger.Named(base, "svc.commands"))
		a.Messaging = whatsapp.NewService(cfg.WhatsApp, sender, dispatcher, logger.Named(base, "svc.whatsapp"))
	} else {
		base.Warn("whatsapp not configured, webhook and report messages disabled")
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	switch a.Config.Store.Driver {
	case config.DriverMemory:
		a.Store = memory.New()
		a.logger.Warn("using in-memory store, data is lost on exit")
	case config.DriverMongoDB:
		store, err := mongodb.NewStore(ctx, a.Config.MongoDB.URI, a.Config.MongoDB.DBName, logger.Named(a.logger, "repo.mongodb"))
		if err != nil {
			return err
		}
		a.Store = store
	default:
		return fmt.Errorf("unknown store driver %q", a.Config.Store.Driver)
	}
	a.closers = append(a.closers, a.Store.Close)
	return nil
}

func (a *App) openLocker(ctx context.Context) error {
	if !a.Config.Redis.Enabled() {
		a.Locker = lock.Noop{}
		return nil
	}
	rdb, err := lock.Connect(ctx, a.Config.Redis.Addr, a.Config.Redis.Password, a.Config.Redis.DB)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	a.Locker = lock.NewRedis(rdb, a.Config.Redis.LockTTL, a.Config.Redis.LockWait, logger.Named(a.logger, "lock.redis"))
	a.logger.Info("redis locking enabled", zap.String("addr", a.Config.Redis.Addr))
	return nil
}

// Handlers builds the HTTP handlers over the services.
func (a *App) Handlers() router.Handlers {
	h := router.Handlers{
		Invoices:  handlers.NewInvoiceHandler(a.Invoices, logger.Named(a.logger, "handlers.invoice")),
		Ledger:    handlers.NewLedgerHandler(a.Ledger, a.Settlements, logger.Named(a.logger, "handlers.ledger")),
		Inventory: handlers.NewInventoryHandler(a.Inventory, logger.Named(a.logger, "handlers.inventory")),
		Parties:   handlers.NewPartyHandler(a.Parties, logger.Named(a.logger, "handlers.party")),
		Reports:   handlers.NewReportHandler(a.Reports, a.Audit, logger.Named(a.logger, "handlers.report")),
	}
	if a.Messaging != nil {
		h.Webhook = handlers.NewWebhookHandler(a.Messaging, logger.Named(a.logger, "handlers.whatsapp"))
	}
	return h
}

// Close releases backends in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
