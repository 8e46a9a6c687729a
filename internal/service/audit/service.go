// Package audit cross-checks the stored entities against the rules the engine
// maintains and reports every violation it finds.
package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/domain/models"
	"github.com/mamadbah2/cycleshop/internal/repository"
	"github.com/mamadbah2/cycleshop/pkg/money"
)

// Rule names reported in findings.
const (
	RuleStockNonNegative     = "stock_non_negative"
	RuleStockMatchesHistory  = "stock_matches_history"
	RuleLedgerBalance        = "ledger_balance"
	RuleLedgerStatus         = "ledger_status"
	RuleLedgerSettlements    = "ledger_settlements"
	RuleInvoiceTotal         = "invoice_total"
	RuleInvoiceMirrorsLedger = "invoice_mirrors_ledger"
	RulePartyReferences      = "party_references_invoice"
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

// Run loads every collection and checks it.
func (s *Service) Run(ctx context.Context) (*models.AuditReport, error) {
	items, err := s.store.Inventory().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	latest, err := s.store.StockHistory().Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock history: %w", err)
	}
	invoices, err := s.store.Invoices().List(ctx, models.InvoiceFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	entries, err := s.store.Ledger().List(ctx, models.LedgerFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger: %w", err)
	}
	parties, err := s.store.Parties().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list parties: %w", err)
	}

	report := &models.AuditReport{
		CheckedAt:     s.now(),
		Items:         len(items),
		Invoices:      len(invoices),
		LedgerEntries: len(entries),
		Parties:       len(parties),
		Findings:      []models.AuditFinding{},
	}
	report.Findings = append(report.Findings, checkStock(items, latest)...)
	report.Findings = append(report.Findings, checkLedger(entries)...)
	report.Findings = append(report.Findings, checkInvoices(invoices, entries, parties)...)

	if report.Clean() {
		s.logger.Info("audit clean", zap.Int("items", report.Items), zap.Int("invoices", report.Invoices))
	} else {
		s.logger.Warn("audit found inconsistencies", zap.Int("findings", len(report.Findings)))
	}
	return report, nil
}

func checkStock(items []models.InventoryItem, latest map[primitive.ObjectID]models.StockHistoryEntry) []models.AuditFinding {
	var findings []models.AuditFinding
	for _, item := range items {
		id := item.ID.Hex()
		if item.QuantityAvailable < 0 {
			findings = append(findings, models.AuditFinding{
				Entity: "inventory", ID: id, Rule: RuleStockNonNegative,
				Detail: fmt.Sprintf("%s has quantity %d", item.ItemName, item.QuantityAvailable),
			})
		}
		last, ok := latest[item.ID]
		switch {
		case !ok && item.QuantityAvailable != 0:
			findings = append(findings, models.AuditFinding{
				Entity: "inventory", ID: id, Rule: RuleStockMatchesHistory,
				Detail: fmt.Sprintf("%s has quantity %d but no history", item.ItemName, item.QuantityAvailable),
			})
		case ok && last.NewQty != item.QuantityAvailable:
			findings = append(findings, models.AuditFinding{
				Entity: "inventory", ID: id, Rule: RuleStockMatchesHistory,
				Detail: fmt.Sprintf("%s has quantity %d, last history entry says %d", item.ItemName, item.QuantityAvailable, last.NewQty),
			})
		}
	}
	return findings
}

func checkLedger(entries []models.LedgerEntry) []models.AuditFinding {
	var findings []models.AuditFinding
	for _, e := range entries {
		id := e.ID.Hex()
		if money.Cmp(e.BalanceAmount, money.Sub(e.OriginalAmount, e.SettledAmount)) != 0 {
			findings = append(findings, models.AuditFinding{
				Entity: "ledger", ID: id, Rule: RuleLedgerBalance,
				Detail: fmt.Sprintf("balance %.2f != original %.2f - settled %.2f", e.BalanceAmount, e.OriginalAmount, e.SettledAmount),
			})
		}
		if money.Cmp(e.SettledAmount, e.OriginalAmount) > 0 {
			findings = append(findings, models.AuditFinding{
				Entity: "ledger", ID: id, Rule: RuleLedgerBalance,
				Detail: fmt.Sprintf("settled %.2f exceeds original %.2f", e.SettledAmount, e.OriginalAmount),
			})
		}
		if recorded := e.RecordedSettlements(); money.Cmp(recorded, e.SettledAmount) > 0 {
			findings = append(findings, models.AuditFinding{
				Entity: "ledger", ID: id, Rule: RuleLedgerSettlements,
				Detail: fmt.Sprintf("settlements add up to %.2f, settled amount is %.2f", recorded, e.SettledAmount),
			})
		}
		if want := models.DeriveLedgerStatus(e.SettledAmount, e.BalanceAmount); e.Status != want {
			findings = append(findings, models.AuditFinding{
				Entity: "ledger", ID: id, Rule: RuleLedgerStatus,
				Detail: fmt.Sprintf("status %s, amounts imply %s", e.Status, want),
			})
		}
	}
	return findings
}

func checkInvoices(invoices []models.Invoice, entries []models.LedgerEntry, parties []models.Party) []models.AuditFinding {
	byInvoice := make(map[primitive.ObjectID]models.LedgerEntry, len(entries))
	for _, e := range entries {
		if e.InvoiceID != nil {
			byInvoice[*e.InvoiceID] = e
		}
	}
	partyByID := make(map[primitive.ObjectID]models.Party, len(parties))
	for _, p := range parties {
		partyByID[p.ID] = p
	}

	var findings []models.AuditFinding
	for _, inv := range invoices {
		id := inv.ID.Hex()

		lines := make([]float64, 0, len(inv.Items))
		for _, line := range inv.Items {
			lines = append(lines, line.TotalAmount)
		}
		if sum := money.Sum(lines...); money.Cmp(sum, inv.TotalAmount) != 0 {
			findings = append(findings, models.AuditFinding{
				Entity: "invoice", ID: id, Rule: RuleInvoiceTotal,
				Detail: fmt.Sprintf("invoice #%s total %.2f, lines sum to %.2f", inv.InvoiceNumber, inv.TotalAmount, sum),
			})
		}

		if entry, ok := byInvoice[inv.ID]; ok && money.Cmp(entry.BalanceAmount, inv.BalanceAmount) != 0 {
			findings = append(findings, models.AuditFinding{
				Entity: "invoice", ID: id, Rule: RuleInvoiceMirrorsLedger,
				Detail: fmt.Sprintf("invoice #%s balance %.2f, ledger entry %s balance %.2f", inv.InvoiceNumber, inv.BalanceAmount, entry.ID.Hex(), entry.BalanceAmount),
			})
		}

		party, ok := partyByID[inv.PartyID]
		if !ok || !party.HasTransaction(inv.ID) {
			findings = append(findings, models.AuditFinding{
				Entity: "invoice", ID: id, Rule: RulePartyReferences,
				Detail: fmt.Sprintf("invoice #%s is not listed by party %s", inv.InvoiceNumber, inv.PartyID.Hex()),
			})
		}
	}
	return findings
}
