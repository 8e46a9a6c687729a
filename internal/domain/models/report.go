package models

import "time"

// DailyReport is the end-of-day business snapshot stored in the daily_reports collection.
type DailyReport struct {
	Date                 time.Time `bson:"date" json:"date"`
	SalesAmount          float64   `bson:"sales_amount" json:"sales_amount"`
	SalesCount           int       `bson:"sales_count" json:"sales_count"`
	PurchaseAmount       float64   `bson:"purchase_amount" json:"purchase_amount"`
	PurchaseCount        int       `bson:"purchase_count" json:"purchase_count"`
	SettlementsCollected float64   `bson:"settlements_collected" json:"settlements_collected"`
	SettlementsPaid      float64   `bson:"settlements_paid" json:"settlements_paid"`
	TotalReceivable      float64   `bson:"total_receivable" json:"total_receivable"`
	TotalPayable         float64   `bson:"total_payable" json:"total_payable"`
	NetPosition          float64   `bson:"net_position" json:"net_position"`
	LowStockItems        []string  `bson:"low_stock_items" json:"low_stock_items"`
	CreatedAt            time.Time `bson:"created_at" json:"created_at"`
}

// AuditFinding is one broken cross-entity invariant.
type AuditFinding struct {
	Entity string `json:"entity"`
	ID     string `json:"id"`
	Rule   string `json:"rule"`
	Detail string `json:"detail"`
}

// AuditReport is the result of a consistency audit run.
type AuditReport struct {
	CheckedAt     time.Time      `json:"checkedAt"`
	Items         int            `json:"items"`
	Invoices      int            `json:"invoices"`
	LedgerEntries int            `json:"ledgerEntries"`
	Parties       int            `json:"parties"`
	Findings      []AuditFinding `json:"findings"`
}

// Clean reports whether the audit found nothing.
func (r *AuditReport) Clean() bool {
	return len(r.Findings) == 0
}
