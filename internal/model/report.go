package model

import (
	"time"
)

// ReportSummary aggregates workflow metrics for the admin dashboard
type ReportSummary struct {
	PendingCount       int64            `json:"pending_count"`
	ValidatedCount     int64            `json:"validated_count"`
	ApprovedCount      int64            `json:"approved_count"`
	RejectedCount      int64            `json:"rejected_count"`
	ApprovedTotal      string           `json:"approved_total"`
	TopPrograms        []ProgramRanking `json:"top_programs"`
	InvoiceTotals      []CurrencyTotal  `json:"invoice_totals"`
	TimeRangeStartDate time.Time        `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time        `json:"time_range_end_date"`
}

// ProgramRanking represents a program ranked by approved spending
type ProgramRanking struct {
	ProgramID    string `json:"program_id"`
	ProgramName  string `json:"program_name"`
	RequestCount int64  `json:"request_count"`
	TotalAmount  string `json:"total_amount"`
}

// CurrencyTotal sums attached final invoices per currency
type CurrencyTotal struct {
	Currency     string `json:"currency"`
	InvoiceCount int64  `json:"invoice_count"`
	Total        string `json:"total"`
}
