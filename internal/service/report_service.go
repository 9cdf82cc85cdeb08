package service

import (
	"context"
	"time"

	"fundecodes-backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReportService interface {
	GetSummary(ctx context.Context, startDate, endDate time.Time) (model.ReportSummary, error)
}

type reportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) ReportService {
	return &reportService{db: db}
}

// GetSummary aggregates workflow metrics over the given time window:
// per-status request counts, total approved spending, the programs with the
// most approved spending, and attached invoice totals per currency.
func (s *reportService) GetSummary(ctx context.Context, startDate, endDate time.Time) (model.ReportSummary, error) {
	var summary model.ReportSummary
	summary.TimeRangeStartDate = startDate
	summary.TimeRangeEndDate = endDate

	var statusCounts []struct {
		Status string
		Count  int64
	}
	err := s.db.WithContext(ctx).Table("purchase_requests").
		Select("status, COUNT(*) as count").
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Group("status").
		Scan(&statusCounts).Error
	if err != nil {
		return summary, err
	}
	for _, sc := range statusCounts {
		switch sc.Status {
		case model.StatusPending:
			summary.PendingCount = sc.Count
		case model.StatusValidated:
			summary.ValidatedCount = sc.Count
		case model.StatusApproved:
			summary.ApprovedCount = sc.Count
		case model.StatusRejected:
			summary.RejectedCount = sc.Count
		}
	}

	var approvedTotal struct {
		Value decimal.Decimal
	}
	err = s.db.WithContext(ctx).Table("purchase_requests").
		Select("COALESCE(SUM(amount), 0) as value").
		Where("status = ? AND created_at >= ? AND created_at <= ?", model.StatusApproved, startDate, endDate).
		Scan(&approvedTotal).Error
	if err != nil {
		return summary, err
	}
	summary.ApprovedTotal = approvedTotal.Value.StringFixed(2)

	type programRow struct {
		ProgramID    string
		ProgramName  string
		RequestCount int64
		TotalAmount  decimal.Decimal
	}
	var topPrograms []programRow
	err = s.db.WithContext(ctx).Table("purchase_requests").
		Select("programs.id as program_id, programs.name as program_name, COUNT(*) as request_count, COALESCE(SUM(purchase_requests.amount), 0) as total_amount").
		Joins("JOIN programs ON programs.id = purchase_requests.program_id").
		Where("purchase_requests.status = ? AND purchase_requests.created_at >= ? AND purchase_requests.created_at <= ?", model.StatusApproved, startDate, endDate).
		Group("programs.id, programs.name").
		Order("total_amount DESC").
		Limit(5).
		Scan(&topPrograms).Error
	if err != nil {
		return summary, err
	}
	summary.TopPrograms = make([]model.ProgramRanking, 0, len(topPrograms))
	for _, p := range topPrograms {
		summary.TopPrograms = append(summary.TopPrograms, model.ProgramRanking{
			ProgramID:    p.ProgramID,
			ProgramName:  p.ProgramName,
			RequestCount: p.RequestCount,
			TotalAmount:  p.TotalAmount.StringFixed(2),
		})
	}

	type currencyRow struct {
		Currency     string
		InvoiceCount int64
		Total        decimal.Decimal
	}
	var currencyTotals []currencyRow
	err = s.db.WithContext(ctx).Table("final_invoices").
		Select("currency, COUNT(*) as invoice_count, COALESCE(SUM(total), 0) as total").
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Group("currency").
		Order("currency ASC").
		Scan(&currencyTotals).Error
	if err != nil {
		return summary, err
	}
	summary.InvoiceTotals = make([]model.CurrencyTotal, 0, len(currencyTotals))
	for _, c := range currencyTotals {
		summary.InvoiceTotals = append(summary.InvoiceTotals, model.CurrencyTotal{
			Currency:     c.Currency,
			InvoiceCount: c.InvoiceCount,
			Total:        c.Total.StringFixed(2),
		})
	}

	return summary, nil
}
