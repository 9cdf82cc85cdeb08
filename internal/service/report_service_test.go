package service_test

import (
	"testing"
	"time"

	"fundecodes-backend/internal/model"
	"fundecodes-backend/internal/service"
)

func TestReportSummaryAggregates(t *testing.T) {
	env := newTestEnv(t)
	reports := service.NewReportService(env.db)

	// Two approved (one with an invoice), one validated, one rejected, one pending
	first := approvedRequest(t, env)
	approvedRequest(t, env)
	if _, err := env.invoices.AttachInvoice(t.Context(), first.ID, env.requester.ID.String(), service.AttachInvoiceDTO{
		Number: "FAC-100", Date: "2026-08-10", Total: "60.25", Currency: model.CurrencyCRC,
	}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	validated := env.createRequest(t, "120.50")
	env.transition(t, validated.ID, model.TransitionValidate, model.RoleAccountant, "")

	rejected := env.createRequest(t, "120.50")
	env.transition(t, rejected.ID, model.TransitionValidate, model.RoleAccountant, "")
	env.transition(t, rejected.ID, model.TransitionReject, model.RoleDirector, "over budget")

	env.createRequest(t, "120.50")

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	summary, err := reports.GetSummary(t.Context(), start, end)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}

	if summary.PendingCount != 1 || summary.ValidatedCount != 1 || summary.ApprovedCount != 2 || summary.RejectedCount != 1 {
		t.Fatalf("counts = %d/%d/%d/%d (pending/validated/approved/rejected), want 1/1/2/1",
			summary.PendingCount, summary.ValidatedCount, summary.ApprovedCount, summary.RejectedCount)
	}

	// Both approved requests carry 120.50
	if summary.ApprovedTotal != "241.00" {
		t.Fatalf("ApprovedTotal = %s, want 241.00", summary.ApprovedTotal)
	}

	if len(summary.TopPrograms) != 1 {
		t.Fatalf("TopPrograms has %d entries, want 1", len(summary.TopPrograms))
	}
	top := summary.TopPrograms[0]
	if top.ProgramName != env.program.Name || top.RequestCount != 2 || top.TotalAmount != "241.00" {
		t.Fatalf("top program = %+v, want %s with 2 requests totalling 241.00", top, env.program.Name)
	}

	if len(summary.InvoiceTotals) != 1 {
		t.Fatalf("InvoiceTotals has %d entries, want 1", len(summary.InvoiceTotals))
	}
	crc := summary.InvoiceTotals[0]
	if crc.Currency != model.CurrencyCRC || crc.InvoiceCount != 1 || crc.Total != "60.25" {
		t.Fatalf("invoice totals = %+v, want 1 CRC invoice totalling 60.25", crc)
	}
}

func TestReportSummaryRespectsTimeWindow(t *testing.T) {
	env := newTestEnv(t)
	reports := service.NewReportService(env.db)

	env.createRequest(t, "10.00")

	// A window entirely in the past sees nothing
	end := time.Now().Add(-24 * time.Hour)
	start := end.Add(-24 * time.Hour)
	summary, err := reports.GetSummary(t.Context(), start, end)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if summary.PendingCount != 0 || summary.ApprovedTotal != "0.00" {
		t.Fatalf("past window: counts/total = %d/%s, want 0/0.00", summary.PendingCount, summary.ApprovedTotal)
	}
}
