package service_test

import (
	"errors"
	"testing"

	"fundecodes-backend/internal/model"
	"fundecodes-backend/internal/service"
)

func approvedRequest(t *testing.T, env *testEnv) service.RequestResponse {
	t.Helper()
	req := env.createRequest(t, "120.50")
	env.transition(t, req.ID, model.TransitionValidate, model.RoleAccountant, "")
	return env.transition(t, req.ID, model.TransitionApprove, model.RoleDirector, "")
}

func TestAttachInvoiceToApprovedRequest(t *testing.T) {
	env := newTestEnv(t)
	req := approvedRequest(t, env)

	inv, err := env.invoices.AttachInvoice(t.Context(), req.ID, env.requester.ID.String(), service.AttachInvoiceDTO{
		Number:   "FAC-2026-044",
		Date:     "2026-08-20",
		Total:    "120.50",
		Currency: model.CurrencyUSD,
		URL:      "https://files.example.org/fac-2026-044.pdf",
	})
	if err != nil {
		t.Fatalf("AttachInvoice: %v", err)
	}
	if inv.RequestID != req.ID {
		t.Fatalf("invoice.RequestID = %s, want %s", inv.RequestID, req.ID)
	}
	if inv.Total != "120.50" || inv.Currency != model.CurrencyUSD {
		t.Fatalf("invoice total/currency = %s %s, want 120.50 USD", inv.Total, inv.Currency)
	}
	if !inv.IsValid {
		t.Fatal("attached invoice should be marked valid")
	}

	// The invoice rides along on the request and the ledger records the attach
	full, err := env.requests.GetRequest(t.Context(), req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if full.FinalInvoice == nil {
		t.Fatal("request response missing final invoice")
	}
	if full.Status != model.StatusApproved {
		t.Fatalf("status after attach = %s, want still %s", full.Status, model.StatusApproved)
	}
	last := full.History[len(full.History)-1]
	if last.Action != model.ActionInvoiceAttached {
		t.Fatalf("last ledger action = %s, want %s", last.Action, model.ActionInvoiceAttached)
	}
	if last.By != model.ActorSystem {
		t.Fatalf("attach ledger entry recorded by %s, want %s", last.By, model.ActorSystem)
	}
}

func TestAttachInvoiceRequiresApprovedStatus(t *testing.T) {
	env := newTestEnv(t)

	dto := service.AttachInvoiceDTO{Number: "FAC-1", Date: "2026-08-01", Total: "5.00", Currency: model.CurrencyCRC}

	pending := env.createRequest(t, "5.00")
	if _, err := env.invoices.AttachInvoice(t.Context(), pending.ID, env.requester.ID.String(), dto); !errors.Is(err, service.ErrTransitionConflict) {
		t.Fatalf("attach to pending: err = %v, want ErrTransitionConflict", err)
	}

	validated := env.createRequest(t, "5.00")
	env.transition(t, validated.ID, model.TransitionValidate, model.RoleAccountant, "")
	if _, err := env.invoices.AttachInvoice(t.Context(), validated.ID, env.requester.ID.String(), dto); !errors.Is(err, service.ErrTransitionConflict) {
		t.Fatalf("attach to validated: err = %v, want ErrTransitionConflict", err)
	}

	rejected := env.createRequest(t, "5.00")
	env.transition(t, rejected.ID, model.TransitionValidate, model.RoleAccountant, "")
	env.transition(t, rejected.ID, model.TransitionReject, model.RoleDirector, "")
	if _, err := env.invoices.AttachInvoice(t.Context(), rejected.ID, env.requester.ID.String(), dto); !errors.Is(err, service.ErrTransitionConflict) {
		t.Fatalf("attach to rejected: err = %v, want ErrTransitionConflict", err)
	}
}

func TestAttachInvoiceTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	req := approvedRequest(t, env)

	dto := service.AttachInvoiceDTO{Number: "FAC-1", Date: "2026-08-01", Total: "10.00", Currency: model.CurrencyCRC}
	if _, err := env.invoices.AttachInvoice(t.Context(), req.ID, env.requester.ID.String(), dto); err != nil {
		t.Fatalf("first attach: %v", err)
	}

	dto.Number = "FAC-2"
	_, err := env.invoices.AttachInvoice(t.Context(), req.ID, env.requester.ID.String(), dto)
	if !errors.Is(err, service.ErrInvoiceAlreadyAttached) {
		t.Fatalf("second attach: err = %v, want ErrInvoiceAlreadyAttached", err)
	}
}

func TestAttachInvoiceRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	req := approvedRequest(t, env)

	cases := []struct {
		name string
		dto  service.AttachInvoiceDTO
	}{
		{"zero total", service.AttachInvoiceDTO{Number: "F", Date: "2026-08-01", Total: "0", Currency: model.CurrencyCRC}},
		{"negative total", service.AttachInvoiceDTO{Number: "F", Date: "2026-08-01", Total: "-1", Currency: model.CurrencyCRC}},
		{"bad currency", service.AttachInvoiceDTO{Number: "F", Date: "2026-08-01", Total: "1", Currency: "EUR"}},
		{"bad date", service.AttachInvoiceDTO{Number: "F", Date: "20/08/2026", Total: "1", Currency: model.CurrencyCRC}},
	}
	for _, c := range cases {
		if _, err := env.invoices.AttachInvoice(t.Context(), req.ID, env.requester.ID.String(), c.dto); err == nil {
			t.Fatalf("%s: expected error, got nil", c.name)
		}
	}
}

func TestDetachInvoiceIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	req := approvedRequest(t, env)

	dto := service.AttachInvoiceDTO{Number: "FAC-9", Date: "2026-08-01", Total: "10.00", Currency: model.CurrencyCRC}
	if _, err := env.invoices.AttachInvoice(t.Context(), req.ID, env.requester.ID.String(), dto); err != nil {
		t.Fatalf("attach: %v", err)
	}

	if err := env.invoices.DetachInvoice(t.Context(), req.ID, env.requester.ID.String()); err != nil {
		t.Fatalf("first detach: %v", err)
	}

	full, err := env.requests.GetRequest(t.Context(), req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if full.FinalInvoice != nil {
		t.Fatal("invoice still attached after detach")
	}
	last := full.History[len(full.History)-1]
	if last.Action != model.ActionInvoiceRemoved {
		t.Fatalf("last ledger action = %s, want %s", last.Action, model.ActionInvoiceRemoved)
	}
	ledgerLen := len(full.History)

	// Second detach: no-op success, no extra ledger entry
	if err := env.invoices.DetachInvoice(t.Context(), req.ID, env.requester.ID.String()); err != nil {
		t.Fatalf("second detach: %v", err)
	}
	history, err := env.requests.GetHistory(t.Context(), req.ID)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(history) != ledgerLen {
		t.Fatalf("ledger grew from %d to %d on idempotent detach", ledgerLen, len(history))
	}

	// Re-attach after detach is allowed while the request stays approved
	if _, err := env.invoices.AttachInvoice(t.Context(), req.ID, env.requester.ID.String(), dto); err != nil {
		t.Fatalf("re-attach: %v", err)
	}
}

func TestDetachInvoiceUnknownRequest(t *testing.T) {
	env := newTestEnv(t)

	err := env.invoices.DetachInvoice(t.Context(), "3b1f8f64-0000-0000-0000-000000000000", env.requester.ID.String())
	if !errors.Is(err, service.ErrRequestNotFound) {
		t.Fatalf("err = %v, want ErrRequestNotFound", err)
	}
}

func TestListInvoicesJoinsRequests(t *testing.T) {
	env := newTestEnv(t)

	first := approvedRequest(t, env)
	second := approvedRequest(t, env)

	if _, err := env.invoices.AttachInvoice(t.Context(), first.ID, env.requester.ID.String(), service.AttachInvoiceDTO{
		Number: "FAC-10", Date: "2026-08-01", Total: "10.00", Currency: model.CurrencyCRC,
	}); err != nil {
		t.Fatalf("attach first: %v", err)
	}
	if _, err := env.invoices.AttachInvoice(t.Context(), second.ID, env.requester.ID.String(), service.AttachInvoiceDTO{
		Number: "FAC-11", Date: "2026-08-02", Total: "20.00", Currency: model.CurrencyUSD,
	}); err != nil {
		t.Fatalf("attach second: %v", err)
	}

	all, total, err := env.invoices.ListInvoices(t.Context(), "", 1, 20)
	if err != nil {
		t.Fatalf("ListInvoices: %v", err)
	}
	if total != 2 || len(all) != 2 {
		t.Fatalf("ListInvoices returned %d/%d, want 2", len(all), total)
	}
	for _, inv := range all {
		if inv.Request == nil {
			t.Fatalf("invoice %s missing joined request", inv.Number)
		}
	}

	usd, total, err := env.invoices.ListInvoices(t.Context(), model.CurrencyUSD, 1, 20)
	if err != nil {
		t.Fatalf("ListInvoices(USD): %v", err)
	}
	if total != 1 || len(usd) != 1 || usd[0].Number != "FAC-11" {
		t.Fatalf("USD filter returned %d/%d, want exactly FAC-11", len(usd), total)
	}

	if _, _, err := env.invoices.ListInvoices(t.Context(), "EUR", 1, 20); err == nil {
		t.Fatal("unknown currency: expected error, got nil")
	}
}
