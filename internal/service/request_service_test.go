package service_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"fundecodes-backend/internal/model"
	"fundecodes-backend/internal/repository"
	"fundecodes-backend/internal/service"
)

func TestCreateRequestOpensLedgerWithPendingEntry(t *testing.T) {
	env := newTestEnv(t)

	req := env.createRequest(t, "1500.00")

	if req.Status != model.StatusPending {
		t.Fatalf("new request status = %s, want %s", req.Status, model.StatusPending)
	}
	if len(req.History) != 1 {
		t.Fatalf("new request history has %d entries, want 1", len(req.History))
	}
	if req.History[0].Action != model.ActionPending {
		t.Fatalf("first history action = %s, want %s", req.History[0].Action, model.ActionPending)
	}
	if req.History[0].By != env.requester.ID.String() {
		t.Fatalf("first history entry recorded by %s, want creator %s", req.History[0].By, env.requester.ID)
	}
}

func TestCreateRequestRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		req  service.CreateRequestDTO
	}{
		{"zero amount", service.CreateRequestDTO{Amount: "0", Concept: "x", ProgramID: env.program.ID.String(), Reason: "y"}},
		{"negative amount", service.CreateRequestDTO{Amount: "-10", Concept: "x", ProgramID: env.program.ID.String(), Reason: "y"}},
		{"garbage amount", service.CreateRequestDTO{Amount: "abc", Concept: "x", ProgramID: env.program.ID.String(), Reason: "y"}},
		{"unknown program", service.CreateRequestDTO{Amount: "10", Concept: "x", ProgramID: "3b1f8f64-0000-0000-0000-000000000000", Reason: "y"}},
	}

	for _, c := range cases {
		if _, err := env.requests.CreateRequest(t.Context(), env.requester.ID.String(), c.req); err == nil {
			t.Fatalf("%s: expected error, got nil", c.name)
		}
	}
}

func TestCreateRequestRejectsInactiveProgram(t *testing.T) {
	env := newTestEnv(t)

	inactive := model.Program{Name: "Programa Cerrado", Active: false}
	if err := env.db.Create(&inactive).Error; err != nil {
		t.Fatalf("seed inactive program: %v", err)
	}

	_, err := env.requests.CreateRequest(t.Context(), env.requester.ID.String(), service.CreateRequestDTO{
		Amount:    "100",
		Concept:   "x",
		ProgramID: inactive.ID.String(),
		Reason:    "y",
	})
	if err == nil {
		t.Fatal("expected error for inactive program, got nil")
	}
}

func TestFullApprovalFlowBuildsOrderedLedger(t *testing.T) {
	env := newTestEnv(t)
	req := env.createRequest(t, "250.75")

	res := env.transition(t, req.ID, model.TransitionValidate, model.RoleAccountant, "")
	if res.Status != model.StatusValidated {
		t.Fatalf("after validate: status = %s, want %s", res.Status, model.StatusValidated)
	}

	res = env.transition(t, req.ID, model.TransitionApprove, model.RoleDirector, "within budget")
	if res.Status != model.StatusApproved {
		t.Fatalf("after approve: status = %s, want %s", res.Status, model.StatusApproved)
	}

	wantActions := []string{model.ActionPending, model.ActionValidated, model.ActionApproved}
	if len(res.History) != len(wantActions) {
		t.Fatalf("history has %d entries, want %d", len(res.History), len(wantActions))
	}
	for i, want := range wantActions {
		if res.History[i].Action != want {
			t.Fatalf("history[%d].Action = %s, want %s", i, res.History[i].Action, want)
		}
	}
	if res.History[1].By != model.ActorAccountant {
		t.Fatalf("validate entry recorded by %s, want %s", res.History[1].By, model.ActorAccountant)
	}
	if res.History[2].By != model.ActorDirector {
		t.Fatalf("approve entry recorded by %s, want %s", res.History[2].By, model.ActorDirector)
	}
}

func TestReturnRequiresNoteAndKeepsLedger(t *testing.T) {
	env := newTestEnv(t)
	req := env.createRequest(t, "80.00")

	// Return without a note must fail and leave no trace
	_, err := env.requests.Transition(t.Context(), req.ID, model.TransitionReturn, model.RoleAccountant, env.requester.ID.String(), "")
	if err == nil {
		t.Fatal("return without note: expected error, got nil")
	}

	res := env.transition(t, req.ID, model.TransitionReturn, model.RoleAccountant, "missing quote attachment")
	if res.Status != model.StatusPending {
		t.Fatalf("after return: status = %s, want %s", res.Status, model.StatusPending)
	}
	if len(res.History) != 2 {
		t.Fatalf("history has %d entries, want 2", len(res.History))
	}
	if res.History[1].Action != model.ActionReturned {
		t.Fatalf("history[1].Action = %s, want %s", res.History[1].Action, model.ActionReturned)
	}
	if res.History[1].Note != "missing quote attachment" {
		t.Fatalf("history[1].Note = %q, want the correction note", res.History[1].Note)
	}

	// Returned request can go around the loop again
	res = env.transition(t, req.ID, model.TransitionValidate, model.RoleAccountant, "")
	res = env.transition(t, res.ID, model.TransitionReturn, model.RoleAccountant, "wrong program")
	res = env.transition(t, res.ID, model.TransitionValidate, model.RoleAccountant, "")
	res = env.transition(t, res.ID, model.TransitionReject, model.RoleDirector, "budget exhausted")
	if res.Status != model.StatusRejected {
		t.Fatalf("final status = %s, want %s", res.Status, model.StatusRejected)
	}
	if len(res.History) != 6 {
		t.Fatalf("history has %d entries, want 6", len(res.History))
	}
	for _, e := range res.History {
		if e.At == "" || e.Action == "" || e.By == "" {
			t.Fatalf("history entry %+v missing fields", e)
		}
	}
}

func TestIllegalTransitionsConflict(t *testing.T) {
	env := newTestEnv(t)
	req := env.createRequest(t, "40.00")

	// approve/reject straight from pending
	for _, action := range []string{model.TransitionApprove, model.TransitionReject} {
		_, err := env.requests.Transition(t.Context(), req.ID, action, model.RoleDirector, env.requester.ID.String(), "")
		if !errors.Is(err, service.ErrTransitionConflict) {
			t.Fatalf("%s from pending: err = %v, want ErrTransitionConflict", action, err)
		}
	}

	env.transition(t, req.ID, model.TransitionValidate, model.RoleAccountant, "")
	env.transition(t, req.ID, model.TransitionApprove, model.RoleDirector, "")

	// Terminal: nothing moves an approved request
	for _, action := range []string{model.TransitionValidate, model.TransitionReturn, model.TransitionApprove, model.TransitionReject} {
		_, err := env.requests.Transition(t.Context(), req.ID, action, model.RoleAdmin, env.requester.ID.String(), "note")
		if !errors.Is(err, service.ErrTransitionConflict) {
			t.Fatalf("%s from approved: err = %v, want ErrTransitionConflict", action, err)
		}
	}

	// The failed attempts must not have touched the ledger
	history, err := env.requests.GetHistory(t.Context(), req.ID)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history has %d entries after failed transitions, want 3", len(history))
	}
}

func TestTransitionEnforcesActorRole(t *testing.T) {
	env := newTestEnv(t)
	req := env.createRequest(t, "10.00")

	// A director cannot validate, a requester cannot do anything
	if _, err := env.requests.Transition(t.Context(), req.ID, model.TransitionValidate, model.RoleDirector, env.requester.ID.String(), ""); err == nil {
		t.Fatal("director validate: expected error, got nil")
	}
	if _, err := env.requests.Transition(t.Context(), req.ID, model.TransitionValidate, model.RoleRequester, env.requester.ID.String(), ""); err == nil {
		t.Fatal("requester validate: expected error, got nil")
	}

	// Admin bypasses the role gate
	res, err := env.requests.Transition(t.Context(), req.ID, model.TransitionValidate, model.RoleAdmin, env.requester.ID.String(), "")
	if err != nil {
		t.Fatalf("admin validate: %v", err)
	}
	if res.Status != model.StatusValidated {
		t.Fatalf("admin validate: status = %s, want %s", res.Status, model.StatusValidated)
	}
}

func TestTransitionUnknownRequest(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.requests.Transition(t.Context(), "3b1f8f64-0000-0000-0000-000000000000", model.TransitionValidate, model.RoleAccountant, env.requester.ID.String(), "")
	if !errors.Is(err, service.ErrRequestNotFound) {
		t.Fatalf("err = %v, want ErrRequestNotFound", err)
	}
}

func TestListRequestsFilters(t *testing.T) {
	env := newTestEnv(t)

	first := env.createRequest(t, "100.00")
	second := env.createRequest(t, "200.00")
	env.createRequest(t, "300.00")

	env.transition(t, first.ID, model.TransitionValidate, model.RoleAccountant, "")
	env.transition(t, second.ID, model.TransitionValidate, model.RoleAccountant, "")
	env.transition(t, second.ID, model.TransitionApprove, model.RoleDirector, "")

	// By status
	validated, total, err := env.requests.ListRequests(t.Context(), service.RequestListFilter{Status: model.StatusValidated})
	if err != nil {
		t.Fatalf("ListRequests(validated): %v", err)
	}
	if total != 1 || len(validated) != 1 || validated[0].ID != first.ID {
		t.Fatalf("validated filter returned %d/%d, want exactly the first request", len(validated), total)
	}

	// By creator
	_, total, err = env.requests.ListRequests(t.Context(), service.RequestListFilter{CreatedBy: env.requester.ID.String()})
	if err != nil {
		t.Fatalf("ListRequests(created_by): %v", err)
	}
	if total != 3 {
		t.Fatalf("created_by filter total = %d, want 3", total)
	}

	// Invoice presence: attach to the approved one and filter both ways
	_, err = env.invoices.AttachInvoice(t.Context(), second.ID, env.requester.ID.String(), service.AttachInvoiceDTO{
		Number:   "FAC-001",
		Date:     "2026-08-15",
		Total:    "200.00",
		Currency: model.CurrencyCRC,
	})
	if err != nil {
		t.Fatalf("AttachInvoice: %v", err)
	}

	yes := true
	with, total, err := env.requests.ListRequests(t.Context(), service.RequestListFilter{HasInvoice: &yes})
	if err != nil {
		t.Fatalf("ListRequests(has_invoice=true): %v", err)
	}
	if total != 1 || len(with) != 1 || with[0].ID != second.ID {
		t.Fatalf("has_invoice=true returned %d/%d, want exactly the invoiced request", len(with), total)
	}

	no := false
	_, total, err = env.requests.ListRequests(t.Context(), service.RequestListFilter{HasInvoice: &no})
	if err != nil {
		t.Fatalf("ListRequests(has_invoice=false): %v", err)
	}
	if total != 2 {
		t.Fatalf("has_invoice=false total = %d, want 2", total)
	}

	// Unknown status is rejected instead of silently ignored
	if _, _, err := env.requests.ListRequests(t.Context(), service.RequestListFilter{Status: "archived"}); err == nil {
		t.Fatal("unknown status filter: expected error, got nil")
	}
}

func TestListRequestsPagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 5; i++ {
		env.createRequest(t, "10.00")
	}

	page1, total, err := env.requests.ListRequests(t.Context(), service.RequestListFilter{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("ListRequests page 1: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(page1) != 2 {
		t.Fatalf("page 1 has %d items, want 2", len(page1))
	}

	page3, _, err := env.requests.ListRequests(t.Context(), service.RequestListFilter{Page: 3, Limit: 2})
	if err != nil {
		t.Fatalf("ListRequests page 3: %v", err)
	}
	if len(page3) != 1 {
		t.Fatalf("page 3 has %d items, want 1", len(page3))
	}
}

func TestUpdateStatusIfCurrentOnlyMovesObservedStatus(t *testing.T) {
	env := newTestEnv(t)
	req := env.createRequest(t, "20.00")
	id, err := uuid.Parse(req.ID)
	if err != nil {
		t.Fatalf("parse request id: %v", err)
	}

	repo := repository.NewRequestRepository(env.db)

	moved, err := repo.UpdateStatusIfCurrent(t.Context(), id, model.StatusPending, model.StatusValidated)
	if err != nil {
		t.Fatalf("UpdateStatusIfCurrent: %v", err)
	}
	if !moved {
		t.Fatal("expected the first conditional update to win")
	}

	// Same observed status again: the row moved on, so this must lose
	moved, err = repo.UpdateStatusIfCurrent(t.Context(), id, model.StatusPending, model.StatusValidated)
	if err != nil {
		t.Fatalf("UpdateStatusIfCurrent: %v", err)
	}
	if moved {
		t.Fatal("stale conditional update should not win")
	}
}

func TestConcurrentTransitionLosesCleanly(t *testing.T) {
	env := newTestEnv(t)
	req := env.createRequest(t, "55.00")
	env.transition(t, req.ID, model.TransitionValidate, model.RoleAccountant, "")

	// Simulate the loser of a race: the status moved under it after its read
	var raw model.PurchaseRequest
	if err := env.db.First(&raw, "id = ?", req.ID).Error; err != nil {
		t.Fatalf("load raw request: %v", err)
	}
	if err := env.db.Model(&raw).Update("status", model.StatusApproved).Error; err != nil {
		t.Fatalf("force status: %v", err)
	}

	_, err := env.requests.Transition(t.Context(), req.ID, model.TransitionReject, model.RoleDirector, env.requester.ID.String(), "")
	if !errors.Is(err, service.ErrTransitionConflict) {
		t.Fatalf("err = %v, want ErrTransitionConflict", err)
	}
}

func TestTransitionWritesAuditTrail(t *testing.T) {
	env := newTestEnv(t)
	req := env.createRequest(t, "75.00")
	env.transition(t, req.ID, model.TransitionValidate, model.RoleAccountant, "")

	var actions []string
	if err := env.db.Model(&model.AuditLog{}).Order("created_at ASC").Pluck("action", &actions).Error; err != nil {
		t.Fatalf("load audit actions: %v", err)
	}
	want := map[string]bool{model.ActionCreateRequest: false, model.ActionValidateRequest: false}
	for _, a := range actions {
		if _, ok := want[a]; ok {
			want[a] = true
		}
	}
	for action, seen := range want {
		if !seen {
			t.Fatalf("audit log missing %s", action)
		}
	}
}
