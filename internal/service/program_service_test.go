package service_test

import (
	"testing"

	"fundecodes-backend/internal/model"
	"fundecodes-backend/internal/repository"
	"fundecodes-backend/internal/service"
)

func newProgramService(t *testing.T, env *testEnv) service.ProgramService {
	t.Helper()
	return service.NewProgramService(
		repository.NewProgramRepository(env.db),
		repository.NewAuditRepository(env.db),
	)
}

func TestProgramCRUDAndDeactivation(t *testing.T) {
	env := newTestEnv(t)
	programs := newProgramService(t, env)
	actor := env.requester.ID.String()

	created, err := programs.CreateProgram(t.Context(), actor, service.CreateProgramRequest{
		Name:        "Educación Ambiental",
		Description: "School outreach",
	})
	if err != nil {
		t.Fatalf("CreateProgram: %v", err)
	}
	if !created.Active {
		t.Fatal("new program should be active")
	}

	// Duplicate name is rejected
	if _, err := programs.CreateProgram(t.Context(), actor, service.CreateProgramRequest{Name: "Educación Ambiental"}); err == nil {
		t.Fatal("duplicate program name: expected error, got nil")
	}

	// Delete deactivates instead of removing
	if err := programs.DeleteProgram(t.Context(), created.ID, actor); err != nil {
		t.Fatalf("DeleteProgram: %v", err)
	}
	got, err := programs.GetProgram(t.Context(), created.ID)
	if err != nil {
		t.Fatalf("GetProgram after delete: %v", err)
	}
	if got.Active {
		t.Fatal("deleted program still active")
	}

	// Active-only listing hides it, includeInactive shows it
	activeOnly, err := programs.ListPrograms(t.Context(), false)
	if err != nil {
		t.Fatalf("ListPrograms(active): %v", err)
	}
	for _, p := range activeOnly {
		if p.ID == created.ID {
			t.Fatal("deactivated program listed as active")
		}
	}
	all, err := programs.ListPrograms(t.Context(), true)
	if err != nil {
		t.Fatalf("ListPrograms(all): %v", err)
	}
	found := false
	for _, p := range all {
		if p.ID == created.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("deactivated program missing from full listing")
	}
}

func TestDeactivatedProgramBlocksNewRequestsOnly(t *testing.T) {
	env := newTestEnv(t)
	programs := newProgramService(t, env)
	actor := env.requester.ID.String()

	// Request created while the program was active
	req := env.createRequest(t, "30.00")

	if err := programs.DeleteProgram(t.Context(), env.program.ID.String(), actor); err != nil {
		t.Fatalf("DeleteProgram: %v", err)
	}

	// New requests against the deactivated program fail
	_, err := env.requests.CreateRequest(t.Context(), actor, service.CreateRequestDTO{
		Amount:    "10.00",
		Concept:   "x",
		ProgramID: env.program.ID.String(),
		Reason:    "y",
	})
	if err == nil {
		t.Fatal("expected error creating request against deactivated program")
	}

	// The existing request still resolves its program and keeps moving
	res := env.transition(t, req.ID, model.TransitionValidate, model.RoleAccountant, "")
	if res.ProgramName == "" {
		t.Fatal("existing request lost its program name after deactivation")
	}
}
