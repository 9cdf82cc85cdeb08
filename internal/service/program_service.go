package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fundecodes-backend/internal/model"
	"fundecodes-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateProgramRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type UpdateProgramRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

type ProgramResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at"`
}

// --- Interface ---

type ProgramService interface {
	ListPrograms(ctx context.Context, includeInactive bool) ([]ProgramResponse, error)
	GetProgram(ctx context.Context, id string) (*ProgramResponse, error)
	CreateProgram(ctx context.Context, actorUserID string, req CreateProgramRequest) (*ProgramResponse, error)
	UpdateProgram(ctx context.Context, id, actorUserID string, req UpdateProgramRequest) (*ProgramResponse, error)
	// DeleteProgram deactivates rather than removes: existing requests keep a
	// resolvable budget line.
	DeleteProgram(ctx context.Context, id, actorUserID string) error
}

type programService struct {
	repo   repository.ProgramRepository
	audits repository.AuditRepository
}

func NewProgramService(repo repository.ProgramRepository, audits repository.AuditRepository) ProgramService {
	return &programService{repo: repo, audits: audits}
}

// --- Implementation ---

func (s *programService) ListPrograms(ctx context.Context, includeInactive bool) ([]ProgramResponse, error) {
	programs, err := s.repo.List(ctx, !includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch programs: %w", err)
	}

	res := make([]ProgramResponse, 0, len(programs))
	for _, p := range programs {
		res = append(res, toProgramResponse(p))
	}
	return res, nil
}

func (s *programService) GetProgram(ctx context.Context, id string) (*ProgramResponse, error) {
	programID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid program id: %w", err)
	}

	program, err := s.repo.FindByID(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("program not found: %w", err)
	}

	resp := toProgramResponse(*program)
	return &resp, nil
}

func (s *programService) CreateProgram(ctx context.Context, actorUserID string, req CreateProgramRequest) (*ProgramResponse, error) {
	if _, err := s.repo.FindByName(ctx, req.Name); err == nil {
		return nil, fmt.Errorf("program %q already exists", req.Name)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	program := model.Program{
		Name:        req.Name,
		Description: req.Description,
		Active:      true,
	}
	if err := s.repo.Create(ctx, &program); err != nil {
		return nil, fmt.Errorf("failed to create program: %w", err)
	}

	s.logAudit(ctx, actorUserID, model.ActionCreateProgram, program)

	resp := toProgramResponse(program)
	return &resp, nil
}

func (s *programService) UpdateProgram(ctx context.Context, id, actorUserID string, req UpdateProgramRequest) (*ProgramResponse, error) {
	programID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid program id: %w", err)
	}

	program, err := s.repo.FindByID(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("program not found: %w", err)
	}

	if req.Name != "" {
		program.Name = req.Name
	}
	if req.Description != "" {
		program.Description = req.Description
	}
	if req.Active != nil {
		program.Active = *req.Active
	}

	if err := s.repo.Update(ctx, program); err != nil {
		return nil, fmt.Errorf("failed to update program: %w", err)
	}

	s.logAudit(ctx, actorUserID, model.ActionUpdateProgram, *program)

	resp := toProgramResponse(*program)
	return &resp, nil
}

func (s *programService) DeleteProgram(ctx context.Context, id, actorUserID string) error {
	programID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid program id: %w", err)
	}

	program, err := s.repo.FindByID(ctx, programID)
	if err != nil {
		return fmt.Errorf("program not found: %w", err)
	}

	program.Active = false
	if err := s.repo.Update(ctx, program); err != nil {
		return fmt.Errorf("failed to deactivate program: %w", err)
	}

	s.logAudit(ctx, actorUserID, model.ActionDeleteProgram, *program)
	return nil
}

func (s *programService) logAudit(ctx context.Context, actorUserID, action string, program model.Program) {
	var actorID *uuid.UUID
	if parsed, err := uuid.Parse(actorUserID); err == nil {
		actorID = &parsed
	}
	details, _ := json.Marshal(map[string]interface{}{
		"name":   program.Name,
		"active": program.Active,
	})
	_ = s.audits.Log(ctx, &model.AuditLog{
		UserID:     actorID,
		Action:     action,
		EntityID:   program.ID.String(),
		EntityName: program.Name,
		Details:    string(details),
	})
}

func toProgramResponse(p model.Program) ProgramResponse {
	return ProgramResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}
