package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fundecodes-backend/internal/model"
	"fundecodes-backend/internal/repository"
	ws "fundecodes-backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Sentinel errors surfaced to handlers for status-code mapping
var (
	ErrRequestNotFound = errors.New("purchase request not found")
	// ErrTransitionConflict covers both illegal transitions and lost races:
	// in either case the request is not in the status the action needs.
	ErrTransitionConflict = errors.New("transition conflict")
)

// --- DTOs ---

type CreateRequestDTO struct {
	Amount          string `json:"amount" binding:"required"`
	Concept         string `json:"concept" binding:"required"`
	ProgramID       string `json:"program_id" binding:"required"`
	Reason          string `json:"reason" binding:"required"`
	DraftInvoiceURL string `json:"draft_invoice_url"`
}

type TransitionDTO struct {
	Note string `json:"note"`
}

type RequestListFilter struct {
	Status     string
	CreatedBy  string
	HasInvoice *bool
	Page       int
	Limit      int
}

type HistoryEntryResponse struct {
	At     string `json:"at"`
	By     string `json:"by"`
	Action string `json:"action"`
	Note   string `json:"note,omitempty"`
}

type RequestResponse struct {
	ID              string                 `json:"id"`
	Amount          string                 `json:"amount"`
	Concept         string                 `json:"concept"`
	ProgramID       string                 `json:"program_id"`
	ProgramName     string                 `json:"program_name,omitempty"`
	Reason          string                 `json:"reason"`
	DraftInvoiceURL string                 `json:"draft_invoice_url,omitempty"`
	Status          string                 `json:"status"`
	CreatedBy       string                 `json:"created_by"`
	History         []HistoryEntryResponse `json:"history"`
	FinalInvoice    *InvoiceResponse       `json:"final_invoice,omitempty"`
	CreatedAt       string                 `json:"created_at"`
}

// --- Interface ---

type RequestService interface {
	CreateRequest(ctx context.Context, userID string, req CreateRequestDTO) (RequestResponse, error)
	GetRequest(ctx context.Context, id string) (RequestResponse, error)
	ListRequests(ctx context.Context, filter RequestListFilter) ([]RequestResponse, int64, error)
	GetHistory(ctx context.Context, id string) ([]HistoryEntryResponse, error)
	// Transition applies one named lifecycle action (validate, return,
	// approve, reject) on behalf of actorRole. The status check, history
	// append and audit row land in one transaction; a concurrent transition
	// loses with ErrTransitionConflict instead of silently overwriting.
	Transition(ctx context.Context, id, action, actorRole, actorUserID, note string) (RequestResponse, error)
}

type requestService struct {
	requests repository.RequestRepository
	programs repository.ProgramRepository
	audits   repository.AuditRepository
	txm      repository.TransactionManager
	hub      *ws.Hub
}

func NewRequestService(
	requests repository.RequestRepository,
	programs repository.ProgramRepository,
	audits repository.AuditRepository,
	txm repository.TransactionManager,
	hub *ws.Hub,
) RequestService {
	return &requestService{
		requests: requests,
		programs: programs,
		audits:   audits,
		txm:      txm,
		hub:      hub,
	}
}

// --- Implementation ---

func (s *requestService) CreateRequest(ctx context.Context, userID string, req CreateRequestDTO) (RequestResponse, error) {
	creatorID, err := uuid.Parse(userID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid user id: %w", err)
	}

	programID, err := uuid.Parse(req.ProgramID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid program_id: %w", err)
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid amount: %w", err)
	}
	if !amount.IsPositive() {
		return RequestResponse{}, errors.New("amount must be positive")
	}

	program, err := s.programs.FindByID(ctx, programID)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("unknown program: %w", err)
	}
	if !program.Active {
		return RequestResponse{}, fmt.Errorf("program %s is no longer active", program.Name)
	}

	request := model.PurchaseRequest{
		Amount:          amount,
		Concept:         req.Concept,
		ProgramID:       programID,
		Reason:          req.Reason,
		DraftInvoiceURL: req.DraftInvoiceURL,
		Status:          model.StatusPending,
		CreatedBy:       creatorID,
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.requests.Create(txCtx, &request); createErr != nil {
			return fmt.Errorf("failed to create request: %w", createErr)
		}

		// The ledger always opens with the creation entry
		entry := model.RequestHistory{
			RequestID: request.ID,
			Seq:       1,
			At:        time.Now(),
			By:        creatorID.String(),
			Action:    model.ActionPending,
		}
		if histErr := s.requests.AppendHistory(txCtx, &entry); histErr != nil {
			return fmt.Errorf("failed to write history: %w", histErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"concept": req.Concept,
			"amount":  amount.StringFixed(2),
			"program": program.Name,
		})
		audit := model.AuditLog{
			UserID:     &creatorID,
			Action:     model.ActionCreateRequest,
			EntityID:   request.ID.String(),
			EntityName: req.Concept,
			Details:    string(details),
		}
		if auditErr := s.audits.Log(txCtx, &audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return RequestResponse{}, err
	}

	return s.reload(ctx, request.ID)
}

func (s *requestService) GetRequest(ctx context.Context, id string) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid request id: %w", err)
	}
	return s.reload(ctx, requestID)
}

func (s *requestService) ListRequests(ctx context.Context, filter RequestListFilter) ([]RequestResponse, int64, error) {
	if filter.Status != "" && !model.ValidStatus(filter.Status) {
		return nil, 0, fmt.Errorf("unknown status %q", filter.Status)
	}

	repoFilter := repository.RequestFilter{
		Status:     filter.Status,
		HasInvoice: filter.HasInvoice,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}
	if filter.CreatedBy != "" {
		creatorID, err := uuid.Parse(filter.CreatedBy)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid created_by: %w", err)
		}
		repoFilter.CreatedBy = &creatorID
	}

	requests, total, err := s.requests.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch requests: %w", err)
	}

	result := make([]RequestResponse, 0, len(requests))
	for _, r := range requests {
		result = append(result, toRequestResponse(r))
	}
	return result, total, nil
}

func (s *requestService) GetHistory(ctx context.Context, id string) ([]HistoryEntryResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}

	if _, err := s.requests.FindByID(ctx, requestID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}

	entries, err := s.requests.HistoryByRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	result := make([]HistoryEntryResponse, 0, len(entries))
	for _, e := range entries {
		result = append(result, toHistoryResponse(e))
	}
	return result, nil
}

func (s *requestService) Transition(ctx context.Context, id, action, actorRole, actorUserID, note string) (RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return RequestResponse{}, fmt.Errorf("invalid request id: %w", err)
	}

	var actorID *uuid.UUID
	if parsed, parseErr := uuid.Parse(actorUserID); parseErr == nil {
		actorID = &parsed
	}

	var transition model.Transition
	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		request, findErr := s.requests.FindByID(txCtx, requestID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return findErr
		}

		transition, findErr = model.FindTransition(request.Status, action)
		if findErr != nil {
			return fmt.Errorf("%w: %s", ErrTransitionConflict, findErr.Error())
		}

		if actorRole != model.RoleAdmin && actorRole != transition.ActorRole {
			return fmt.Errorf("role %s may not %s a request", actorRole, action)
		}
		if transition.NoteRequired && note == "" {
			return fmt.Errorf("a note is required to %s a request", action)
		}

		// Optimistic-concurrency write: only the transition that observed the
		// current status wins. Note that return keeps the status at pending,
		// so the guard is on the observed status, not on from != to.
		moved, updErr := s.requests.UpdateStatusIfCurrent(txCtx, requestID, request.Status, transition.To)
		if updErr != nil {
			return fmt.Errorf("failed to update status: %w", updErr)
		}
		if !moved {
			return fmt.Errorf("%w: request status changed concurrently", ErrTransitionConflict)
		}

		seq, seqErr := s.requests.NextHistorySeq(txCtx, requestID)
		if seqErr != nil {
			return fmt.Errorf("failed to sequence history: %w", seqErr)
		}

		entry := model.RequestHistory{
			RequestID: requestID,
			Seq:       seq,
			At:        time.Now(),
			By:        transition.ActorRole,
			Action:    transition.HistoryAction,
			Note:      note,
		}
		if histErr := s.requests.AppendHistory(txCtx, &entry); histErr != nil {
			return fmt.Errorf("failed to write history: %w", histErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"from": request.Status,
			"to":   transition.To,
			"note": note,
		})
		audit := model.AuditLog{
			UserID:     actorID,
			Action:     auditActionFor(action),
			EntityID:   requestID.String(),
			EntityName: request.Concept,
			Details:    string(details),
		}
		if auditErr := s.audits.Log(txCtx, &audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return RequestResponse{}, err
	}

	s.notifyTransition(requestID, transition.To, transition.HistoryAction)

	return s.reload(ctx, requestID)
}

func (s *requestService) notifyTransition(requestID uuid.UUID, status, action string) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(ws.Event{
		Type:      ws.EventRequestTransition,
		RequestID: requestID.String(),
		Status:    status,
		Action:    action,
	})
}

func (s *requestService) reload(ctx context.Context, id uuid.UUID) (RequestResponse, error) {
	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RequestResponse{}, ErrRequestNotFound
		}
		return RequestResponse{}, fmt.Errorf("failed to reload request: %w", err)
	}
	return toRequestResponse(*request), nil
}

func auditActionFor(action string) string {
	switch action {
	case model.TransitionValidate:
		return model.ActionValidateRequest
	case model.TransitionReturn:
		return model.ActionReturnRequest
	case model.TransitionApprove:
		return model.ActionApproveRequest
	case model.TransitionReject:
		return model.ActionRejectRequest
	}
	return action
}

// --- Helpers ---

func toRequestResponse(r model.PurchaseRequest) RequestResponse {
	resp := RequestResponse{
		ID:              r.ID.String(),
		Amount:          r.Amount.StringFixed(2),
		Concept:         r.Concept,
		ProgramID:       r.ProgramID.String(),
		Reason:          r.Reason,
		DraftInvoiceURL: r.DraftInvoiceURL,
		Status:          r.Status,
		CreatedBy:       r.CreatedBy.String(),
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}

	if r.Program != nil {
		resp.ProgramName = r.Program.Name
	}

	resp.History = make([]HistoryEntryResponse, 0, len(r.History))
	for _, e := range r.History {
		resp.History = append(resp.History, toHistoryResponse(e))
	}

	if r.FinalInvoice != nil {
		inv := toInvoiceResponse(*r.FinalInvoice)
		resp.FinalInvoice = &inv
	}

	return resp
}

func toHistoryResponse(e model.RequestHistory) HistoryEntryResponse {
	return HistoryEntryResponse{
		At:     e.At.Format(time.RFC3339),
		By:     e.By,
		Action: e.Action,
		Note:   e.Note,
	}
}
