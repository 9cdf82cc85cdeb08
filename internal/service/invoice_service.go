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

var ErrInvoiceAlreadyAttached = errors.New("request already has a final invoice")

// --- DTOs ---

type AttachInvoiceDTO struct {
	Number   string `json:"number" binding:"required"`
	Date     string `json:"date" binding:"required"` // YYYY-MM-DD
	Total    string `json:"total" binding:"required"`
	Currency string `json:"currency" binding:"required,oneof=CRC USD"`
	URL      string `json:"url"`
}

type InvoiceResponse struct {
	ID        string           `json:"id"`
	RequestID string           `json:"request_id"`
	Number    string           `json:"number"`
	Date      string           `json:"date"`
	Total     string           `json:"total"`
	Currency  string           `json:"currency"`
	URL       string           `json:"url,omitempty"`
	IsValid   bool             `json:"is_valid"`
	Request   *RequestResponse `json:"request,omitempty"`
	CreatedAt string           `json:"created_at"`
}

// --- Interface ---

type InvoiceService interface {
	// AttachInvoice creates the final invoice for an approved request and
	// appends an invoice_attached ledger entry on behalf of the system actor.
	AttachInvoice(ctx context.Context, requestID, actorUserID string, req AttachInvoiceDTO) (InvoiceResponse, error)
	// DetachInvoice removes the final invoice if one exists. Idempotent: a
	// second call is a no-op success. The request's ledger keeps every entry
	// recorded while the invoice existed.
	DetachInvoice(ctx context.Context, requestID, actorUserID string) error
	// ListInvoices is a read-side projection: every attached invoice joined
	// with its owning request.
	ListInvoices(ctx context.Context, currency string, page, limit int) ([]InvoiceResponse, int64, error)
}

type invoiceService struct {
	invoices repository.InvoiceRepository
	requests repository.RequestRepository
	audits   repository.AuditRepository
	txm      repository.TransactionManager
	hub      *ws.Hub
}

func NewInvoiceService(
	invoices repository.InvoiceRepository,
	requests repository.RequestRepository,
	audits repository.AuditRepository,
	txm repository.TransactionManager,
	hub *ws.Hub,
) InvoiceService {
	return &invoiceService{
		invoices: invoices,
		requests: requests,
		audits:   audits,
		txm:      txm,
		hub:      hub,
	}
}

// --- Implementation ---

func (s *invoiceService) AttachInvoice(ctx context.Context, requestID, actorUserID string, req AttachInvoiceDTO) (InvoiceResponse, error) {
	reqID, err := uuid.Parse(requestID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid request id: %w", err)
	}

	total, err := decimal.NewFromString(req.Total)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid total: %w", err)
	}
	if !total.IsPositive() {
		return InvoiceResponse{}, errors.New("total must be positive")
	}

	if !model.ValidCurrency(req.Currency) {
		return InvoiceResponse{}, fmt.Errorf("unsupported currency %q", req.Currency)
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invalid date, expected YYYY-MM-DD: %w", err)
	}

	var actorID *uuid.UUID
	if parsed, parseErr := uuid.Parse(actorUserID); parseErr == nil {
		actorID = &parsed
	}

	invoice := model.FinalInvoice{
		RequestID: reqID,
		Number:    req.Number,
		Date:      date,
		Total:     total,
		Currency:  req.Currency,
		URL:       req.URL,
		IsValid:   true, // placeholder until an invoice validation pipeline exists
	}

	err = s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		request, findErr := s.requests.FindByID(txCtx, reqID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return findErr
		}

		if request.Status != model.StatusApproved {
			return fmt.Errorf("%w: cannot attach an invoice to a %s request", ErrTransitionConflict, request.Status)
		}
		if request.FinalInvoice != nil {
			return ErrInvoiceAlreadyAttached
		}

		if createErr := s.invoices.Create(txCtx, &invoice); createErr != nil {
			return fmt.Errorf("failed to attach invoice: %w", createErr)
		}

		seq, seqErr := s.requests.NextHistorySeq(txCtx, reqID)
		if seqErr != nil {
			return fmt.Errorf("failed to sequence history: %w", seqErr)
		}
		entry := model.RequestHistory{
			RequestID: reqID,
			Seq:       seq,
			At:        time.Now(),
			By:        model.ActorSystem,
			Action:    model.ActionInvoiceAttached,
			Note:      req.Number,
		}
		if histErr := s.requests.AppendHistory(txCtx, &entry); histErr != nil {
			return fmt.Errorf("failed to write history: %w", histErr)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"number":   req.Number,
			"total":    total.StringFixed(2),
			"currency": req.Currency,
		})
		audit := model.AuditLog{
			UserID:     actorID,
			Action:     model.ActionAttachInvoice,
			EntityID:   reqID.String(),
			EntityName: req.Number,
			Details:    string(details),
		}
		if auditErr := s.audits.Log(txCtx, &audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	if s.hub != nil {
		s.hub.Publish(ws.Event{
			Type:      ws.EventRequestTransition,
			RequestID: reqID.String(),
			Status:    model.StatusApproved,
			Action:    model.ActionInvoiceAttached,
		})
	}

	// The attach is a hard failure if the invoice row cannot be read back
	created, err := s.invoices.FindByRequestID(ctx, reqID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("invoice not persisted: %w", err)
	}

	return toInvoiceResponse(*created), nil
}

func (s *invoiceService) DetachInvoice(ctx context.Context, requestID, actorUserID string) error {
	reqID, err := uuid.Parse(requestID)
	if err != nil {
		return fmt.Errorf("invalid request id: %w", err)
	}

	var actorID *uuid.UUID
	if parsed, parseErr := uuid.Parse(actorUserID); parseErr == nil {
		actorID = &parsed
	}

	return s.txm.RunInTx(ctx, func(txCtx context.Context) error {
		if _, findErr := s.requests.FindByID(txCtx, reqID); findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return findErr
		}

		removed, delErr := s.invoices.DeleteByRequestID(txCtx, reqID)
		if delErr != nil {
			return fmt.Errorf("failed to detach invoice: %w", delErr)
		}
		if removed == 0 {
			// Nothing attached: detach is idempotent, no ledger entry either
			return nil
		}

		seq, seqErr := s.requests.NextHistorySeq(txCtx, reqID)
		if seqErr != nil {
			return fmt.Errorf("failed to sequence history: %w", seqErr)
		}
		entry := model.RequestHistory{
			RequestID: reqID,
			Seq:       seq,
			At:        time.Now(),
			By:        model.ActorSystem,
			Action:    model.ActionInvoiceRemoved,
		}
		if histErr := s.requests.AppendHistory(txCtx, &entry); histErr != nil {
			return fmt.Errorf("failed to write history: %w", histErr)
		}

		details, _ := json.Marshal(map[string]interface{}{"request_id": reqID.String()})
		audit := model.AuditLog{
			UserID:   actorID,
			Action:   model.ActionDetachInvoice,
			EntityID: reqID.String(),
			Details:  string(details),
		}
		if auditErr := s.audits.Log(txCtx, &audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}

		return nil
	})
}

func (s *invoiceService) ListInvoices(ctx context.Context, currency string, page, limit int) ([]InvoiceResponse, int64, error) {
	if currency != "" && !model.ValidCurrency(currency) {
		return nil, 0, fmt.Errorf("unsupported currency %q", currency)
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	invoices, total, err := s.invoices.List(ctx, currency, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	result := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		resp := toInvoiceResponse(inv)
		if inv.Request != nil {
			req := toRequestResponse(*inv.Request)
			resp.Request = &req
		}
		result = append(result, resp)
	}
	return result, total, nil
}

// --- Helpers ---

func toInvoiceResponse(inv model.FinalInvoice) InvoiceResponse {
	return InvoiceResponse{
		ID:        inv.ID.String(),
		RequestID: inv.RequestID.String(),
		Number:    inv.Number,
		Date:      inv.Date.Format("2006-01-02"),
		Total:     inv.Total.StringFixed(2),
		Currency:  inv.Currency,
		URL:       inv.URL,
		IsValid:   inv.IsValid,
		CreatedAt: inv.CreatedAt.Format(time.RFC3339),
	}
}
