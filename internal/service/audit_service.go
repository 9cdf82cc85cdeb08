package service

import (
	"context"

	"fundecodes-backend/internal/model"
	"fundecodes-backend/internal/repository"
)

type AuditLogResponse struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	EntityName string `json:"entity_name"`
	Details    string `json:"details"`
	CreatedAt  string `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, action string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs retrieves paginated audit records, optionally filtered by action
func (s *auditService) GetAuditLogs(ctx context.Context, action string, page, limit int) ([]AuditLogResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	logs, total, err := s.repo.List(ctx, action, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, toAuditResponse(l))
	}

	return res, total, nil
}

func toAuditResponse(l model.AuditLog) AuditLogResponse {
	username := "System"
	userID := ""
	if l.User != nil {
		username = l.User.Username
	}
	if l.UserID != nil {
		userID = l.UserID.String()
	}

	return AuditLogResponse{
		ID:         l.ID.String(),
		UserID:     userID,
		Username:   username,
		Action:     l.Action,
		EntityID:   l.EntityID,
		EntityName: l.EntityName,
		Details:    l.Details,
		CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
