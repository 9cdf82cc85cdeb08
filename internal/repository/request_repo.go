package repository

import (
	"context"

	"fundecodes-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestFilter narrows List results. Empty fields are ignored.
type RequestFilter struct {
	Status     string
	CreatedBy  *uuid.UUID
	HasInvoice *bool
	Page       int
	Limit      int
}

type RequestRepository interface {
	Create(ctx context.Context, req *model.PurchaseRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]model.PurchaseRequest, int64, error)
	// UpdateStatusIfCurrent performs the conditional write at the heart of a
	// transition: status moves from → to only if the row still carries the
	// status the caller observed. Returns false when a concurrent transition
	// won the race.
	UpdateStatusIfCurrent(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	AppendHistory(ctx context.Context, entry *model.RequestHistory) error
	HistoryByRequest(ctx context.Context, requestID uuid.UUID) ([]model.RequestHistory, error)
	NextHistorySeq(ctx context.Context, requestID uuid.UUID) (int, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.PurchaseRequest) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseRequest, error) {
	var req model.PurchaseRequest
	err := GetDB(ctx, r.db).
		Preload("Program").
		Preload("FinalInvoice").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]model.PurchaseRequest, int64, error) {
	db := GetDB(ctx, r.db)

	query := db.Model(&model.PurchaseRequest{})
	query = applyRequestFilter(query, db, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	offset := (filter.Page - 1) * filter.Limit

	var requests []model.PurchaseRequest
	fetch := applyRequestFilter(db.Model(&model.PurchaseRequest{}), db, filter).
		Preload("Program").
		Preload("FinalInvoice").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit)
	if err := fetch.Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func applyRequestFilter(query *gorm.DB, db *gorm.DB, filter RequestFilter) *gorm.DB {
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedBy != nil {
		query = query.Where("created_by = ?", *filter.CreatedBy)
	}
	if filter.HasInvoice != nil {
		sub := db.Session(&gorm.Session{NewDB: true}).
			Model(&model.FinalInvoice{}).Select("request_id")
		if *filter.HasInvoice {
			query = query.Where("id IN (?)", sub)
		} else {
			query = query.Where("id NOT IN (?)", sub)
		}
	}
	return query
}

func (r *requestRepository) UpdateStatusIfCurrent(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	res := GetDB(ctx, r.db).
		Model(&model.PurchaseRequest{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *requestRepository) AppendHistory(ctx context.Context, entry *model.RequestHistory) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *requestRepository) HistoryByRequest(ctx context.Context, requestID uuid.UUID) ([]model.RequestHistory, error) {
	var entries []model.RequestHistory
	err := GetDB(ctx, r.db).
		Where("request_id = ?", requestID).
		Order("seq ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *requestRepository) NextHistorySeq(ctx context.Context, requestID uuid.UUID) (int, error) {
	var max int
	err := GetDB(ctx, r.db).
		Model(&model.RequestHistory{}).
		Where("request_id = ?", requestID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}
