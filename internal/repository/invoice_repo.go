package repository

import (
	"context"

	"fundecodes-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.FinalInvoice) error
	FindByRequestID(ctx context.Context, requestID uuid.UUID) (*model.FinalInvoice, error)
	FindByNumber(ctx context.Context, number string) (*model.FinalInvoice, error)
	// DeleteByRequestID removes the invoice row if present and reports how
	// many rows went away, so callers can make detach idempotent.
	DeleteByRequestID(ctx context.Context, requestID uuid.UUID) (int64, error)
	List(ctx context.Context, currency string, page, limit int) ([]model.FinalInvoice, int64, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.FinalInvoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) FindByRequestID(ctx context.Context, requestID uuid.UUID) (*model.FinalInvoice, error) {
	var invoice model.FinalInvoice
	if err := GetDB(ctx, r.db).First(&invoice, "request_id = ?", requestID).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByNumber(ctx context.Context, number string) (*model.FinalInvoice, error) {
	var invoice model.FinalInvoice
	if err := GetDB(ctx, r.db).First(&invoice, "number = ?", number).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) DeleteByRequestID(ctx context.Context, requestID uuid.UUID) (int64, error) {
	res := GetDB(ctx, r.db).Where("request_id = ?", requestID).Delete(&model.FinalInvoice{})
	return res.RowsAffected, res.Error
}

func (r *invoiceRepository) List(ctx context.Context, currency string, page, limit int) ([]model.FinalInvoice, int64, error) {
	db := GetDB(ctx, r.db)

	query := db.Model(&model.FinalInvoice{})
	if currency != "" {
		query = query.Where("currency = ?", currency)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	var invoices []model.FinalInvoice
	fetch := db.Preload("Request").Order("created_at DESC")
	if currency != "" {
		fetch = fetch.Where("currency = ?", currency)
	}
	if err := fetch.Offset(offset).Limit(limit).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}
