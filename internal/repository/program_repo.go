package repository

import (
	"context"

	"fundecodes-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProgramRepository defines the interface for data access of Program entities
type ProgramRepository interface {
	Create(ctx context.Context, program *model.Program) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Program, error)
	FindByName(ctx context.Context, name string) (*model.Program, error)
	List(ctx context.Context, activeOnly bool) ([]model.Program, error)
	Update(ctx context.Context, program *model.Program) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type programRepository struct {
	db *gorm.DB
}

func NewProgramRepository(db *gorm.DB) ProgramRepository {
	return &programRepository{db: db}
}

func (r *programRepository) Create(ctx context.Context, program *model.Program) error {
	return GetDB(ctx, r.db).Create(program).Error
}

func (r *programRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Program, error) {
	var program model.Program
	if err := GetDB(ctx, r.db).First(&program, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &program, nil
}

func (r *programRepository) FindByName(ctx context.Context, name string) (*model.Program, error) {
	var program model.Program
	if err := GetDB(ctx, r.db).First(&program, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &program, nil
}

func (r *programRepository) List(ctx context.Context, activeOnly bool) ([]model.Program, error) {
	var programs []model.Program
	query := GetDB(ctx, r.db).Order("name ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if err := query.Find(&programs).Error; err != nil {
		return nil, err
	}
	return programs, nil
}

func (r *programRepository) Update(ctx context.Context, program *model.Program) error {
	return GetDB(ctx, r.db).Save(program).Error
}

func (r *programRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Program{}).Error
}
