package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"route-master-backend/internal/models"
)

type RunRepository struct {
	db *gorm.DB
}

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Expose DB if needed
func (r *RunRepository) DB() *gorm.DB {
	return r.db
}

func (r *RunRepository) Create(run *models.ReconciliationRun) error {
	return r.db.Create(run).Error
}

// GetByID fetch a single run by ID
func (r *RunRepository) GetByID(id uuid.UUID) (*models.ReconciliationRun, error) {
	var run models.ReconciliationRun
	if err := r.db.First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *RunRepository) Update(run *models.ReconciliationRun) error {
	return r.db.Save(run).Error
}

// List returns the most recent runs, newest first.
func (r *RunRepository) List(limit int) ([]models.ReconciliationRun, error) {
	var runs []models.ReconciliationRun
	err := r.db.Order("created_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}
