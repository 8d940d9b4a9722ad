package repository

import (
	"context"
	"tourbook/src/db"
	"tourbook/src/models"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TourRepository interface {
	Create(ctx context.Context, tour *models.Tour) error
	FindByID(ctx context.Context, id uint) (*models.Tour, error)
}

type GormTourRepository struct {
	db *gorm.DB
}

func NewTourRepository(conn *gorm.DB) *GormTourRepository {
	return &GormTourRepository{db: conn}
}

func (r *GormTourRepository) Create(ctx context.Context, tour *models.Tour) error {
	if tour.Slug == "" {
		tour.Slug = slug.Make(tour.Title)
	}
	return db.Conn(ctx, r.db).Omit(clause.Associations).Create(tour).Error
}

func (r *GormTourRepository) FindByID(ctx context.Context, id uint) (*models.Tour, error) {
	var tour models.Tour
	if err := db.Conn(ctx, r.db).First(&tour, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &tour, nil
}
