package repository

import (
	"context"
	"tourbook/src/db"
	"tourbook/src/models"

	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

type GormUserRepository struct {
	db *gorm.DB
}

func NewUserRepository(conn *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: conn}
}

func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return db.Conn(ctx, r.db).Create(user).Error
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := db.Conn(ctx, r.db).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}
