package repository

import (
	"context"
	"time"
	"tourbook/src/db"
	"tourbook/src/models"
	"tourbook/src/models/scopes"
	"tourbook/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	Save(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListByUser(ctx context.Context, userID uint, status *types.BookingStatus, page, limit int) ([]models.Booking, int64, error)
	ListByTour(ctx context.Context, tourID uint, status *types.BookingStatus, page, limit int) ([]models.Booking, int64, error)
	ListCompletable(ctx context.Context, now time.Time) ([]models.Booking, error)
}

type GormBookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(conn *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: conn}
}

func (r *GormBookingRepository) conn(ctx context.Context) *gorm.DB {
	return db.Conn(ctx, r.db)
}

func (r *GormBookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	return r.conn(ctx).Omit(clause.Associations).Create(booking).Error
}

func (r *GormBookingRepository) Save(ctx context.Context, booking *models.Booking) error {
	return r.conn(ctx).Omit(clause.Associations).Save(booking).Error
}

// FindByID loads the booking with its tour and user summaries.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.conn(ctx).
		Preload("Tour").
		Preload("User").
		Scopes(scopes.WithID(id)).
		First(&booking).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &booking, nil
}

func (r *GormBookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(scopes.WithID(id)).
		First(&booking).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &booking, nil
}

func (r *GormBookingRepository) ListByUser(ctx context.Context, userID uint, status *types.BookingStatus, page, limit int) ([]models.Booking, int64, error) {
	var total int64
	query := r.conn(ctx).Model(&models.Booking{}).Scopes(scopes.WithOwner(userID), scopes.WithBookingStatus(status))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	bookings := []models.Booking{}
	err := r.conn(ctx).
		Preload("Tour").
		Scopes(scopes.WithOwner(userID), scopes.WithBookingStatus(status), scopes.NewestFirst, scopes.Paginate(page, limit)).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (r *GormBookingRepository) ListByTour(ctx context.Context, tourID uint, status *types.BookingStatus, page, limit int) ([]models.Booking, int64, error) {
	var total int64
	query := r.conn(ctx).Model(&models.Booking{}).Scopes(scopes.WithTour(tourID), scopes.WithBookingStatus(status))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	bookings := []models.Booking{}
	err := r.conn(ctx).
		Preload("User").
		Scopes(scopes.WithTour(tourID), scopes.WithBookingStatus(status), scopes.NewestFirst, scopes.Paginate(page, limit)).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// ListCompletable returns confirmed bookings whose tour ended before now.
func (r *GormBookingRepository) ListCompletable(ctx context.Context, now time.Time) ([]models.Booking, error) {
	bookings := []models.Booking{}
	err := r.conn(ctx).
		Joins("JOIN tours ON tours.id = bookings.tour_id").
		Where("bookings.booking_status = ? AND tours.end_date < ?", types.BOOKING_CONFIRMED, now).
		Find(&bookings).Error
	return bookings, err
}
