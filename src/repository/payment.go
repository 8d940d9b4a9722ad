package repository

import (
	"context"
	"tourbook/src/db"
	"tourbook/src/models"
	"tourbook/src/models/scopes"
	"tourbook/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository is the ledger. Rows are inserted once per gateway
// operation; UpdateStatus is the only mutation.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	UpdateStatus(ctx context.Context, payment *models.Payment) error
	FindChargeByIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	FindPendingCharge(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Payment, error)
	RefundedAmount(ctx context.Context, bookingID uuid.UUID) (float64, error)
	NetAmount(ctx context.Context, bookingID uuid.UUID) (float64, error)
}

type GormPaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(conn *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: conn}
}

func (r *GormPaymentRepository) conn(ctx context.Context) *gorm.DB {
	return db.Conn(ctx, r.db)
}

func (r *GormPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return r.conn(ctx).Omit(clause.Associations).Create(payment).Error
}

// UpdateStatus writes the reconciliation fields only; amount and kind are
// never part of the update.
func (r *GormPaymentRepository) UpdateStatus(ctx context.Context, payment *models.Payment) error {
	return r.conn(ctx).
		Model(payment).
		Select("status", "stripe_charge_id", "transaction_id", "failure_reason", "metadata").
		Updates(payment).Error
}

func (r *GormPaymentRepository) FindChargeByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("stripe_payment_intent_id = ? AND transaction_type = ?", intentID, types.TRANSACTION_CHARGE).
		Scopes(scopes.NewestFirst).
		First(&payment).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

func (r *GormPaymentRepository) FindPendingCharge(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.conn(ctx).
		Where("booking_id = ? AND transaction_type = ? AND status = ?", bookingID, types.TRANSACTION_CHARGE, types.TRANSACTION_PENDING).
		Scopes(scopes.NewestFirst).
		First(&payment).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

// FindByTransactionID looks a row up by the gateway's id for the
// operation, e.g. a refund id.
func (r *GormPaymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.conn(ctx).Where("transaction_id = ?", transactionID).First(&payment).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &payment, nil
}

func (r *GormPaymentRepository) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]models.Payment, error) {
	payments := []models.Payment{}
	err := r.conn(ctx).
		Where("booking_id = ?", bookingID).
		Scopes(scopes.NewestFirst).
		Find(&payments).Error
	return payments, err
}

func (r *GormPaymentRepository) RefundedAmount(ctx context.Context, bookingID uuid.UUID) (float64, error) {
	payments, err := r.ListByBooking(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	var refunded float64
	for _, p := range payments {
		if p.TransactionType.IsRefund() && p.Status == types.TRANSACTION_SUCCEEDED {
			refunded += p.Amount
		}
	}
	return refunded, nil
}

// NetAmount sums succeeded charges minus succeeded refunds.
func (r *GormPaymentRepository) NetAmount(ctx context.Context, bookingID uuid.UUID) (float64, error) {
	payments, err := r.ListByBooking(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	var net float64
	for _, p := range payments {
		net += p.SignedAmount()
	}
	return net, nil
}
