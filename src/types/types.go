package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	case nil:
		*a = nil
		return nil
	default:
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type Environment string

const (
	Local       Environment = "local"
	Development Environment = "development"
	Test        Environment = "test"
	Production  Environment = "production"
)

type Role string

const (
	ROLE_USER  Role = "USER"
	ROLE_GUIDE Role = "GUIDE"
	ROLE_ADMIN Role = "ADMIN"
)

type CustomerDetails struct {
	Name            string  `json:"name" binding:"required,min=1"`
	Email           string  `json:"email" binding:"required,email"`
	Phone           string  `json:"phone" binding:"required,min=1"`
	SpecialRequests *string `json:"specialRequests,omitempty"`
}

type CreateBookingRequestBody struct {
	TourID          uint            `json:"tourId" binding:"required"`
	NumberOfPeople  int             `json:"numberOfPeople" binding:"required,min=1"`
	CustomerDetails CustomerDetails `json:"customerDetails" binding:"required"`
}

type CancelBookingRequestBody struct {
	Reason *string `json:"reason,omitempty"`
}

type CreatePaymentIntentRequestBody struct {
	BookingID string `json:"bookingId" binding:"required,uuid"`
}

type ConfirmPaymentRequestBody struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
}

type RefundPaymentRequestBody struct {
	Amount *float64 `json:"amount,omitempty" binding:"omitempty,gt=0"`
	Reason *string  `json:"reason,omitempty"`
}

type UpdateBookingStatusRequestBody struct {
	Status BookingStatus `json:"status" binding:"required,bookingstatus"`
}

type BookingURIParams struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type TourURIParams struct {
	TourID uint `uri:"tourId" binding:"required"`
}

type BookingsQueryFilters struct {
	Status *BookingStatus `form:"status" binding:"omitempty,bookingstatus"`
	Page   int            `form:"page" binding:"omitempty,min=1,max=10000"`
	Limit  int            `form:"limit" binding:"omitempty,min=1"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

type Requester struct {
	ID   uint
	Role Role
}
