package models

import (
	"time"
	"tourbook/src/types"
)

type Tour struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Title        string    `json:"title,omitempty"`
	Slug         string    `gorm:"uniqueIndex" json:"slug,omitempty"`
	Location     string    `json:"location,omitempty"`
	CostFrom     float64   `json:"cost_from"`
	MaxGroupSize int       `json:"max_group_size,omitempty"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	IsActive     bool      `json:"is_active"`
	GuideID      uint      `gorm:"index" json:"guide_id,omitempty"`

	Guide    *User     `gorm:"foreignKey:GuideID" json:"guide,omitempty"`
	Bookings []Booking `gorm:"foreignKey:TourID" json:"-"`

	types.Timestamps
}

func (t *Tour) HasStarted(now time.Time) bool {
	return !t.StartDate.After(now)
}
