package models

import "tourbook/src/types"

type User struct {
	ID    uint       `gorm:"primarykey" json:"id"`
	Name  string     `json:"name,omitempty"`
	Email string     `gorm:"uniqueIndex" json:"email,omitempty"`
	Phone string     `json:"phone,omitempty"`
	Role  types.Role `gorm:"default:'USER'" json:"role,omitempty"`

	Bookings []Booking `gorm:"foreignKey:UserID" json:"bookings,omitempty"`

	types.Timestamps
}
