package models

import "gorm.io/gorm"

func Migrate(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&User{},
		&Tour{},
		&Booking{},
		&Payment{},
	)
}
