package models

import "time"

type User struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"type:varchar(255); not null"`
	Email      string `gorm:"type:varchar(255); unique;not null"`
	Password   string `gorm:"type:varchar(255); not null"`
	Role       string `gorm:"type:varchar(32); not null"` // warehouse, sale, source, viewer, admin
	Department string `gorm:"type:varchar(64)"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
