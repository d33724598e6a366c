package model

import "time"

// User is the persisted user account record.
type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"`
	Email        string    `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `gorm:"size:255;not null"` // argon2id PHC string
	FullName     string    `gorm:"size:255;not null"`
	Role         string    `gorm:"size:50;not null"`
	IsActive     bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time `gorm:"not null;precision:3;autoCreateTime:false;default:CURRENT_TIMESTAMP(3)"` // assigned by the store
}

// TableName pins the table name used by migrations and queries.
func (User) TableName() string { return "users" }
