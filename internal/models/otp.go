package models

import "time"

type OneTimePassword struct {
	Email    string `gorm:"primaryKey"`
	CodeHash string
	IssuedAt time.Time `gorm:"index"`
	Attempts int
}
