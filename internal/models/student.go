package models

type Student struct {
	Model

	Name   string
	Email  string `gorm:"uniqueIndex"`
	Branch string `gorm:"index"`
	CVURL  *string
}
