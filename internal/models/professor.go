package models

type Professor struct {
	Model

	Name       string
	Email      string `gorm:"uniqueIndex"`
	Department string
}

type Project struct {
	Model

	Title       string
	Description string
	Department  string

	ProfessorID string `gorm:"index"`
	Professor   Professor
}
