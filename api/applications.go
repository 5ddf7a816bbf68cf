package api

import (
	"time"

	"github.com/bigredeye/catalystx/internal/applications"
	"github.com/bigredeye/catalystx/internal/models"
)

type StudentUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Student struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Branch string      `json:"branch"`
	CVURL  *string     `json:"cvUrl,omitempty"`
	User   StudentUser `json:"user"`
}

type ApplicationProject struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Application struct {
	ID              string             `json:"id"`
	Status          string             `json:"status"`
	CoverLetter     *string            `json:"coverLetter"`
	CoverLetterText string             `json:"coverLetterText,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	Student         Student            `json:"student"`
	Project         ApplicationProject `json:"project"`
}

func NewApplication(app *models.Application) Application {
	res := Application{
		ID:          app.ID,
		Status:      app.Status,
		CoverLetter: app.CoverLetter,
		CreatedAt:   app.CreatedAt,
		Student: Student{
			ID:     app.Student.ID,
			Name:   app.Student.Name,
			Email:  app.Student.Email,
			Branch: app.Student.Branch,
			CVURL:  app.Student.CVURL,
			User:   StudentUser{Name: app.Student.Name, Email: app.Student.Email},
		},
		Project: ApplicationProject{
			ID:    app.ProjectID,
			Title: app.Project.Title,
		},
	}
	if app.CoverLetter != nil {
		res.CoverLetterText = applications.CoverLetterText(*app.CoverLetter)
	}
	return res
}

type ApplicationsResponse struct {
	Status
	Applications []Application `json:"applications"`
	Total        int           `json:"total"`
	All          int           `json:"all"`
	Filtered     bool          `json:"filtered"`
	Branches     []string      `json:"branches"`
	Statuses     []string      `json:"statuses"`
}

type StatusUpdateRequest struct {
	Status string `json:"status" form:"status"`
}

type StatusUpdateResponse struct {
	Status
	Changed     bool         `json:"changed"`
	Application *Application `json:"application,omitempty"`
}
