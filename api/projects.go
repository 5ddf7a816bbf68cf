package api

import (
	"time"

	"github.com/bigredeye/catalystx/internal/models"
)

type Project struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description,omitempty"`
	Department    string    `json:"department"`
	ProfessorName string    `json:"professorName,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func NewProject(p *models.Project) Project {
	return Project{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		Department:    p.Department,
		ProfessorName: p.Professor.Name,
		CreatedAt:     p.CreatedAt,
	}
}

type CreateProjectRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Department  string `json:"department" form:"department"`
}

type ProjectResponse struct {
	Status
	Project *Project `json:"project,omitempty"`
}

type ProjectsResponse struct {
	Status
	Projects []Project `json:"projects"`
}
