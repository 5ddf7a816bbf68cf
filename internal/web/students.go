package web

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/catalystx/api"
	"github.com/bigredeye/catalystx/internal/cv"
	"github.com/bigredeye/catalystx/internal/database"
	lf "github.com/bigredeye/catalystx/internal/logfield"
	"github.com/bigredeye/catalystx/internal/models"
)

type studentsService struct {
	webService
}

func setupStudentsService(server *server, r *gin.Engine) {
	s := studentsService{newWebService(server, "students")}

	r.GET("/api/students/:id/projects", s.projects)
	r.GET("/api/students/:id/cv", server.validateSession, s.cv)
}

func (s studentsService) student(c *gin.Context) (*models.Student, bool) {
	id := c.Param("id")
	student, err := s.server.db.FindStudent(c.Request.Context(), id)
	if err != nil {
		if database.IsNotFound(err) {
			abortWithStatus(c, http.StatusNotFound, errors.New("Student not found"))
			return nil, false
		}
		s.log.Error("Failed to find student", lf.StudentID(id), zap.Error(err))
		abortWithStatus(c, http.StatusInternalServerError, errInternal)
		return nil, false
	}
	return student, true
}

func (s studentsService) projects(c *gin.Context) {
	student, ok := s.student(c)
	if !ok {
		return
	}

	apps, err := s.server.db.ListStudentApplications(c.Request.Context(), student.ID)
	if err != nil {
		s.log.Error("Failed to list student applications", lf.StudentID(student.ID), zap.Error(err))
		abortWithStatus(c, http.StatusInternalServerError, errInternal)
		return
	}

	res := &api.StudentProjectsResponse{
		Status:   api.Status{Ok: true},
		Projects: make([]api.StudentProject, 0, len(apps)),
	}
	for i := range apps {
		app := &apps[i]
		res.Projects = append(res.Projects, api.StudentProject{
			ID:            app.Project.ID,
			Title:         app.Project.Title,
			ProfessorName: app.Project.Professor.Name,
			Department:    app.Project.Department,
			Status:        app.Status,
		})
	}
	c.JSON(http.StatusOK, res)
}

func cvStatus(err error) int {
	var fetchErr *cv.FetchError
	switch {
	case errors.Is(err, cv.ErrNoCV):
		return http.StatusNotFound
	case errors.Is(err, cv.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, cv.ErrNotPDF), errors.Is(err, cv.ErrUnsafeURL):
		return http.StatusUnprocessableEntity
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s studentsService) cv(c *gin.Context) {
	student, ok := s.student(c)
	if !ok {
		return
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			abortWithStatus(c, http.StatusBadRequest, errors.Errorf("Invalid page %q", raw))
			return
		}
		page = n
	}

	url := ""
	if student.CVURL != nil {
		url = *student.CVURL
	}
	doc, err := s.server.cv.Inspect(c.Request.Context(), url, page)
	if err != nil {
		code := cvStatus(err)
		if code == http.StatusInternalServerError {
			s.log.Error("Failed to inspect CV", lf.StudentID(student.ID), lf.URL(url), zap.Error(err))
			err = errInternal
		}
		abortWithStatus(c, code, err)
		return
	}

	c.JSON(http.StatusOK, &api.CVResponse{
		Status: api.Status{Ok: true},
		URL:    doc.URL,
		Pages:  doc.Pages,
		Page:   doc.Page,
		Text:   doc.Text,
	})
}
