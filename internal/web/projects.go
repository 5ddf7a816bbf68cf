package web

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/catalystx/api"
	"github.com/bigredeye/catalystx/internal/applications"
	"github.com/bigredeye/catalystx/internal/database"
	lf "github.com/bigredeye/catalystx/internal/logfield"
	"github.com/bigredeye/catalystx/internal/metrics"
	"github.com/bigredeye/catalystx/internal/models"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type projectsService struct {
	webService
}

func setupProjectsService(server *server, r *gin.Engine) {
	s := projectsService{newWebService(server, "projects")}

	authorized := r.Group("/api", server.validateSession)
	authorized.GET("/projects", s.list)
	authorized.POST("/projects", s.create)
	authorized.GET("/projects/:id/applications", s.applications)
	authorized.GET("/projects/:id/applications/export", s.export)
	authorized.PATCH("/applications/:id/status", s.updateStatus)
}

func (s projectsService) list(c *gin.Context) {
	session := currentSession(c)
	projects, err := s.server.db.ListProfessorProjects(c.Request.Context(), session.ProfessorID)
	if err != nil {
		s.log.Error("Failed to list projects", lf.ProfessorID(session.ProfessorID), zap.Error(err))
		abortWithStatus(c, http.StatusInternalServerError, errInternal)
		return
	}

	res := &api.ProjectsResponse{Status: api.Status{Ok: true}, Projects: make([]api.Project, 0, len(projects))}
	for i := range projects {
		res.Projects = append(res.Projects, api.NewProject(&projects[i]))
	}
	c.JSON(http.StatusOK, res)
}

func (s projectsService) create(c *gin.Context) {
	session := currentSession(c)
	req := api.CreateProjectRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithStatus(c, http.StatusBadRequest, err)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		abortWithStatus(c, http.StatusBadRequest, errors.New("Title is required"))
		return
	}

	project := &models.Project{
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Department:  strings.TrimSpace(req.Department),
		ProfessorID: session.ProfessorID,
	}
	if err := s.server.db.CreateProject(c.Request.Context(), project); err != nil {
		s.log.Error("Failed to create project", lf.ProfessorID(session.ProfessorID), zap.Error(err))
		abortWithStatus(c, http.StatusInternalServerError, errInternal)
		return
	}
	s.log.Info("Created project", lf.ProjectID(project.ID), lf.ProfessorID(session.ProfessorID))

	dto := api.NewProject(project)
	c.JSON(http.StatusCreated, &api.ProjectResponse{Status: api.Status{Ok: true}, Project: &dto})
}

// ownProject loads the project from the path and checks it belongs to the logged in professor.
func (s projectsService) ownProject(c *gin.Context) (*models.Project, bool) {
	session := currentSession(c)
	id := c.Param("id")

	project, err := s.server.db.FindProject(c.Request.Context(), id)
	if err != nil {
		if database.IsNotFound(err) {
			abortWithStatus(c, http.StatusNotFound, errors.New("Project not found"))
			return nil, false
		}
		s.log.Error("Failed to find project", lf.ProjectID(id), zap.Error(err))
		abortWithStatus(c, http.StatusInternalServerError, errInternal)
		return nil, false
	}
	if project.ProfessorID != session.ProfessorID {
		s.log.Warn("Foreign project access", lf.ProjectID(id), lf.ProfessorID(session.ProfessorID))
		abortWithStatus(c, http.StatusForbidden, errForbidden)
		return nil, false
	}
	return project, true
}

func parseFilter(c *gin.Context) (applications.Filter, error) {
	f := applications.Filter{
		Status: strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		Branch: strings.TrimSpace(c.Query("branch")),
	}
	if f.Status == strings.ToUpper(applications.All) {
		f.Status = applications.All
	}
	if f.Status != "" && f.Status != applications.All && !models.IsKnownStatus(f.Status) {
		return f, errors.Errorf("Unknown status %q", f.Status)
	}

	switch strings.ToLower(c.Query("cv")) {
	case "", applications.All:
	case "with":
		f.ToggleWithCV()
	case "without":
		f.ToggleWithoutCV()
	default:
		return f, errors.Errorf("Unknown cv filter %q", c.Query("cv"))
	}
	return f, nil
}

func (s projectsService) applications(c *gin.Context) {
	project, ok := s.ownProject(c)
	if !ok {
		return
	}
	filter, err := parseFilter(c)
	if err != nil {
		abortWithStatus(c, http.StatusBadRequest, err)
		return
	}

	apps, err := s.server.db.ListProjectApplications(c.Request.Context(), project.ID)
	if err != nil {
		s.log.Error("Failed to list applications", lf.ProjectID(project.ID), zap.Error(err))
		abortWithStatus(c, http.StatusInternalServerError, errInternal)
		return
	}

	filtered := applications.Apply(apps, filter)
	res := &api.ApplicationsResponse{
		Status:       api.Status{Ok: true},
		Applications: make([]api.Application, 0, len(filtered)),
		Total:        len(filtered),
		All:          len(apps),
		Filtered:     filter.Active(),
		Branches:     applications.Branches(apps),
		Statuses:     applications.Statuses(apps),
	}
	for i := range filtered {
		res.Applications = append(res.Applications, api.NewApplication(&filtered[i]))
	}
	c.JSON(http.StatusOK, res)
}

func (s projectsService) export(c *gin.Context) {
	project, ok := s.ownProject(c)
	if !ok {
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	if format != "csv" && format != "xlsx" {
		abortWithStatus(c, http.StatusBadRequest, errors.Errorf("Unknown export format %q", format))
		return
	}

	apps, err := s.server.db.ListProjectApplications(c.Request.Context(), project.ID)
	if err != nil {
		s.log.Error("Failed to list applications", lf.ProjectID(project.ID), zap.Error(err))
		abortWithStatus(c, http.StatusInternalServerError, errInternal)
		return
	}

	var buf bytes.Buffer
	contentType := contentTypeCSV
	if format == "xlsx" {
		contentType = contentTypeXLSX
		err = applications.ExportAcceptedXLSX(&buf, apps)
	} else {
		err = applications.ExportAcceptedCSV(&buf, apps)
	}
	if err != nil {
		if errors.Is(err, applications.ErrNothingToExport) {
			abortWithStatus(c, http.StatusNotFound, err)
			return
		}
		s.log.Error("Failed to export applications", lf.ProjectID(project.ID), zap.Error(err))
		abortWithStatus(c, http.StatusInternalServerError, errInternal)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+applications.ExportFileName(format, time.Now().UTC())+`"`)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (s projectsService) updateStatus(c *gin.Context) {
	session := currentSession(c)
	req := api.StatusUpdateRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithStatus(c, http.StatusBadRequest, err)
		return
	}
	target, err := models.ParseDecision(req.Status)
	if err != nil {
		abortWithStatus(c, http.StatusBadRequest, err)
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	app, err := s.server.db.FindApplication(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			abortWithStatus(c, http.StatusNotFound, errors.New("Application not found"))
			return
		}
		s.log.Error("Failed to find application", lf.ApplicationID(id), zap.Error(err))
		abortWithStatus(c, http.StatusInternalServerError, errInternal)
		return
	}
	if app.Project.ProfessorID != session.ProfessorID {
		abortWithStatus(c, http.StatusForbidden, errForbidden)
		return
	}

	changed, err := applications.Transition(app.Status, target)
	if err != nil {
		abortWithStatus(c, http.StatusBadRequest, err)
		return
	}

	if changed {
		if err := s.server.db.SetApplicationStatus(ctx, app.ID, target); err != nil {
			s.log.Error("Failed to update application status", lf.ApplicationID(app.ID), zap.Error(err))
			abortWithStatus(c, http.StatusInternalServerError, errInternal)
			return
		}
		app.Status = target
		metrics.StatusChangesTotal.WithLabelValues(target).Inc()
		s.log.Info("Updated application status", lf.ApplicationID(app.ID), lf.Status(target))

		if err := s.server.notifier.StatusChanged(app); err != nil {
			s.log.Error("Failed to schedule status email", lf.ApplicationID(app.ID), zap.Error(err))
		}
	}

	dto := api.NewApplication(app)
	c.JSON(http.StatusOK, &api.StatusUpdateResponse{
		Status:      api.Status{Ok: true},
		Changed:     changed,
		Application: &dto,
	})
}
