package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bigredeye/catalystx/api"
	"github.com/bigredeye/catalystx/internal/applications"
	"github.com/bigredeye/catalystx/internal/models"
)

type fixture struct {
	env       *testEnv
	cookies   []*http.Cookie
	professor *models.Professor
	project   *models.Project
	foreign   *models.Project
	students  []*models.Student
	apps      []*models.Application
}

func strptr(s string) *string {
	return &s
}

// newFixture registers ada@uni.edu with one project and three applicants, and
// a second professor with a project of their own.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	env := newTestEnv(t, 1000)
	f := &fixture{env: env}

	f.professor = &models.Professor{Name: "Ada Lovelace", Email: "ada@uni.edu", Department: "CS"}
	require.NoError(t, env.db.CreateProfessor(ctx, f.professor))
	other := &models.Professor{Name: "Alan Turing", Email: "alan@uni.edu", Department: "Math"}
	require.NoError(t, env.db.CreateProfessor(ctx, other))

	f.project = &models.Project{Title: "Analytical Engine", Department: "CS", ProfessorID: f.professor.ID}
	require.NoError(t, env.db.CreateProject(ctx, f.project))
	f.foreign = &models.Project{Title: "Bombe", Department: "Math", ProfessorID: other.ID}
	require.NoError(t, env.db.CreateProject(ctx, f.foreign))

	f.students = []*models.Student{
		{Name: "Charles", Email: "charles@uni.edu", Branch: "EE", CVURL: strptr("https://cv.test/charles.pdf")},
		{Name: "Grace", Email: "grace@uni.edu", Branch: "CS"},
		{Name: "Hedy", Email: "hedy@uni.edu", Branch: "CS", CVURL: strptr("https://cv.test/broken.doc")},
	}
	for _, s := range f.students {
		require.NoError(t, env.db.CreateStudent(ctx, s))
		app := &models.Application{StudentID: s.ID, ProjectID: f.project.ID, CoverLetter: strptr("<p>Hello</p>")}
		require.NoError(t, env.db.CreateApplication(ctx, app))
		f.apps = append(f.apps, app)
	}
	require.NoError(t, env.db.CreateApplication(ctx, &models.Application{StudentID: f.students[0].ID, ProjectID: f.foreign.ID}))

	f.cookies = env.login(t, f.professor.Email)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return f.env.do(t, method, path, body, f.cookies)
}

func TestProjectsRequireSession(t *testing.T) {
	env := newTestEnv(t, 100)
	for _, path := range []string{"/api/projects", "/api/projects/x/applications", "/api/students/x/cv"} {
		rec := env.do(t, http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestListAndCreateProjects(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/projects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	projects := decode[api.ProjectsResponse](t, rec).Projects
	require.Len(t, projects, 1)
	require.Equal(t, "Analytical Engine", projects[0].Title)

	rec = f.do(t, http.MethodPost, "/api/projects", api.CreateProjectRequest{Title: "  "})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/projects", api.CreateProjectRequest{Title: "Difference Engine", Department: "CS"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[api.ProjectResponse](t, rec).Project
	require.NotNil(t, created)
	require.NotEmpty(t, created.ID)

	rec = f.do(t, http.MethodGet, "/api/projects", nil)
	require.Len(t, decode[api.ProjectsResponse](t, rec).Projects, 2)
}

func TestApplicationsFilters(t *testing.T) {
	f := newFixture(t)
	base := "/api/projects/" + f.project.ID + "/applications"

	rec := f.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	all := decode[api.ApplicationsResponse](t, rec)
	require.Equal(t, 3, all.Total)
	require.Equal(t, 3, all.All)
	require.False(t, all.Filtered)
	require.Equal(t, []string{"CS", "EE"}, all.Branches)
	require.Equal(t, []string{models.ApplicationStatusPending}, all.Statuses)
	require.Equal(t, "Charles", all.Applications[0].Student.User.Name)
	require.Equal(t, "Hello", all.Applications[0].CoverLetterText)

	for _, tc := range []struct {
		query    string
		expected []string
	}{
		{"?branch=CS", []string{"Grace", "Hedy"}},
		{"?branch=all", []string{"Charles", "Grace", "Hedy"}},
		{"?cv=with", []string{"Charles", "Hedy"}},
		{"?cv=without", []string{"Grace"}},
		{"?cv=with&branch=CS", []string{"Hedy"}},
		{"?status=pending", []string{"Charles", "Grace", "Hedy"}},
		{"?status=ACCEPTED", []string{}},
	} {
		rec := f.do(t, http.MethodGet, base+tc.query, nil)
		require.Equal(t, http.StatusOK, rec.Code, tc.query)
		res := decode[api.ApplicationsResponse](t, rec)
		names := make([]string, 0)
		for _, app := range res.Applications {
			names = append(names, app.Student.Name)
		}
		require.Equal(t, tc.expected, names, tc.query)
		require.Equal(t, len(tc.expected), res.Total, tc.query)
		require.Equal(t, 3, res.All, tc.query)
		require.Equal(t, tc.query != "?branch=all", res.Filtered, tc.query)
		require.Equal(t, []string{"CS", "EE"}, res.Branches, "facets ignore the filter")
	}

	rec = f.do(t, http.MethodGet, base+"?status=maybe", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodGet, base+"?cv=sometimes", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApplicationsAccess(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/projects/"+f.foreign.ID+"/applications", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/projects/missing/applications", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	foreignApps, err := f.env.db.ListProjectApplications(context.Background(), f.foreign.ID)
	require.NoError(t, err)
	require.Len(t, foreignApps, 1)
	rec = f.do(t, http.MethodPatch, "/api/applications/"+foreignApps[0].ID+"/status", api.StatusUpdateRequest{Status: "ACCEPTED"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/applications/missing/status", api.StatusUpdateRequest{Status: "ACCEPTED"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Zero(t, f.env.notifier.count())
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	path := "/api/applications/" + f.apps[0].ID + "/status"

	rec := f.do(t, http.MethodPatch, path, api.StatusUpdateRequest{Status: "PENDING"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPatch, path, api.StatusUpdateRequest{Status: "accepted"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[api.StatusUpdateResponse](t, rec)
	require.True(t, res.Changed)
	require.Equal(t, models.ApplicationStatusAccepted, res.Application.Status)
	require.Equal(t, 1, f.env.notifier.count())

	// Re-applying the same decision is a no-op and sends no email.
	rec = f.do(t, http.MethodPatch, path, api.StatusUpdateRequest{Status: "ACCEPTED"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, decode[api.StatusUpdateResponse](t, rec).Changed)
	require.Equal(t, 1, f.env.notifier.count())

	rec = f.do(t, http.MethodPatch, path, api.StatusUpdateRequest{Status: "REJECTED"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decode[api.StatusUpdateResponse](t, rec).Changed)
	require.Equal(t, 2, f.env.notifier.count())

	stored, err := f.env.db.FindApplication(context.Background(), f.apps[0].ID)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusRejected, stored.Status)

	rec = f.do(t, http.MethodGet, "/api/projects/"+f.project.ID+"/applications?status=REJECTED", nil)
	require.Equal(t, 1, decode[api.ApplicationsResponse](t, rec).Total)
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	base := "/api/projects/" + f.project.ID + "/applications/export"

	rec := f.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusNotFound, rec.Code, "nothing accepted yet")

	for _, app := range f.apps[:2] {
		rec = f.do(t, http.MethodPatch, "/api/applications/"+app.ID+"/status", api.StatusUpdateRequest{Status: "ACCEPTED"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec = f.do(t, http.MethodGet, base+"?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, contentTypeCSV, rec.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="`+applications.ExportFileName("csv", time.Now().UTC())+`"`,
		rec.Header().Get("Content-Disposition"), "export names use the UTC date")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Equal(t, []string{
		`"Name","Email","Branch"`,
		`"Charles","charles@uni.edu","EE"`,
		`"Grace","grace@uni.edu","CS"`,
	}, lines)

	rec = f.do(t, http.MethodGet, base+"?format=xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	require.Equal(t, "PK", rec.Body.String()[:2])

	rec = f.do(t, http.MethodGet, base+"?format=pdf", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
