package fixtures

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	lf "github.com/bigredeye/catalystx/internal/logfield"
	"github.com/bigredeye/catalystx/internal/models"
)

const dateLayout = "02-01-2006 15:04"

type Date struct {
	time.Time
}

func (t *Date) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var buf string
	if err := unmarshal(&buf); err != nil {
		return err
	}

	tt, err := time.ParseInLocation(dateLayout, strings.TrimSpace(buf), time.Local)
	if err != nil {
		return err
	}
	t.Time = tt
	return nil
}

func (t Date) MarshalYAML() (interface{}, error) {
	return t.Time.Format(dateLayout), nil
}

type Application struct {
	Student     string
	Status      string
	Applied     Date
	CoverLetter string `yaml:"coverLetter"`
}

type Project struct {
	Title        string
	Description  string
	Department   string
	Applications []Application
}

type Professor struct {
	Name       string
	Email      string
	Department string
	Projects   []Project
}

type Student struct {
	Name   string
	Email  string
	Branch string
	CV     string `yaml:"cv"`
}

type Fixtures struct {
	Students   []Student
	Professors []Professor
}

func Parse(data []byte) (*Fixtures, error) {
	f := &Fixtures{}
	if err := yaml.UnmarshalStrict(data, f); err != nil {
		return nil, errors.Wrap(err, "Failed to parse fixtures")
	}
	return f, nil
}

func ParseFile(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

type Store interface {
	CreateProfessor(ctx context.Context, professor *models.Professor) error
	CreateProject(ctx context.Context, project *models.Project) error
	CreateStudent(ctx context.Context, student *models.Student) error
	CreateApplication(ctx context.Context, application *models.Application) error
}

type Stats struct {
	Professors   int
	Projects     int
	Students     int
	Applications int
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Load inserts the fixtures. Applications must reference students by email.
func Load(ctx context.Context, logger *zap.Logger, store Store, f *Fixtures) (Stats, error) {
	stats := Stats{}
	students := make(map[string]*models.Student, len(f.Students))

	for _, s := range f.Students {
		student := &models.Student{
			Name:   s.Name,
			Email:  strings.ToLower(s.Email),
			Branch: s.Branch,
			CVURL:  optional(s.CV),
		}
		if err := store.CreateStudent(ctx, student); err != nil {
			return stats, errors.Wrapf(err, "Failed to create student %s", s.Email)
		}
		students[student.Email] = student
		stats.Students++
	}

	for _, p := range f.Professors {
		professor := &models.Professor{Name: p.Name, Email: strings.ToLower(p.Email), Department: p.Department}
		if err := store.CreateProfessor(ctx, professor); err != nil {
			return stats, errors.Wrapf(err, "Failed to create professor %s", p.Email)
		}
		stats.Professors++

		for _, pr := range p.Projects {
			project := &models.Project{
				Title:       pr.Title,
				Description: pr.Description,
				Department:  pr.Department,
				ProfessorID: professor.ID,
			}
			if err := store.CreateProject(ctx, project); err != nil {
				return stats, errors.Wrapf(err, "Failed to create project %q", pr.Title)
			}
			stats.Projects++

			for _, a := range pr.Applications {
				student, found := students[strings.ToLower(a.Student)]
				if !found {
					return stats, errors.Errorf("Unknown student %s in project %q", a.Student, pr.Title)
				}
				status := strings.ToUpper(a.Status)
				if status != "" && !models.IsKnownStatus(status) {
					return stats, errors.Errorf("Unknown status %q for %s", a.Status, a.Student)
				}

				app := &models.Application{
					Status:      status,
					CoverLetter: optional(a.CoverLetter),
					StudentID:   student.ID,
					ProjectID:   project.ID,
				}
				app.CreatedAt = a.Applied.Time
				if err := store.CreateApplication(ctx, app); err != nil {
					return stats, errors.Wrapf(err, "Failed to create application of %s", a.Student)
				}
				stats.Applications++
			}
		}
		logger.Info("Seeded professor", lf.ProfessorID(professor.ID), lf.Email(professor.Email), zap.Int("projects", len(p.Projects)))
	}

	return stats, nil
}
