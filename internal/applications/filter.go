package applications

import (
	"strings"

	"golang.org/x/exp/slices"

	"github.com/bigredeye/catalystx/internal/models"
)

// All is the facet value that disables a filter dimension.
const All = "all"

// Filter holds the three independent review filters. WithCV and WithoutCV are
// mutually exclusive, use the Toggle methods to keep them that way.
// The zero Filter matches everything.
type Filter struct {
	Status    string
	Branch    string
	WithCV    bool
	WithoutCV bool
}

func isActive(value string) bool {
	return value != "" && value != All
}

func (f Filter) Active() bool {
	return isActive(f.Status) || isActive(f.Branch) || f.WithCV || f.WithoutCV
}

func (f *Filter) ToggleWithCV() {
	f.WithCV = !f.WithCV
	f.WithoutCV = false
}

func (f *Filter) ToggleWithoutCV() {
	f.WithoutCV = !f.WithoutCV
	f.WithCV = false
}

func HasCV(student *models.Student) bool {
	return student.CVURL != nil && strings.TrimSpace(*student.CVURL) != ""
}

func (f Filter) Match(app *models.Application) bool {
	if isActive(f.Status) && app.Status != f.Status {
		return false
	}
	if isActive(f.Branch) && app.Student.Branch != f.Branch {
		return false
	}

	hasCV := HasCV(&app.Student)
	if f.WithCV && !hasCV {
		return false
	}
	if f.WithoutCV && hasCV {
		return false
	}
	return true
}

// Apply returns the matching applications in their original order. The input is not modified.
func Apply(apps []models.Application, f Filter) []models.Application {
	res := make([]models.Application, 0, len(apps))
	for i := range apps {
		if f.Match(&apps[i]) {
			res = append(res, apps[i])
		}
	}
	return res
}

func uniqueSorted(apps []models.Application, key func(app *models.Application) string) []string {
	seen := make(map[string]struct{})
	res := make([]string, 0)
	for i := range apps {
		value := key(&apps[i])
		if _, found := seen[value]; found {
			continue
		}
		seen[value] = struct{}{}
		res = append(res, value)
	}
	slices.Sort(res)
	return res
}

func Branches(apps []models.Application) []string {
	return uniqueSorted(apps, func(app *models.Application) string {
		return app.Student.Branch
	})
}

func Statuses(apps []models.Application) []string {
	return uniqueSorted(apps, func(app *models.Application) string {
		return app.Status
	})
}
