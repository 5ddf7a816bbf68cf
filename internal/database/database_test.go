package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bigredeye/catalystx/internal/config"
	"github.com/bigredeye/catalystx/internal/models"
)

func openTestDataBase(t *testing.T) *DataBase {
	t.Helper()
	db, err := OpenDataBase(zap.NewNop(), config.DriverSQLite, filepath.Join(t.TempDir(), "test.db"), time.Second)
	require.NoError(t, err)
	return db
}

func strptr(s string) *string {
	return &s
}

func TestApplicationsLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDataBase(t)

	professor := &models.Professor{Name: "Ada Lovelace", Email: "ada@uni.edu", Department: "CS"}
	require.NoError(t, db.CreateProfessor(ctx, professor))
	require.NotEmpty(t, professor.ID)

	project := &models.Project{Title: "Analytical Engine", Department: "CS", ProfessorID: professor.ID}
	require.NoError(t, db.CreateProject(ctx, project))

	student := &models.Student{Name: "Charles", Email: "charles@uni.edu", Branch: "EE", CVURL: strptr("https://cv/charles.pdf")}
	require.NoError(t, db.CreateStudent(ctx, student))

	application := &models.Application{StudentID: student.ID, ProjectID: project.ID, CoverLetter: strptr("<p>Hi</p>")}
	require.NoError(t, db.CreateApplication(ctx, application))
	require.Equal(t, models.ApplicationStatusPending, application.Status)

	err := db.CreateApplication(ctx, &models.Application{StudentID: student.ID, ProjectID: project.ID})
	require.True(t, IsDuplicateKey(err), "second application to the same project must be rejected, got %v", err)

	list, err := db.ListProjectApplications(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Charles", list[0].Student.Name)
	require.Equal(t, "Analytical Engine", list[0].Project.Title)

	require.NoError(t, db.SetApplicationStatus(ctx, application.ID, models.ApplicationStatusAccepted))
	found, err := db.FindApplication(ctx, application.ID)
	require.NoError(t, err)
	require.Equal(t, models.ApplicationStatusAccepted, found.Status)
	require.Equal(t, "Ada Lovelace", found.Project.Professor.Name)

	err = db.SetApplicationStatus(ctx, "missing", models.ApplicationStatusAccepted)
	require.True(t, IsNotFound(err))

	byStudent, err := db.ListStudentApplications(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, byStudent, 1)
	require.Equal(t, "Analytical Engine", byStudent[0].Project.Title)
	require.Equal(t, "Ada Lovelace", byStudent[0].Project.Professor.Name)

	projects, err := db.ListProfessorProjects(ctx, professor.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
}

func TestDuplicateProfessor(t *testing.T) {
	ctx := context.Background()
	db := openTestDataBase(t)

	require.NoError(t, db.CreateProfessor(ctx, &models.Professor{Name: "A", Email: "a@uni.edu"}))
	err := db.CreateProfessor(ctx, &models.Professor{Name: "B", Email: "a@uni.edu"})
	require.True(t, IsDuplicateKey(err))

	found, err := db.FindProfessorByEmail(ctx, "a@uni.edu")
	require.NoError(t, err)
	require.Equal(t, "A", found.Name)

	_, err = db.FindProfessorByEmail(ctx, "nobody@uni.edu")
	require.True(t, IsNotFound(err))
}

func TestOTPRows(t *testing.T) {
	ctx := context.Background()
	db := openTestDataBase(t)

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cutoff := now.Add(-10 * time.Minute)
	issued, err := db.IssueOTP(ctx, &models.OneTimePassword{Email: "a@uni.edu", CodeHash: "h1", IssuedAt: now.Add(-time.Hour)}, cutoff)
	require.NoError(t, err)
	require.True(t, issued)

	attempt, claimed, err := db.ClaimOTPAttempt(ctx, "a@uni.edu", "h1", 2)
	require.NoError(t, err)
	require.True(t, claimed)
	require.Equal(t, 1, attempt)

	_, claimed, err = db.ClaimOTPAttempt(ctx, "a@uni.edu", "other", 2)
	require.NoError(t, err)
	require.False(t, claimed, "attempts only count against the current code")

	// The old code is expired, so it is replaced and attempts reset.
	issued, err = db.IssueOTP(ctx, &models.OneTimePassword{Email: "a@uni.edu", CodeHash: "h2", IssuedAt: now}, cutoff)
	require.NoError(t, err)
	require.True(t, issued)
	otp, err := db.FindOTP(ctx, "a@uni.edu")
	require.NoError(t, err)
	require.Equal(t, "h2", otp.CodeHash)
	require.Equal(t, 0, otp.Attempts)

	// A live code is kept.
	issued, err = db.IssueOTP(ctx, &models.OneTimePassword{Email: "a@uni.edu", CodeHash: "h3", IssuedAt: now.Add(time.Minute)}, cutoff.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, issued)
	otp, err = db.FindOTP(ctx, "a@uni.edu")
	require.NoError(t, err)
	require.Equal(t, "h2", otp.CodeHash)

	for i := 1; i <= 2; i++ {
		attempt, claimed, err = db.ClaimOTPAttempt(ctx, "a@uni.edu", "h2", 2)
		require.NoError(t, err)
		require.True(t, claimed)
		require.Equal(t, i, attempt)
	}
	_, claimed, err = db.ClaimOTPAttempt(ctx, "a@uni.edu", "h2", 2)
	require.NoError(t, err)
	require.False(t, claimed)

	consumed, err := db.ConsumeOTP(ctx, "a@uni.edu", "h3")
	require.NoError(t, err)
	require.False(t, consumed)
	consumed, err = db.ConsumeOTP(ctx, "a@uni.edu", "h2")
	require.NoError(t, err)
	require.True(t, consumed)
	consumed, err = db.ConsumeOTP(ctx, "a@uni.edu", "h2")
	require.NoError(t, err)
	require.False(t, consumed, "a code is consumed once")

	_, err = db.IssueOTP(ctx, &models.OneTimePassword{Email: "old@uni.edu", CodeHash: "h", IssuedAt: now.Add(-time.Hour)}, cutoff)
	require.NoError(t, err)
	_, err = db.IssueOTP(ctx, &models.OneTimePassword{Email: "b@uni.edu", CodeHash: "h", IssuedAt: now}, cutoff)
	require.NoError(t, err)
	removed, err := db.DeleteExpiredOTPs(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, removed)

	require.NoError(t, db.DeleteOTP(ctx, "b@uni.edu"))
	_, err = db.FindOTP(ctx, "b@uni.edu")
	require.True(t, IsNotFound(err))
}
