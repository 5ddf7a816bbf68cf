package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"moul.io/zapgorm2"

	"github.com/bigredeye/catalystx/internal/config"
	"github.com/bigredeye/catalystx/internal/models"
)

const otpTable = "one_time_passwords"

type DataBase struct {
	*gorm.DB
}

type DuplicateKey struct {
	nested error
}

func (e *DuplicateKey) Error() string {
	return e.nested.Error()
}

func (e *DuplicateKey) Unwrap() error {
	return e.nested
}

func IsDuplicateKey(err error) bool {
	duplicateKey := &DuplicateKey{}
	return errors.As(err, &duplicateKey)
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// gorm does not normalize constraint errors across drivers
// https://github.com/go-gorm/gorm/issues/4037
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var perr *pgconn.PgError
	if errors.As(err, &perr) {
		return perr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func wrapWriteError(err error) error {
	if err != nil && isUniqueViolation(err) {
		return &DuplicateKey{err}
	}
	return err
}

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case config.DriverPostgres, "":
		return postgres.Open(dsn), nil
	case config.DriverSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}

// OpenDataBase connects with exponential backoff for up to connectTimeout and migrates the schema.
func OpenDataBase(logger *zap.Logger, driver, dsn string, connectTimeout time.Duration) (*DataBase, error) {
	zapLogger := zapgorm2.New(logger.Named("gorm"))
	zapLogger.SetAsDefault()

	dial, err := dialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = connectTimeout

	var db *gorm.DB
	err = backoff.RetryNotify(func() error {
		var openErr error
		db, openErr = gorm.Open(dial, &gorm.Config{
			Logger:         zapLogger,
			TranslateError: true,
		})
		return openErr
	}, policy, func(err error, next time.Duration) {
		logger.Warn("Failed to connect to database, retrying", zap.Error(err), zap.Duration("next", next))
	})
	if err != nil {
		return nil, err
	}

	if driver == config.DriverSQLite {
		// sqlite allows a single writer, concurrent connections only trade waits for SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	err = db.AutoMigrate(
		&models.Professor{},
		&models.Project{},
		&models.Student{},
		&models.Application{},
		&models.OneTimePassword{},
	)
	if err != nil {
		return nil, err
	}

	return &DataBase{db}, nil
}

func (db *DataBase) CreateProfessor(ctx context.Context, professor *models.Professor) error {
	return wrapWriteError(db.WithContext(ctx).Create(professor).Error)
}

func (db *DataBase) FindProfessorByID(ctx context.Context, id string) (*models.Professor, error) {
	var professor models.Professor
	err := db.WithContext(ctx).First(&professor, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &professor, nil
}

func (db *DataBase) FindProfessorByEmail(ctx context.Context, email string) (*models.Professor, error) {
	var professor models.Professor
	err := db.WithContext(ctx).First(&professor, "email = ?", email).Error
	if err != nil {
		return nil, err
	}
	return &professor, nil
}

func (db *DataBase) CreateProject(ctx context.Context, project *models.Project) error {
	return wrapWriteError(db.WithContext(ctx).Omit(clause.Associations).Create(project).Error)
}

func (db *DataBase) FindProject(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	err := db.WithContext(ctx).Preload("Professor").First(&project, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (db *DataBase) ListProfessorProjects(ctx context.Context, professorID string) (projects []models.Project, err error) {
	projects = make([]models.Project, 0)
	err = db.WithContext(ctx).
		Where("professor_id = ?", professorID).
		Order("created_at").
		Find(&projects).Error
	if err != nil {
		projects = nil
	}
	return
}

func (db *DataBase) CreateStudent(ctx context.Context, student *models.Student) error {
	return wrapWriteError(db.WithContext(ctx).Create(student).Error)
}

func (db *DataBase) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	err := db.WithContext(ctx).First(&student, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (db *DataBase) CreateApplication(ctx context.Context, application *models.Application) error {
	if application.Status == "" {
		application.Status = models.ApplicationStatusPending
	}
	return wrapWriteError(db.WithContext(ctx).Omit(clause.Associations).Create(application).Error)
}

func (db *DataBase) FindApplication(ctx context.Context, id string) (*models.Application, error) {
	var application models.Application
	err := db.WithContext(ctx).
		Preload("Student").
		Preload("Project.Professor").
		First(&application, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &application, nil
}

func (db *DataBase) ListProjectApplications(ctx context.Context, projectID string) (applications []models.Application, err error) {
	applications = make([]models.Application, 0)
	err = db.WithContext(ctx).
		Preload("Student").
		Preload("Project").
		Where("project_id = ?", projectID).
		Order("created_at").
		Find(&applications).Error
	if err != nil {
		applications = nil
	}
	return
}

func (db *DataBase) ListStudentApplications(ctx context.Context, studentID string) (applications []models.Application, err error) {
	applications = make([]models.Application, 0)
	err = db.WithContext(ctx).
		Preload("Project.Professor").
		Where("student_id = ?", studentID).
		Order("created_at").
		Find(&applications).Error
	if err != nil {
		applications = nil
	}
	return
}

func (db *DataBase) SetApplicationStatus(ctx context.Context, id string, status models.ApplicationStatus) error {
	res := db.WithContext(ctx).
		Model(&models.Application{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected < 1 {
		return fmt.Errorf("unknown application %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// IssueOTP stores otp unless a code issued after expiredBefore is still live.
// It reports false when the live code was kept.
func (db *DataBase) IssueOTP(ctx context.Context, otp *models.OneTimePassword, expiredBefore time.Time) (bool, error) {
	res := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"code_hash", "issued_at", "attempts"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Lte{Column: clause.Column{Table: otpTable, Name: "issued_at"}, Value: expiredBefore},
		}},
	}).Create(otp)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (db *DataBase) FindOTP(ctx context.Context, email string) (*models.OneTimePassword, error) {
	var otp models.OneTimePassword
	err := db.WithContext(ctx).First(&otp, "email = ?", email).Error
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// ClaimOTPAttempt counts one verification attempt for the code with codeHash.
// It reports the attempt number, or false once maxAttempts were used or the code was replaced.
func (db *DataBase) ClaimOTPAttempt(ctx context.Context, email, codeHash string, maxAttempts int) (attempt int, claimed bool, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.OneTimePassword{}).
			Where("email = ? AND code_hash = ? AND attempts < ?", email, codeHash, maxAttempts).
			Update("attempts", gorm.Expr("attempts + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected < 1 {
			return nil
		}
		claimed = true

		var row models.OneTimePassword
		if err := tx.Select("attempts").First(&row, "email = ?", email).Error; err != nil {
			return err
		}
		attempt = row.Attempts
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return attempt, claimed, nil
}

// ConsumeOTP deletes the code with codeHash. Only one caller can consume a code.
func (db *DataBase) ConsumeOTP(ctx context.Context, email, codeHash string) (bool, error) {
	res := db.WithContext(ctx).
		Where("email = ? AND code_hash = ?", email, codeHash).
		Delete(&models.OneTimePassword{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (db *DataBase) DeleteOTP(ctx context.Context, email string) error {
	return db.WithContext(ctx).
		Where("email = ?", email).
		Delete(&models.OneTimePassword{}).
		Error
}

func (db *DataBase) DeleteExpiredOTPs(ctx context.Context, issuedBefore time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("issued_at < ?", issuedBefore).
		Delete(&models.OneTimePassword{})
	return res.RowsAffected, res.Error
}
