package otp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/catalystx/internal/database"
	lf "github.com/bigredeye/catalystx/internal/logfield"
	"github.com/bigredeye/catalystx/internal/models"
)

var (
	ErrInvalidFormat   = errors.New("OTP must be exactly 6 digits")
	ErrNotFound        = errors.New("No OTP was requested for this email")
	ErrExpired         = errors.New("OTP has expired")
	ErrTooManyAttempts = errors.New("Too many failed attempts, request a new OTP")
	ErrMismatch        = errors.New("Invalid OTP")
	ErrResendBlocked   = errors.New("An OTP was already sent")
)

type ResendBlocked struct {
	Remaining time.Duration
}

func (e *ResendBlocked) Error() string {
	return fmt.Sprintf("%s, %s", ErrResendBlocked.Error(), strings.ToLower(FormatCountdown(e.Remaining)))
}

func (e *ResendBlocked) Is(target error) bool {
	return target == ErrResendBlocked
}

type Store interface {
	IssueOTP(ctx context.Context, otp *models.OneTimePassword, expiredBefore time.Time) (bool, error)
	FindOTP(ctx context.Context, email string) (*models.OneTimePassword, error)
	ClaimOTPAttempt(ctx context.Context, email, codeHash string, maxAttempts int) (int, bool, error)
	ConsumeOTP(ctx context.Context, email, codeHash string) (bool, error)
	DeleteOTP(ctx context.Context, email string) error
	DeleteExpiredOTPs(ctx context.Context, issuedBefore time.Time) (int64, error)
}

type Issued struct {
	Code     string
	IssuedAt time.Time
	TTL      time.Duration
}

type Pending struct {
	IssuedAt  time.Time
	Remaining time.Duration
}

type Service struct {
	store       Store
	logger      *zap.Logger
	ttl         time.Duration
	maxAttempts int

	now func() time.Time
}

func NewService(logger *zap.Logger, store Store, ttl time.Duration, maxAttempts int) *Service {
	if ttl <= 0 {
		ttl = TTL
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Service{
		store:       store,
		logger:      logger.With(lf.Module("otp")),
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Issue stores a fresh code for email. A live code blocks reissue until it expires.
func (s *Service) Issue(ctx context.Context, email string) (*Issued, error) {
	email = normalizeEmail(email)
	now := s.now().UTC()

	code, err := Generate()
	if err != nil {
		return nil, err
	}
	hash, err := Hash(code)
	if err != nil {
		return nil, err
	}

	issued, err := s.store.IssueOTP(ctx, &models.OneTimePassword{
		Email:    email,
		CodeHash: hash,
		IssuedAt: now,
	}, now.Add(-s.ttl))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to store OTP")
	}
	if !issued {
		left := s.ttl
		if prev, err := s.store.FindOTP(ctx, email); err == nil {
			left = Remaining(prev.IssuedAt, now, s.ttl)
		}
		return nil, &ResendBlocked{Remaining: left}
	}

	s.logger.Info("Issued OTP", lf.Email(email))
	return &Issued{Code: code, IssuedAt: now, TTL: s.ttl}, nil
}

// Verify consumes the code on success. Expired and exhausted codes are removed as well.
// Every comparison is counted before it runs, so concurrent guesses share the attempt budget.
func (s *Service) Verify(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if !Valid(code) {
		return ErrInvalidFormat
	}

	row, err := s.store.FindOTP(ctx, email)
	if err != nil {
		if database.IsNotFound(err) {
			return ErrNotFound
		}
		return errors.Wrap(err, "Failed to look up OTP")
	}

	if Remaining(row.IssuedAt, s.now(), s.ttl) == 0 {
		s.discard(ctx, email)
		return ErrExpired
	}

	attempt, claimed, err := s.store.ClaimOTPAttempt(ctx, email, row.CodeHash, s.maxAttempts)
	if err != nil {
		return errors.Wrap(err, "Failed to count attempt")
	}
	if !claimed {
		return s.unclaimed(ctx, email, row.CodeHash)
	}

	if !Compare(row.CodeHash, code) {
		if attempt >= s.maxAttempts {
			s.discard(ctx, email)
			return ErrTooManyAttempts
		}
		s.logger.Info("OTP mismatch", lf.Email(email), zap.Int("attempts", attempt))
		return ErrMismatch
	}

	consumed, err := s.store.ConsumeOTP(ctx, email, row.CodeHash)
	if err != nil {
		return errors.Wrap(err, "Failed to consume OTP")
	}
	if !consumed {
		return ErrNotFound
	}
	s.logger.Info("Verified OTP", lf.Email(email))
	return nil
}

// unclaimed explains a lost attempt claim: the code was used up, consumed or replaced since it was read.
func (s *Service) unclaimed(ctx context.Context, email, codeHash string) error {
	row, err := s.store.FindOTP(ctx, email)
	switch {
	case database.IsNotFound(err):
		return ErrNotFound
	case err != nil:
		return errors.Wrap(err, "Failed to look up OTP")
	case row.CodeHash == codeHash && row.Attempts >= s.maxAttempts:
		s.discard(ctx, email)
		return ErrTooManyAttempts
	default:
		return ErrNotFound
	}
}

// Revoke drops the live code for email, e.g. after the email carrying it failed to send.
func (s *Service) Revoke(ctx context.Context, email string) error {
	if err := s.store.DeleteOTP(ctx, normalizeEmail(email)); err != nil {
		return errors.Wrap(err, "Failed to revoke OTP")
	}
	return nil
}

func (s *Service) discard(ctx context.Context, email string) {
	if err := s.store.DeleteOTP(ctx, email); err != nil {
		s.logger.Error("Failed to delete OTP", lf.Email(email), zap.Error(err))
	}
}

// Status reports the live code for email. A missing code is reported as zero remaining time.
func (s *Service) Status(ctx context.Context, email string) (Pending, error) {
	row, err := s.store.FindOTP(ctx, normalizeEmail(email))
	if err != nil {
		if database.IsNotFound(err) {
			return Pending{}, nil
		}
		return Pending{}, errors.Wrap(err, "Failed to look up OTP")
	}
	return Pending{
		IssuedAt:  row.IssuedAt,
		Remaining: Remaining(row.IssuedAt, s.now(), s.ttl),
	}, nil
}

func (s *Service) Sweep(ctx context.Context) (int64, error) {
	removed, err := s.store.DeleteExpiredOTPs(ctx, s.now().UTC().Add(-s.ttl))
	if err != nil {
		return 0, errors.Wrap(err, "Failed to sweep expired OTPs")
	}
	if removed > 0 {
		s.logger.Debug("Swept expired OTPs", zap.Int64("removed", removed))
	}
	return removed, nil
}

// RunSweeper removes expired codes every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = s.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("OTP sweep failed", zap.Error(err))
			}
		}
	}
}
