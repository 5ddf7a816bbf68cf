package web

import (
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bigredeye/catalystx/api"
	"github.com/bigredeye/catalystx/internal/database"
	lf "github.com/bigredeye/catalystx/internal/logfield"
	"github.com/bigredeye/catalystx/internal/metrics"
	"github.com/bigredeye/catalystx/internal/models"
	"github.com/bigredeye/catalystx/internal/otp"
)

type loginService struct {
	webService
}

func setupLoginService(server *server, r *gin.Engine) {
	s := loginService{newWebService(server, "login")}

	auth := r.Group("/api/auth")
	professor := auth.Group("/professor", server.rateLimit("auth"))
	professor.POST("/signup", s.signup)
	professor.POST("/login", s.login)
	professor.POST("/verify-otp", s.verifyOTP)
	professor.GET("/otp-status", s.otpStatus)
	auth.POST("/logout", s.logout)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("Email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", errors.Errorf("Invalid email %q", email)
	}
	return email, nil
}

func (s loginService) signup(c *gin.Context) {
	req := api.SignupRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithStatus(c, http.StatusBadRequest, err)
		return
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		abortWithStatus(c, http.StatusBadRequest, err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		abortWithStatus(c, http.StatusBadRequest, errors.New("Name is required"))
		return
	}

	professor := &models.Professor{
		Name:       name,
		Email:      email,
		Department: strings.TrimSpace(req.Department),
	}
	err = s.server.db.CreateProfessor(c.Request.Context(), professor)
	if err != nil {
		if database.IsDuplicateKey(err) {
			abortWithStatus(c, http.StatusConflict, errors.New("Professor with this email already exists"))
			return
		}
		s.log.Error("Failed to create professor", lf.Email(email), zap.Error(err))
		abortWithStatus(c, http.StatusInternalServerError, errInternal)
		return
	}
	s.log.Info("Registered professor", lf.ProfessorID(professor.ID), lf.Email(email))

	s.issue(c, email)
}

func (s loginService) login(c *gin.Context) {
	req := api.LoginRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithStatus(c, http.StatusBadRequest, err)
		return
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		abortWithStatus(c, http.StatusBadRequest, err)
		return
	}

	_, err = s.server.db.FindProfessorByEmail(c.Request.Context(), email)
	if err != nil {
		if database.IsNotFound(err) {
			abortWithStatus(c, http.StatusNotFound, errors.New("Professor not found"))
			return
		}
		s.log.Error("Failed to find professor", lf.Email(email), zap.Error(err))
		abortWithStatus(c, http.StatusInternalServerError, errInternal)
		return
	}

	s.issue(c, email)
}

// issue creates a code and mails it. The code is revoked if the email cannot be sent.
func (s loginService) issue(c *gin.Context, email string) {
	ctx := c.Request.Context()

	issued, err := s.server.otp.Issue(ctx, email)
	if err != nil {
		var blocked *otp.ResendBlocked
		if errors.As(err, &blocked) {
			c.Header("Retry-After", formatSeconds(blocked.Remaining))
			abortWithStatus(c, http.StatusTooManyRequests, err)
			return
		}
		s.log.Error("Failed to issue OTP", lf.Email(email), zap.Error(err))
		abortWithStatus(c, http.StatusInternalServerError, errInternal)
		return
	}

	if err := s.server.mailer.SendOTP(email, issued.Code); err != nil {
		if revokeErr := s.server.otp.Revoke(ctx, email); revokeErr != nil {
			s.log.Error("Failed to revoke unsent OTP", lf.Email(email), zap.Error(revokeErr))
		}
		abortWithStatus(c, http.StatusBadGateway, errors.New("Failed to send OTP email"))
		return
	}

	c.JSON(http.StatusOK, &api.LoginResponse{
		Status:       api.Status{Ok: true},
		OTPStartTime: otp.StartTime(issued.IssuedAt),
		ExpiresIn:    int64(issued.TTL / time.Second),
	})
}

func verifyStatus(err error) int {
	switch {
	case errors.Is(err, otp.ErrInvalidFormat):
		return http.StatusBadRequest
	case errors.Is(err, otp.ErrMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, otp.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, otp.ErrExpired):
		return http.StatusGone
	case errors.Is(err, otp.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func verifyResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, otp.ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(err, otp.ErrMismatch):
		return "mismatch"
	case errors.Is(err, otp.ErrNotFound):
		return "not_found"
	case errors.Is(err, otp.ErrExpired):
		return "expired"
	case errors.Is(err, otp.ErrTooManyAttempts):
		return "too_many_attempts"
	default:
		return "error"
	}
}

func (s loginService) verifyOTP(c *gin.Context) {
	req := api.VerifyOTPRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithStatus(c, http.StatusBadRequest, err)
		return
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		abortWithStatus(c, http.StatusBadRequest, err)
		return
	}
	ctx := c.Request.Context()

	err = s.server.otp.Verify(ctx, email, req.OTP)
	metrics.OTPVerificationsTotal.WithLabelValues(verifyResult(err)).Inc()
	if err != nil {
		code := verifyStatus(err)
		if code == http.StatusInternalServerError {
			s.log.Error("Failed to verify OTP", lf.Email(email), zap.Error(err))
			err = errInternal
		}
		abortWithStatus(c, code, err)
		return
	}

	professor, err := s.server.db.FindProfessorByEmail(ctx, email)
	if err != nil {
		if database.IsNotFound(err) {
			abortWithStatus(c, http.StatusNotFound, errors.New("Professor not found"))
			return
		}
		s.log.Error("Failed to find professor", lf.Email(email), zap.Error(err))
		abortWithStatus(c, http.StatusInternalServerError, errInternal)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionKey, Session{ProfessorID: professor.ID, Email: professor.Email})
	if err := session.Save(); err != nil {
		s.log.Error("Failed to save session", zap.Error(err))
		abortWithStatus(c, http.StatusInternalServerError, errInternal)
		return
	}

	s.log.Info("Professor logged in", lf.ProfessorID(professor.ID))
	c.JSON(http.StatusOK, &api.VerifyOTPResponse{
		Status:   api.Status{Ok: true},
		Redirect: s.config.Endpoints.Home,
	})
}

func (s loginService) otpStatus(c *gin.Context) {
	email, err := normalizeEmail(c.Query("email"))
	if err != nil {
		abortWithStatus(c, http.StatusBadRequest, err)
		return
	}

	pending, err := s.server.otp.Status(c.Request.Context(), email)
	if err != nil {
		s.log.Error("Failed to load OTP status", lf.Email(email), zap.Error(err))
		abortWithStatus(c, http.StatusInternalServerError, errInternal)
		return
	}

	c.JSON(http.StatusOK, &api.OTPStatusResponse{
		Status:    api.Status{Ok: true},
		Remaining: int64(pending.Remaining / time.Second),
		Countdown: otp.FormatCountdown(pending.Remaining),
	})
}

func (s loginService) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		s.log.Error("Failed to save session", zap.Error(err))
	}

	c.JSON(http.StatusOK, &api.Status{Ok: true})
}
