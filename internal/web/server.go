package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bigredeye/catalystx/internal/config"
	"github.com/bigredeye/catalystx/internal/cv"
	"github.com/bigredeye/catalystx/internal/database"
	"github.com/bigredeye/catalystx/internal/models"
	"github.com/bigredeye/catalystx/internal/otp"
	"github.com/bigredeye/catalystx/internal/ratelimit"
)

type OTPMailer interface {
	SendOTP(email, code string) error
}

type StatusNotifier interface {
	StatusChanged(app *models.Application) error
}

type CVInspector interface {
	Inspect(ctx context.Context, url string, page int) (*cv.Page, error)
}

type Deps struct {
	DB       *database.DataBase
	OTP      *otp.Service
	Mailer   OTPMailer
	Notifier StatusNotifier
	CV       CVInspector
	Limiter  ratelimit.Limiter
}

type server struct {
	config *config.Config
	logger *zap.Logger

	db       *database.DataBase
	otp      *otp.Service
	mailer   OTPMailer
	notifier StatusNotifier
	cv       CVInspector
	limiter  ratelimit.Limiter
}

func newServer(config *config.Config, logger *zap.Logger, deps Deps) (*server, error) {
	if deps.DB == nil || deps.OTP == nil || deps.Mailer == nil || deps.Notifier == nil || deps.CV == nil {
		return nil, errors.New("Incomplete server dependencies")
	}
	return &server{
		config:   config,
		logger:   logger,
		db:       deps.DB,
		otp:      deps.OTP,
		mailer:   deps.Mailer,
		notifier: deps.Notifier,
		cv:       deps.CV,
		limiter:  deps.Limiter,
	}, nil
}

func (s *server) engine() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	if err := r.SetTrustedProxies(s.config.Server.TrustedProxies); err != nil {
		return nil, errors.Wrap(err, "Invalid trusted proxies")
	}

	r.Use(ginzap.Ginzap(s.logger, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(s.logger, true))
	r.Use(instrument)

	if err := setupAuth(s, r); err != nil {
		return nil, err
	}
	setupLoginService(s, r)
	setupProjectsService(s, r)
	setupStudentsService(s, r)

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong "+fmt.Sprint(time.Now().Unix()))
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r, nil
}

// Run serves the api until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, config *config.Config, logger *zap.Logger, deps Deps) error {
	s, err := newServer(config, logger, deps)
	if err != nil {
		return errors.Wrap(err, "Failed to create server")
	}
	r, err := s.engine()
	if err != nil {
		return errors.Wrap(err, "Failed to set up routes")
	}

	srv := &http.Server{
		Addr:              config.Server.ListenAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("bind_address", config.Server.ListenAddress))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "Server failed")
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.Wrap(srv.Shutdown(shutdownCtx), "Failed to shut down server")
}
