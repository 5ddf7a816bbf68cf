package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bigredeye/catalystx/internal/config"
	"github.com/bigredeye/catalystx/internal/cv"
	"github.com/bigredeye/catalystx/internal/database"
	"github.com/bigredeye/catalystx/internal/mail"
	"github.com/bigredeye/catalystx/internal/metrics"
	"github.com/bigredeye/catalystx/internal/notify"
	"github.com/bigredeye/catalystx/internal/otp"
	"github.com/bigredeye/catalystx/internal/ratelimit"
	"github.com/bigredeye/catalystx/internal/web"
	zlog "github.com/bigredeye/catalystx/pkg/log"
)

func initLogger(conf *config.Config) *zap.Logger {
	if !conf.Log.Production {
		return zlog.InitDev()
	}
	return zlog.InitProdWithFile(zlog.FileOptions{
		Path:       conf.Log.File,
		MaxSizeMB:  conf.Log.MaxSizeMB,
		MaxBackups: conf.Log.MaxBackups,
		MaxAgeDays: conf.Log.MaxAgeDays,
	})
}

func run(configPath string) error {
	conf, err := config.ParseConfig(configPath)
	if err != nil {
		return err
	}
	logger := initLogger(conf)
	defer zlog.Sync()

	if err := metrics.Register(nil); err != nil {
		return errors.Wrap(err, "Failed to register metrics")
	}

	db, err := database.OpenDataBase(logger, conf.DataBase.Driver, conf.DSN(), conf.DataBase.ConnectTimeout)
	if err != nil {
		return errors.Wrap(err, "Failed to open database")
	}

	otpService := otp.NewService(logger, db, conf.OTP.TTL, conf.OTP.MaxAttempts)

	composer, err := mail.NewComposer(conf.Mail.User, mail.LoadLogo(logger, conf.Mail.LogoDir))
	if err != nil {
		return err
	}
	sender := mail.NewSMTPSender(logger, mail.SMTPConfig{
		Host:               conf.Mail.Host,
		Port:               conf.Mail.Port,
		User:               conf.Mail.User,
		Pass:               conf.Mail.Pass,
		TLSMode:            conf.Mail.TLSMode,
		InsecureSkipVerify: conf.Mail.InsecureSkipVerify,
	})
	mailer := mail.NewMailer(logger, composer, sender)
	notifier := notify.NewNotifier(logger, mailer)

	inspector, err := cv.NewInspector(logger, cv.Config{
		MaxSize:      conf.CV.MaxSize,
		CacheTTL:     conf.CV.CacheTTL,
		Timeout:      conf.CV.Timeout,
		AllowPrivate: conf.CV.AllowPrivate,
	})
	if err != nil {
		return err
	}
	defer inspector.Stop()

	limiter, err := ratelimit.New(ratelimit.Config{
		Driver:    conf.RateLimit.Driver,
		RedisAddr: conf.RateLimit.RedisAddr,
		RedisDB:   conf.RateLimit.RedisDB,
		Max:       conf.RateLimit.Max,
		Window:    conf.RateLimit.Window,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return web.Run(gctx, conf, logger, web.Deps{
			DB:       db,
			OTP:      otpService,
			Mailer:   mailer,
			Notifier: notifier,
			CV:       inspector,
			Limiter:  limiter,
		})
	})
	g.Go(func() error {
		return otpService.RunSweeper(gctx, conf.OTP.SweepInterval)
	})

	err = g.Wait()
	logger.Info("Waiting for pending status emails")
	notifier.Wait()
	logger.Info("Stopped", zap.Int64("emails_sent", notifier.Sent()), zap.Int64("emails_failed", notifier.Failed()))
	return err
}

func main() {
	var configPath string
	cmd := &cobra.Command{
		Use:   "catalystx",
		Short: "Career CatalystX professor portal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file")

	if err := cmd.Execute(); err != nil {
		log.Fatalf("%+v\n", err)
	}
}
