package main

import (
	"context"
	"log"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bigredeye/catalystx/internal/config"
	"github.com/bigredeye/catalystx/internal/database"
	"github.com/bigredeye/catalystx/internal/fixtures"
	zlog "github.com/bigredeye/catalystx/pkg/log"
)

func seed(configPath, fixturesPath string) error {
	logger := zlog.InitDev()
	defer zlog.Sync()

	conf, err := config.ParseConfig(configPath)
	if err != nil {
		return err
	}
	f, err := fixtures.ParseFile(fixturesPath)
	if err != nil {
		return err
	}
	db, err := database.OpenDataBase(logger, conf.DataBase.Driver, conf.DSN(), conf.DataBase.ConnectTimeout)
	if err != nil {
		return err
	}

	stats, err := fixtures.Load(context.Background(), logger, db, f)
	if err != nil {
		return err
	}
	logger.Info("Seeded database",
		zap.Int("professors", stats.Professors),
		zap.Int("projects", stats.Projects),
		zap.Int("students", stats.Students),
		zap.Int("applications", stats.Applications),
	)
	return nil
}

func main() {
	var configPath, fixturesPath string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo fixtures into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return seed(configPath, fixturesPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file")
	cmd.Flags().StringVar(&fixturesPath, "fixtures", "fixtures/demo.yaml", "Path to fixtures")

	if err := cmd.Execute(); err != nil {
		log.Fatalf("%+v\n", err)
	}
}
