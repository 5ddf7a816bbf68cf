package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bigredeye/catalystx/pkg/client/catalystx"
)

var log *zap.Logger

var endpoint string

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func unwrap[T any](value T, err error) T {
	check(err)
	return value
}

var (
	rootCmd = &cobra.Command{
		Use:   "ccx",
		Short: "Career CatalystX client",
	}

	applicationsCmd = &cobra.Command{
		Use:   "applications",
		Short: "Review project applications",
	}
)

func initLogging() {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.ConsoleSeparator = " "
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.StampMilli)
	log = unwrap(config.Build())
}

func initCommands() {
	defaultEndpoint := os.Getenv("CCX_ENDPOINT")
	if defaultEndpoint == "" {
		defaultEndpoint = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", defaultEndpoint, "Server address")

	applicationsCmd.AddCommand(makeListCommand())
	applicationsCmd.AddCommand(makeStatusCommand())
	applicationsCmd.AddCommand(makeExportCommand())
	rootCmd.AddCommand(makeLoginCommand())
	rootCmd.AddCommand(makeProjectsCommand())
	rootCmd.AddCommand(applicationsCmd)
}

func init() {
	initLogging()
	initCommands()
}

func sessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "catalystx", "session"), nil
}

// newClient returns a client with the session saved by the login command.
func newClient() (*catalystx.Client, error) {
	client, err := catalystx.NewClient(endpoint)
	if err != nil {
		return nil, err
	}

	path, err := sessionPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("not logged in, run `ccx login` first")
		}
		return nil, err
	}
	client.SetSession(strings.TrimSpace(string(data)))
	return client, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Command failed: %s", err.Error())
		os.Exit(1)
	}
}
