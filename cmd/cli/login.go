package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bigredeye/catalystx/pkg/client/catalystx"
)

func makeLoginCommand() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with an emailed one-time password",
		RunE: func(cmd *cobra.Command, args []string) error {
			return login(email)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Professor email")
	check(cmd.MarkFlagRequired("email"))

	return cmd
}

func login(email string) error {
	client, err := catalystx.NewClient(endpoint)
	if err != nil {
		return err
	}

	res, err := client.RequestCode(email)
	if err != nil {
		return err
	}
	log.Info("Sent code", zap.String("email", email), zap.Int64("expires_in", res.ExpiresIn))

	fmt.Print("Code: ")
	code, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return err
	}
	if err := client.Verify(email, strings.TrimSpace(code)); err != nil {
		return err
	}

	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(client.Session()), 0o600); err != nil {
		return err
	}

	log.Info("Logged in", zap.String("email", email), zap.String("session", path))
	return nil
}
