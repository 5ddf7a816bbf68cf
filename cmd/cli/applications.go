package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bigredeye/catalystx/pkg/client/catalystx"
)

func makeProjectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List your projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			projects, err := client.LoadProjects()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, []string{p.ID, p.Title, p.Department})
			}
			return markdown.NewMarkdown(os.Stdout).
				Table(markdown.TableSet{Header: []string{"ID", "Title", "Department"}, Rows: rows}).
				Build()
		},
	}
}

func makeListCommand() *cobra.Command {
	var project string
	var filter catalystx.Filter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applications of a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listApplications(project, filter)
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project id")
	cmd.Flags().StringVar(&filter.Status, "status", "", "PENDING, ACCEPTED or REJECTED")
	cmd.Flags().StringVar(&filter.Branch, "branch", "", "Student branch")
	cmd.Flags().StringVar(&filter.CV, "cv", "", "with, without or all")
	check(cmd.MarkFlagRequired("project"))

	return cmd
}

func listApplications(project string, filter catalystx.Filter) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	res, err := client.LoadApplications(project, filter)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(res.Applications))
	for _, app := range res.Applications {
		cv := "-"
		if app.Student.CVURL != nil {
			cv = *app.Student.CVURL
		}
		rows = append(rows, []string{app.ID, app.Student.Name, app.Student.Email, app.Student.Branch, app.Status, cv})
	}

	md := markdown.NewMarkdown(os.Stdout)
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Name", "Email", "Branch", "Status", "CV"},
		Rows:   rows,
	})
	md.PlainText("")
	md.PlainText("Total: " + strconv.Itoa(res.Total))
	return md.Build()
}

func makeStatusCommand() *cobra.Command {
	var application string
	var status string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Accept or reject an application",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			res, err := client.SetStatus(application, status)
			if err != nil {
				return err
			}
			log.Info("Updated status",
				zap.String("application", application),
				zap.String("status", res.Application.Status),
				zap.Bool("changed", res.Changed),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&application, "application", "", "Application id")
	cmd.Flags().StringVar(&status, "status", "", "ACCEPTED or REJECTED")
	check(cmd.MarkFlagRequired("application"))
	check(cmd.MarkFlagRequired("status"))

	return cmd
}

func makeExportCommand() *cobra.Command {
	var project string
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export accepted applications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportApplications(project, format, output)
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project id")
	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file, defaults to accepted_applications.<format>")
	check(cmd.MarkFlagRequired("project"))

	return cmd
}

func exportApplications(project, format, output string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	if output == "" {
		output = fmt.Sprintf("accepted_applications.%s", format)
	}

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := client.Export(project, format, f); err != nil {
		_ = os.Remove(output)
		return err
	}

	log.Info("Exported applications", zap.String("project", project), zap.String("file", output))
	return nil
}
