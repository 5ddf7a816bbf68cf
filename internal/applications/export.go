package applications

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/bigredeye/catalystx/internal/models"
)

var ErrNothingToExport = errors.New("No accepted applications to export")

var exportHeader = []string{"Name", "Email", "Branch"}

func acceptedRows(apps []models.Application) [][]string {
	rows := make([][]string, 0)
	for i := range apps {
		app := &apps[i]
		if app.Status != models.ApplicationStatusAccepted {
			continue
		}
		rows = append(rows, []string{app.Student.Name, app.Student.Email, app.Student.Branch})
	}
	return rows
}

func quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// ExportAcceptedCSV writes accepted applications with every field quoted.
// encoding/csv only quotes when needed, so rows are assembled by hand.
func ExportAcceptedCSV(w io.Writer, apps []models.Application) error {
	rows := acceptedRows(apps)
	if len(rows) == 0 {
		return ErrNothingToExport
	}

	buf := bufio.NewWriter(w)
	for i, row := range append([][]string{exportHeader}, rows...) {
		if i > 0 {
			buf.WriteByte('\n')
		}
		for j, field := range row {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(quote(field))
		}
	}
	return errors.Wrap(buf.Flush(), "Failed to write csv")
}

const acceptedSheet = "Accepted"

func ExportAcceptedXLSX(w io.Writer, apps []models.Application) error {
	rows := acceptedRows(apps)
	if len(rows) == 0 {
		return ErrNothingToExport
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", acceptedSheet); err != nil {
		return errors.Wrap(err, "Failed to rename sheet")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2563EB"}, Pattern: 1},
	})
	if err != nil {
		return errors.Wrap(err, "Failed to create header style")
	}

	for i, row := range append([][]string{exportHeader}, rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j := range row {
			values[j] = row[j]
		}
		if err := f.SetSheetRow(acceptedSheet, cell, &values); err != nil {
			return errors.Wrapf(err, "Failed to write row %d", i+1)
		}
	}

	if err := f.SetCellStyle(acceptedSheet, "A1", "C1", headerStyle); err != nil {
		return errors.Wrap(err, "Failed to style header")
	}
	if err := f.SetColWidth(acceptedSheet, "A", "C", 32); err != nil {
		return errors.Wrap(err, "Failed to set column width")
	}

	return errors.Wrap(f.Write(w), "Failed to write xlsx")
}

func ExportFileName(ext string, now time.Time) string {
	return fmt.Sprintf("accepted_applications_%s.%s", now.Format("2006-01-02"), ext)
}
