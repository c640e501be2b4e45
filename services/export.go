package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/fenilmodi00/ipo-gmp-tracker/shared"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "IPO GMP"

var exportHeader = []string{"IPO Name", "Price", "Subscription", "Start Date", "End Date", "GMP", "Average GMP", "Status"}

// SpreadsheetExporter writes every tracked IPO with its GMP history to an xlsx workbook
type SpreadsheetExporter struct {
	Registry IPORegistry
	Store    GMPSampleStore
}

func NewSpreadsheetExporter(registry IPORegistry, store GMPSampleStore) *SpreadsheetExporter {
	return &SpreadsheetExporter{Registry: registry, Store: store}
}

// Export overwrites path and returns the number of IPO rows written
func (e *SpreadsheetExporter) Export(ctx context.Context, path string) (int, error) {
	ipos, err := e.Registry.List(ctx)
	if err != nil {
		return 0, shared.NewRunError(shared.ErrorCategoryDatabase, "EXPORT_QUERY_FAILED",
			"failed to list IPOs for export", "exporter", "Export", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return 0, err
	}

	widths := make([]int, len(exportHeader))
	if err := writeRow(f, 1, toCells(exportHeader), widths); err != nil {
		return 0, err
	}

	for i, ipo := range ipos {
		history, err := e.Store.History(ctx, ipo.ID)
		if err != nil {
			return 0, shared.NewRunError(shared.ErrorCategoryDatabase, "EXPORT_QUERY_FAILED",
				"failed to load GMP history for export", "exporter", "Export", err)
		}

		gmps := make([]string, len(history))
		for j, sample := range history {
			gmps[j] = fmt.Sprintf("%g", sample.GMP)
		}

		var average interface{} = ""
		if len(history) > 0 {
			average = RoundGMP(MeanGMP(history))
		}

		row := []interface{}{
			ipo.Name,
			ipo.Price,
			ipo.Subscription,
			formatOptionalDate(ipo.StartDate),
			shared.FormatDate(ipo.EndDate),
			strings.Join(gmps, ","),
			average,
			string(ipo.Status),
		}
		if err := writeRow(f, i+2, row, widths); err != nil {
			return 0, err
		}
	}

	if err := styleSheet(f, widths); err != nil {
		return 0, err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, err
		}
	}
	if err := f.SaveAs(path); err != nil {
		return 0, fmt.Errorf("failed to save workbook: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"component": "SpreadsheetExporter",
		"path":      path,
		"rows":      len(ipos),
	}).Info("Exported IPO GMP workbook")
	return len(ipos), nil
}

func writeRow(f *excelize.File, rowNumber int, values []interface{}, widths []int) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNumber)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
		return err
	}
	for i, v := range values {
		if n := utf8.RuneCountInString(fmt.Sprint(v)); n > widths[i] {
			widths[i] = n
		}
	}
	return nil
}

// styleSheet bolds and centres the header and sizes every column to its widest value
func styleSheet(f *excelize.File, widths []int) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	last, err := excelize.CoordinatesToCellName(len(exportHeader), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(exportSheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(exportSheet, col, col, float64(width+2)); err != nil {
			return err
		}
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
