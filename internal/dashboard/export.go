package dashboard

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/bikeshare-trends/internal/domain"
)

const exportSheet = "Trends"

var exportHeader = []string{"Month", "Season", "Trips", "AvgDistance"}

type exportRow struct {
	Month       string
	Season      string
	Trips       float64
	AvgDistance float64
}

// exportRows joins both series month by month, in series order.
func exportRows(r domain.Results) []exportRow {
	dist := make(map[string]float64, len(r.AvgDistance))
	for _, p := range r.AvgDistance {
		dist[p.Month] = p.Value
	}
	rows := make([]exportRow, 0, len(r.TripCounts))
	for _, p := range r.TripCounts {
		rows = append(rows, exportRow{Month: p.Month, Season: p.Season, Trips: p.Value, AvgDistance: dist[p.Month]})
	}
	return rows
}

// WriteCSV writes the trend series as CSV with a header row.
func WriteCSV(w io.Writer, r domain.Results) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range exportRows(r) {
		rec := []string{
			row.Month,
			row.Season,
			strconv.FormatFloat(row.Trips, 'f', -1, 64),
			strconv.FormatFloat(row.AvgDistance, 'f', 2, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the trend series as a single-sheet workbook.
func WriteXLSX(w io.Writer, r domain.Results) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]any, len(exportHeader))
	for i, h := range exportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	for i, row := range exportRows(r) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{row.Month, row.Season, row.Trips, row.AvgDistance}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i+2, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
