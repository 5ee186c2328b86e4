package teammap

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/attendance-engine-go/internal/domain/teammap"
	"github.com/cmlabs-hris/attendance-engine-go/internal/pkg/timeutil"
	attendancesvc "github.com/cmlabs-hris/attendance-engine-go/internal/service/attendance"
	"github.com/xuri/excelize/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var exportHeaders = []string{
	"User ID", "Name", "Status", "Total Duration",
	"Latitude", "Longitude", "Shown Latitude", "Shown Longitude", "Location",
}

// Export implements teammap.TeamMapService.
//
// Layout:
//   - Sheet "Team Map": one row per placed user
//   - Sheet "Summary": total / active / completed / on leave
func (s *TeamMapServiceImpl) Export(ctx context.Context, req teammap.TeamMapRequest) (teammap.ExportFile, error) {
	tm, err := s.build(ctx, req)
	if err != nil {
		return teammap.ExportFile{}, err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Team Map"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return teammap.ExportFile{}, fmt.Errorf("%w: %w", teammap.ErrExportFailed, err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	f.SetCellStyle(sheet, "A1", lastHeader, headerStyle)
	f.SetColWidth(sheet, "A", "A", 38)
	f.SetColWidth(sheet, "B", "B", 24)
	f.SetColWidth(sheet, "C", "H", 16)
	f.SetColWidth(sheet, "I", "I", 34)

	for r, m := range tm.Markers {
		values := []interface{}{
			m.UserID,
			m.UserName,
			string(m.Status),
			attendancesvc.FormatDuration(m.TotalSeconds),
			m.Original.Lat,
			m.Original.Lng,
			m.Position.Lat,
			m.Position.Lng,
			m.Original.Display(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return teammap.ExportFile{}, fmt.Errorf("%w: %w", teammap.ErrExportFailed, err)
		}
	}

	summarySheet := "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return teammap.ExportFile{}, fmt.Errorf("%w: %w", teammap.ErrExportFailed, err)
	}
	rows := [][]interface{}{
		{"Date", tm.Date.Format(timeutil.DateLayout)},
		{"Total", tm.Summary.Total},
		{"Active", tm.Summary.Active},
		{"Completed", tm.Summary.Completed},
		{"On Leave", tm.Summary.OnLeave},
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+1)
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return teammap.ExportFile{}, fmt.Errorf("%w: %w", teammap.ErrExportFailed, err)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		slog.Error("Failed to write team map workbook", "error", err)
		return teammap.ExportFile{}, fmt.Errorf("%w: %w", teammap.ErrExportFailed, err)
	}

	return teammap.ExportFile{
		Filename:    fmt.Sprintf("team-map_%s.xlsx", tm.Date.Format(timeutil.DateLayout)),
		ContentType: xlsxContentType,
		Content:     buf.Bytes(),
	}, nil
}
