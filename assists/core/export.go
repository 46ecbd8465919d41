package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"axiapac.com/biometrics/utils"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const exportSheet = "Assists"

const ExportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FileWriter stores an exported workbook, e.g. in an S3 bucket.
type FileWriter interface {
	WriteFile(ctx context.Context, key string, body io.Reader, contentType string) error
}

var exportHeaders = []string{
	"External ID", "Employee Code", "Employee ID", "Terminal SN", "Terminal ID",
	"Terminal Alias", "Area Alias", "Longitude", "Latitude",
	"Upload Time (UTC)", "Punch Time (UTC)", "Punch Time (Local)", "Punch Time (Origin)",
}

// Export writes stored records with from < punch_time <= to as an xlsx workbook.
func (s *Service) Export(ctx context.Context, from, to time.Time, w io.Writer) (int, error) {
	records, err := s.store.AssistsBetween(ctx, from, to)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return 0, fmt.Errorf("failed to name sheet: %w", err)
	}

	rows := make([][]interface{}, 0, len(records)+1)
	header := make([]interface{}, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	rows = append(rows, header)

	for _, r := range records {
		uploadTime := ""
		if r.UploadTime != nil {
			uploadTime = r.UploadTime.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []interface{}{
			r.ExternalSyncID, r.EmpCode, r.EmpID, r.TerminalSN, r.TerminalID,
			r.TerminalAlias, r.AreaAlias, utils.Format(r.Longitude), utils.Format(r.Latitude),
			uploadTime, r.PunchTime.UTC().Format(time.RFC3339), r.PunchTimeLocal, r.PunchTimeOrigin,
		})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return 0, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return 0, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("failed to write workbook: %w", err)
	}
	return len(records), nil
}

// ExportKey names an archived workbook: <prefix>/<yyyy-mm-dd of to>/assists_<from>_<to>.xlsx.
func ExportKey(prefix string, from, to time.Time) string {
	name := fmt.Sprintf("assists_%s_%s.xlsx", from.UTC().Format("20060102T150405Z"), to.UTC().Format("20060102T150405Z"))
	return path.Join(prefix, to.UTC().Format("2006-01-02"), name)
}

// ArchiveExport exports (from, to] and stores the workbook with fw. It returns the key
// and the number of records written.
func (s *Service) ArchiveExport(ctx context.Context, fw FileWriter, prefix string, from, to time.Time) (string, int, error) {
	var buf bytes.Buffer
	count, err := s.Export(ctx, from, to, &buf)
	if err != nil {
		return "", 0, err
	}
	key := ExportKey(prefix, from, to)
	if err := fw.WriteFile(ctx, key, &buf, ExportContentType); err != nil {
		return "", 0, err
	}
	s.logger.Info("Archived attendance export", zap.String("key", key), zap.Int("records", count))
	return key, count, nil
}
