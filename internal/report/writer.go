// Package report persists per-row batch outcomes. The CSV sink mirrors the
// extraction report layout with the outcome columns appended; the Postgres
// sink writes the same rows to a results table.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"nsa-scheduler/internal/common/errors"
	"nsa-scheduler/internal/models"
)

// Sink writes the final outcome rows of one run.
type Sink interface {
	Write(ctx context.Context, rows []*models.OrderRow) error
}

// reportHeader matches the extraction column order, then outcome columns.
var reportHeader = []string{
	"Dealer ID",
	"RO Number",
	"Order UUID",
	"Customer First Name",
	"Customer Last Name",
	"Customer Key",
	"Customer UUID",
	"VIN",
	"Vehicle UUID",
	"Opcodes",
	"RO Close Date",
	"NSA Status",
	"NSA Date",
	"NSA UUID",
	"Text Status",
	"Email Status",
}

func reportRecord(row *models.OrderRow) []string {
	return []string{
		row.DealerID,
		row.RONumber,
		row.OrderUUID,
		row.CustomerFirstName,
		row.CustomerLastName,
		row.CustomerKey,
		row.CustomerUUID,
		row.VIN,
		row.VehicleUUID,
		row.Opcodes,
		row.ROCloseDate,
		row.NSAStatus,
		row.NSADate,
		row.NSAUUID,
		row.TextStatus,
		row.EmailStatus,
	}
}

// CSVSink writes the report as a CSV file, replacing any previous report at
// the same path via temp-file rename.
type CSVSink struct {
	path string
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) Write(_ context.Context, rows []*models.OrderRow) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".report-*.csv")
	if err != nil {
		return errors.NewReportWriteFailedError("csv", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(reportHeader); err != nil {
		tmp.Close()
		return errors.NewReportWriteFailedError("csv", err)
	}
	for _, row := range rows {
		if err := w.Write(reportRecord(row)); err != nil {
			tmp.Close()
			return errors.NewReportWriteFailedError("csv", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return errors.NewReportWriteFailedError("csv", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewReportWriteFailedError("csv", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.NewReportWriteFailedError("csv", fmt.Errorf("rename report into place: %w", err))
	}
	return nil
}
