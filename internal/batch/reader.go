// Package batch reads the extracted closed-RO input into order rows. Two
// formats are supported: the extraction pipeline's CSV report and a JSON
// array validated against the order schema.
package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"nsa-scheduler/internal/common/errors"
	"nsa-scheduler/internal/common/validation"
	"nsa-scheduler/internal/models"
)

// Column headers produced by the extraction step. The CSV reader maps by
// header name, not position, so reordered or extended extractions still load.
const (
	colDealerID     = "Dealer ID"
	colRONumber     = "RO Number"
	colOrderUUID    = "Order UUID"
	colFirstName    = "Customer First Name"
	colLastName     = "Customer Last Name"
	colCustomerKey  = "Customer Key"
	colCustomerUUID = "Customer UUID"
	colVIN          = "VIN"
	colVehicleUUID  = "Vehicle UUID"
	colOpcodes      = "Opcodes"
	colROCloseDate  = "RO Close Date"
)

// Read loads the batch at path, dispatching on format ("csv" or "json").
func Read(path, format string) ([]*models.OrderRow, error) {
	switch strings.ToLower(format) {
	case "csv":
		return ReadCSV(path)
	case "json":
		return ReadJSON(path)
	default:
		return nil, errors.NewDataError("batch.format", fmt.Sprintf("unsupported batch format %q", format))
	}
}

// ReadCSV loads an extraction CSV with a header row.
func ReadCSV(path string) ([]*models.OrderRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open batch file %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewDataError("batch", "batch file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read batch header %s: %w", path, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colDealerID, colRONumber, colROCloseDate} {
		if _, ok := index[required]; !ok {
			return nil, errors.NewDataError("batch", fmt.Sprintf("missing required column %q", required))
		}
	}

	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var rows []*models.OrderRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read batch row %s: %w", path, err)
		}
		if len(record) == 0 || field(record, colRONumber) == "" {
			continue
		}
		rows = append(rows, &models.OrderRow{
			DealerID:          field(record, colDealerID),
			RONumber:          field(record, colRONumber),
			OrderUUID:         field(record, colOrderUUID),
			CustomerFirstName: field(record, colFirstName),
			CustomerLastName:  field(record, colLastName),
			CustomerKey:       field(record, colCustomerKey),
			CustomerUUID:      field(record, colCustomerUUID),
			VIN:               field(record, colVIN),
			VehicleUUID:       field(record, colVehicleUUID),
			Opcodes:           field(record, colOpcodes),
			ROCloseDate:       field(record, colROCloseDate),
		})
	}
	return rows, nil
}

// ReadJSON loads a JSON array batch, validating it against the order schema
// before decoding.
func ReadJSON(path string) ([]*models.OrderRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file %s: %w", path, err)
	}

	if err := validation.ValidateOrderBatch(data); err != nil {
		return nil, err
	}

	var rows []*models.OrderRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errors.NewDataError("batch", fmt.Sprintf("decode batch JSON: %v", err))
	}
	return rows, nil
}
