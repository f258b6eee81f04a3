// internal/report/sink_postgres.go
package report

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"nsa-scheduler/internal/common/errors"
	"nsa-scheduler/internal/models"
)

// PostgresSink inserts outcome rows into a results table inside a single
// transaction, so a failed run never leaves a half-written report behind.
type PostgresSink struct {
	db    *sql.DB
	table string
}

// NewPostgresSink opens a connection pool against the given DSN.
func NewPostgresSink(dsn, table string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.NewReportWriteFailedError("postgres", err)
	}
	return &PostgresSink{db: db, table: table}, nil
}

// NewPostgresSinkWithDB wraps an existing handle. Used by tests.
func NewPostgresSinkWithDB(db *sql.DB, table string) *PostgresSink {
	return &PostgresSink{db: db, table: table}
}

func (s *PostgresSink) Close() error {
	return s.db.Close()
}

func (s *PostgresSink) Write(ctx context.Context, rows []*models.OrderRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewReportWriteFailedError("postgres", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (
		dealer_id, ro_number, order_uuid,
		customer_first_name, customer_last_name, customer_key, customer_uuid,
		vin, vehicle_uuid, opcodes, ro_close_date,
		nsa_status, nsa_date, nsa_uuid, text_status, email_status
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`, s.table))
	if err != nil {
		tx.Rollback()
		return errors.NewReportWriteFailedError("postgres", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.DealerID, row.RONumber, row.OrderUUID,
			row.CustomerFirstName, row.CustomerLastName, row.CustomerKey, row.CustomerUUID,
			row.VIN, row.VehicleUUID, row.Opcodes, row.ROCloseDate,
			row.NSAStatus, row.NSADate, row.NSAUUID, row.TextStatus, row.EmailStatus,
		); err != nil {
			tx.Rollback()
			return errors.NewReportWriteFailedError("postgres", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewReportWriteFailedError("postgres", err)
	}
	return nil
}
