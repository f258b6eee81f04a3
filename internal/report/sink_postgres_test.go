// internal/report/sink_postgres_test.go
package report

import (
	"context"
	"fmt"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresSink_WriteCommitsAllRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prepare := mock.ExpectPrepare("INSERT INTO nsa_schedule_results")
	prepare.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prepare.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sink := NewPostgresSinkWithDB(db, "nsa_schedule_results")
	require.NoError(t, sink.Write(context.Background(), sampleRows()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSink_RollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	prepare := mock.ExpectPrepare("INSERT INTO nsa_schedule_results")
	prepare.ExpectExec().WillReturnError(fmt.Errorf("constraint violation"))
	mock.ExpectRollback()

	sink := NewPostgresSinkWithDB(db, "nsa_schedule_results")
	err = sink.Write(context.Background(), sampleRows()[:1])

	require.Error(t, err)
	assert.Contains(t, err.Error(), "REPORT_WRITE_FAILED")
	assert.NoError(t, mock.ExpectationsWereMet())
}
