package history

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "codeberg.org/mutker/printwatch/internal/errors"
	"codeberg.org/mutker/printwatch/internal/logger"
	"codeberg.org/mutker/printwatch/internal/printjob"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var observed = time.Date(2024, 3, 1, 9, 30, 15, 123_000_000, time.UTC)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.New(&bytes.Buffer{}, "debug")
	require.NoError(t, err)
	return log
}

func testRecord(id string) printjob.Record {
	return printjob.Record{
		PrinterName:       "LaserA",
		JobID:             id,
		ObservedAt:        observed,
		Status:            printjob.StatusPrinting,
		Pages:             3,
		DocumentSizeBytes: 20480,
		ColorMode:         printjob.ColorColor,
		DuplexMode:        printjob.DuplexSimplex,
		PaperSize:         printjob.PaperA4,
		UserAccount:       "alice",
	}
}

func expectCurrentSchema(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("schema_versions").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT version").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(SchemaVersion))
}

func TestFlushWritesBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	expectCurrentSchema(mock)
	repo, err := newRepository(db, Config{BatchSize: 2}, testLogger(t))
	require.NoError(t, err)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT OR IGNORE INTO jobs")
	for _, id := range []string{"42", "43"} {
		prep.ExpectExec().
			WithArgs("session-1", "LaserA", id, "2024-03-01T09:30:15.123+00:00", observed.UnixMilli(),
				"Printing", int64(3), int64(20480), "Color", "Simplex", "A4", "alice").
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.Record(&Entry{SessionID: "session-1", Record: testRecord("42")}))
	require.NoError(t, repo.Record(&Entry{SessionID: "session-1", Record: testRecord("43")}))

	mock.ExpectExec("PRAGMA wal_checkpoint").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close(), "second close is a no-op")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlushRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	expectCurrentSchema(mock)
	repo, err := newRepository(db, Config{BatchSize: 1}, testLogger(t))
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT OR IGNORE INTO jobs").
		ExpectExec().
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = repo.Record(&Entry{SessionID: "s", Record: testRecord("42")})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, ErrTransactionFailed))
	assert.NoError(t, mock.ExpectationsWereMet())

	// The entry stays buffered for the next attempt.
	assert.Len(t, repo.buffer, 1)
}

func TestSchemaValidationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT EXISTS").WillReturnError(sql.ErrConnDone)

	_, err = newRepository(db, Config{BatchSize: 1}, testLogger(t))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, ErrStorageInit))
}

func TestSQLiteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		DBPath:       filepath.Join(dir, "data", "history.db"),
		BatchSize:    10,
		BatchTimeout: time.Hour,
		Enabled:      true,
	}

	rec, err := NewService(cfg, testLogger(t))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, rec.Record(ctx, testRecord("42")))
	require.NoError(t, rec.Record(ctx, testRecord("43")))
	require.NoError(t, rec.Record(ctx, testRecord("42")))
	require.NoError(t, rec.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM jobs").Scan(&count))
	assert.Equal(t, 2, count, "duplicates within a session are ignored")

	var status, observedAt, session string
	require.NoError(t, db.QueryRow(
		"SELECT status, observed_at, session_id FROM jobs WHERE job_id = ?", "42",
	).Scan(&status, &observedAt, &session))
	assert.Equal(t, "Printing", status)
	assert.Equal(t, "2024-03-01T09:30:15.123+00:00", observedAt)
	assert.Len(t, session, 36)
}

func TestSchemaResetKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
		INSERT INTO schema_versions VALUES (99, datetime('now'));`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	cfg := Config{DBPath: dbPath, BatchSize: 1, Enabled: true}
	repo, err := NewRepository(cfg, testLogger(t))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	backups, err := os.ReadDir(filepath.Join(dir, "backups"))
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Contains(t, backups[0].Name(), "history_v99_")

	db, err = sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()
	version, err := GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, version)
}

func TestDisabledServiceIsNoop(t *testing.T) {
	rec, err := NewService(DefaultConfig(), testLogger(t))
	require.NoError(t, err)
	assert.IsType(t, &noopRecorder{}, rec)
	assert.NoError(t, rec.Record(context.Background(), testRecord("1")))
	assert.NoError(t, rec.Close())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	err := Config{Enabled: true}.Validate()
	assert.True(t, apperrors.HasCode(err, ErrInvalidDBPath))

	err = Config{BatchSize: -1}.Validate()
	assert.True(t, apperrors.HasCode(err, ErrInvalidConfig))

	assert.Equal(t, filepath.Join("/var/lib/printwatch", "backups"), DefaultConfig().backupDir())
}
