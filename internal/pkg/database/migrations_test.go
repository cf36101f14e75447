package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMigration(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestRunMigrations_AppliesInOrder(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "000002_second.up.sql", "CREATE TABLE b (id int)")
	writeMigration(t, dir, "000001_first.up.sql", "CREATE TABLE a (id int)")
	writeMigration(t, dir, "000001_first.down.sql", "DROP TABLE a")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE b").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	applied, err := RunMigrations(sqlx.NewDb(db, "sqlmock"), dir)

	require.NoError(t, err)
	assert.Equal(t, []string{"000001_first.up.sql", "000002_second.up.sql"}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_StopsOnFailure(t *testing.T) {
	dir := t.TempDir()
	writeMigration(t, dir, "000001_first.up.sql", "CREATE TABLE a (id int)")
	writeMigration(t, dir, "000002_broken.up.sql", "CREATE TABLE")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	applied, err := RunMigrations(sqlx.NewDb(db, "sqlmock"), dir)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "000002_broken.up.sql")
	assert.Equal(t, []string{"000001_first.up.sql"}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_EmptyDir(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = RunMigrations(sqlx.NewDb(db, "sqlmock"), t.TempDir())
	assert.Error(t, err)
}
