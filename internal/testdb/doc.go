// Package testdb provides migrated databases for store tests.
//
// Open returns a fresh in-memory SQLite database for every test.
// OpenConfigured runs against the database named by
// GENSTUDIO_TEST_DATABASE_URL, usually PostgreSQL, and skips the test
// when the variable is unset. Tests sharing a configured database should
// write through WithTx so nothing they insert survives them.
package testdb
