// Package store defines the persistence interfaces used by the generation
// layer: the settings that survive a restart (backup credentials and model
// overrides) and the record of video jobs.
//
// Implementations live in internal/platform/sqlstore and work against any
// DBTX, so the same code runs on Postgres and SQLite.
package store
